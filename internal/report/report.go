// Package report answers spending questions over stored transactions.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

// ErrBadMonth is returned for a month not written as YYYY-MM.
var ErrBadMonth = errors.New("month must be YYYY-MM")

const monthFormat = "2006-01"

// Defaults used when Options leaves a field zero.
const (
	DefaultMonths         = 6
	DefaultMaxMonths      = 24
	DefaultTopMerchants   = 15
	DefaultBiggest        = 20
	DefaultFraudThreshold = "400"
)

// Options tunes report sizes and thresholds.
type Options struct {
	MonthlyDefault int
	MonthlyMax     int
	TopMerchants   int
	Biggest        int
	FraudThreshold decimal.Decimal
	Now            func() time.Time
}

// MonthSummary totals one calendar month.
type MonthSummary struct {
	Year    int
	Month   time.Month
	Income  decimal.Decimal
	Expense decimal.Decimal // positive magnitude of outflows
	Net     decimal.Decimal
}

// MerchantSpend is the total spent at one merchant.
type MerchantSpend struct {
	Merchant string
	Spent    decimal.Decimal
}

// Expense is a single outgoing transaction.
type Expense struct {
	Date        time.Time
	Description string
	Merchant    string
	Spent       decimal.Decimal
}

// Service computes reports from a store.Reader.
type Service struct {
	src  store.Reader
	opts Options
}

// NewService creates a Service reading from src.
func NewService(src store.Reader, opts Options) *Service {
	if opts.MonthlyDefault <= 0 {
		opts.MonthlyDefault = DefaultMonths
	}
	if opts.MonthlyMax <= 0 {
		opts.MonthlyMax = DefaultMaxMonths
	}
	if opts.TopMerchants <= 0 {
		opts.TopMerchants = DefaultTopMerchants
	}
	if opts.Biggest <= 0 {
		opts.Biggest = DefaultBiggest
	}
	if opts.FraudThreshold.IsZero() {
		opts.FraudThreshold = decimal.RequireFromString(DefaultFraudThreshold)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{src: src, opts: opts}
}

// ParseMonth parses "YYYY-MM" into the first day of that month, UTC.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(monthFormat, s)
	if err != nil {
		return time.Time{}, ErrBadMonth
	}
	return t, nil
}

func (s *Service) today() time.Time {
	now := s.opts.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Monthly totals income, expense and net per month, oldest first, over the
// last months months (counting back from today). months <= 0 selects the
// default; larger values are capped. Transactions dated after today are
// included.
func (s *Service) Monthly(ctx context.Context, months int) ([]MonthSummary, error) {
	if months <= 0 {
		months = s.opts.MonthlyDefault
	}
	months = min(months, s.opts.MonthlyMax)

	today := s.today()
	from := today.AddDate(0, -months, 0)

	txns, err := s.src.Between(ctx, from, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	byMonth := make(map[time.Time]*MonthSummary)
	for _, t := range txns {
		key := time.Date(t.Date.Year(), t.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		sum, ok := byMonth[key]
		if !ok {
			sum = &MonthSummary{Year: key.Year(), Month: key.Month()}
			byMonth[key] = sum
		}
		if t.IsExpense() {
			sum.Expense = sum.Expense.Add(t.Spent())
		} else {
			sum.Income = sum.Income.Add(t.Amount)
		}
		sum.Net = sum.Net.Add(t.Amount)
	}

	keys := make([]time.Time, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	out := make([]MonthSummary, len(keys))
	for i, k := range keys {
		out[i] = *byMonth[k]
	}
	return out, nil
}

func (s *Service) monthExpenses(ctx context.Context, month string) ([]model.Transaction, error) {
	start, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	txns, err := s.src.Between(ctx, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	var out []model.Transaction
	for _, t := range txns {
		if t.IsExpense() {
			out = append(out, t)
		}
	}
	return out, nil
}

// TopMerchants ranks merchants by total spent in month, largest first.
func (s *Service) TopMerchants(ctx context.Context, month string) ([]MerchantSpend, error) {
	txns, err := s.monthExpenses(ctx, month)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, t := range txns {
		totals[t.Merchant] = totals[t.Merchant].Add(t.Spent())
	}

	out := make([]MerchantSpend, 0, len(totals))
	for m, spent := range totals {
		out = append(out, MerchantSpend{Merchant: m, Spent: spent})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Spent.Cmp(out[j].Spent); c != 0 {
			return c > 0
		}
		return out[i].Merchant < out[j].Merchant
	})
	if len(out) > s.opts.TopMerchants {
		out = out[:s.opts.TopMerchants]
	}
	return out, nil
}

// Biggest lists the largest single expenses in month.
func (s *Service) Biggest(ctx context.Context, month string) ([]Expense, error) {
	txns, err := s.monthExpenses(ctx, month)
	if err != nil {
		return nil, err
	}
	out := rankExpenses(txns)
	if len(out) > s.opts.Biggest {
		out = out[:s.opts.Biggest]
	}
	return out, nil
}

// Fraud lists every expense in month at or above the fraud threshold.
func (s *Service) Fraud(ctx context.Context, month string) ([]Expense, error) {
	txns, err := s.monthExpenses(ctx, month)
	if err != nil {
		return nil, err
	}
	var flagged []model.Transaction
	for _, t := range txns {
		if t.Spent().GreaterThanOrEqual(s.opts.FraudThreshold) {
			flagged = append(flagged, t)
		}
	}
	return rankExpenses(flagged), nil
}

// FraudThreshold returns the threshold Fraud applies.
func (s *Service) FraudThreshold() decimal.Decimal {
	return s.opts.FraudThreshold
}

// rankExpenses orders expenses by amount spent, largest first, keeping date
// order among equal amounts.
func rankExpenses(txns []model.Transaction) []Expense {
	out := make([]Expense, len(txns))
	for i, t := range txns {
		out[i] = Expense{Date: t.Date, Description: t.Description, Merchant: t.Merchant, Spent: t.Spent()}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Spent.GreaterThan(out[j].Spent) })
	return out
}
