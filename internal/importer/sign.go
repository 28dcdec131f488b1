package importer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// typeHint maps a transaction-type cell to the sign it implies.
type typeHint struct {
	contains []string
	equals   []string
	negative bool
}

// typeHints is checked in order; debit wins over credit for text mentioning both.
var typeHints = []typeHint{
	{contains: []string{"debit", "withdraw"}, equals: []string{"dr"}, negative: true},
	{contains: []string{"credit", "deposit"}, equals: []string{"cr"}, negative: false},
}

func (h typeHint) matches(t string) bool {
	for _, c := range h.contains {
		if strings.Contains(t, c) {
			return true
		}
	}
	for _, e := range h.equals {
		if t == e {
			return true
		}
	}
	return false
}

// applyTypeHint corrects unsigned magnitudes using a type column. Only
// positive amounts are adjusted; an amount the bank already signed negative
// is left alone.
func applyTypeHint(amount decimal.Decimal, typeText string) decimal.Decimal {
	if !amount.IsPositive() {
		return amount
	}
	t := strings.ToLower(typeText)
	for _, h := range typeHints {
		if !h.matches(t) {
			continue
		}
		if h.negative {
			return amount.Abs().Neg()
		}
		return amount.Abs()
	}
	return amount
}

// signResolver turns a row into a signed amount, or reports that the row
// carries no usable movement.
type signResolver interface {
	resolve(row fieldGetter) (decimal.Decimal, bool)
}

func newSignResolver(m ColumnMapping) signResolver {
	if m.UsesAmountColumn() {
		return amountColumn{amount: m.Amount, typ: m.Type}
	}
	return debitCreditColumns{debit: m.Debit, credit: m.Credit}
}

type amountColumn struct {
	amount string
	typ    string
}

func (a amountColumn) resolve(row fieldGetter) (decimal.Decimal, bool) {
	raw, _ := row.get(a.amount)
	amount, ok := ParseMoney(raw)
	if !ok {
		return decimal.Zero, false
	}
	if a.typ != "" && !amount.IsZero() {
		t, _ := row.get(a.typ)
		amount = applyTypeHint(amount, t)
	}
	return amount, true
}

type debitCreditColumns struct {
	debit  string
	credit string
}

func (dc debitCreditColumns) resolve(row fieldGetter) (decimal.Decimal, bool) {
	debitRaw, _ := row.get(dc.debit)
	creditRaw, _ := row.get(dc.credit)

	// A blank side is normal; it counts as zero.
	debit, _ := ParseMoney(debitRaw)
	credit, _ := ParseMoney(creditRaw)

	amount := credit.Abs().Sub(debit.Abs())
	if amount.IsZero() {
		return decimal.Zero, false
	}
	return amount, true
}
