package importer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$1,234.56", "1234.56"},
		{"(45.00)", "-45.00"},
		{"(-45.00)", "-45.00"},
		{"($1,000.00)", "-1000.00"},
		{"-45.00", "-45.00"},
		{"£12", "12.00"},
		{"€ 3,000", "3000.00"},
		{"-$19.99", "-19.99"},
		{"  42  ", "42.00"},
		{"45.00-", "-45.00"},
		{"1\u00a0234.56", "1234.56"},
		{"1 234.56", "1234.56"},
		{".5", "0.50"},
	}
	for _, tt := range tests {
		got, ok := ParseMoney(tt.in)
		if assert.True(t, ok, "ParseMoney(%q) failed", tt.in) {
			assert.Equal(t, tt.want, got.StringFixed(2), "ParseMoney(%q)", tt.in)
		}
	}
}

func TestParseMoney_Failures(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "$", "()", "12.34.56", "n/a", "-"} {
		_, ok := ParseMoney(in)
		assert.False(t, ok, "ParseMoney(%q) should fail", in)
	}
}

func TestParseMoney_StrategyOrder(t *testing.T) {
	calls := []string{}
	strategies := []MoneyStrategy{
		{Name: "never", Parse: func(s string) (decimal.Decimal, bool) {
			calls = append(calls, "never")
			return decimal.Zero, false
		}},
		{Name: "always", Parse: func(s string) (decimal.Decimal, bool) {
			calls = append(calls, "always")
			return decimal.NewFromInt(9), true
		}},
		{Name: "unreached", Parse: func(s string) (decimal.Decimal, bool) {
			calls = append(calls, "unreached")
			return decimal.NewFromInt(1), true
		}},
	}

	got, ok := parseMoneyWith(strategies, "(x)")
	assert.True(t, ok)
	assert.True(t, got.Equal(decimal.NewFromInt(-9)), "parentheses apply to any strategy result")
	assert.Equal(t, []string{"never", "always"}, calls)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-15", date(2024, 1, 15)},
		{"2024-1-5", date(2024, 1, 5)},
		{" 2024-01-15 ", date(2024, 1, 15)},
		{"2024-01-15T13:45:00Z", date(2024, 1, 15)},
		{"2024-01-15 23:59:59", date(2024, 1, 15)},
		{"2024/01/15", date(2024, 1, 15)},
		{"15 Jan 2024", date(2024, 1, 15)},
		{"15-JAN-24", date(2024, 1, 15)},
		{"Jan 15, 2024", date(2024, 1, 15)},
		{"January 15, 2024", date(2024, 1, 15)},
		{"01/15/2024", date(2024, 1, 15)},
		{"1/5/2024", date(2024, 1, 5)},
		{"1/5/24", date(2024, 1, 5)},
		{"03/04/2024", date(2024, 3, 4)},
		{"01/15/2024 3:04 PM", date(2024, 1, 15)},
		{"15/01/2024", date(2024, 1, 15)},
		{"15.01.2024", date(2024, 1, 15)},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if assert.True(t, ok, "ParseDate(%q) failed", tt.in) {
			assert.Equal(t, tt.want, got, "ParseDate(%q)", tt.in)
		}
	}
}

func TestParseDate_Failures(t *testing.T) {
	for _, in := range []string{"", "  ", "someday", "2024-13-45", "31/31/2024", "Total"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, "ParseDate(%q) should fail", in)
	}
}

func TestParseDate_TruncatesToUTCDate(t *testing.T) {
	got, ok := ParseDate("2024-01-15T23:30:00-05:00")
	assert.True(t, ok)
	assert.Equal(t, date(2024, 1, 15), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseDate_CustomStrategies(t *testing.T) {
	dayFirstOnly := []DateStrategy{{Name: "day-first", Layouts: []string{"2/1/2006"}}}
	got, ok := parseDateWith(dayFirstOnly, "03/04/2024")
	assert.True(t, ok)
	assert.Equal(t, date(2024, 4, 3), got)
}
