package importer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateStrategy is one date convention, tried layout by layout.
type DateStrategy struct {
	Name    string
	Layouts []string
}

// DefaultDateStrategies is the order conventions are tried in: ISO-like first,
// then US month-first, then day-first as the last resort. An ambiguous date
// such as 03/04/2024 therefore always reads as March 4th.
var DefaultDateStrategies = []DateStrategy{
	{
		Name: "iso",
		Layouts: []string{
			"2006-1-2",
			time.RFC3339,
			"2006-1-2T15:04:05",
			"2006-1-2 15:04:05",
			"2006-1-2 15:04",
			"2006/1/2",
			"2006.1.2",
			"2 Jan 2006",
			"2-Jan-2006",
			"2-Jan-06",
			"Jan 2, 2006",
			"Jan 2 2006",
			"January 2, 2006",
			"2 January 2006",
			"Mon, 2 Jan 2006",
		},
	},
	{
		Name: "us",
		Layouts: []string{
			"1/2/2006",
			"1/2/06",
			"1-2-2006",
			"1/2/2006 15:04:05",
			"1/2/2006 15:04",
			"1/2/2006 3:04:05 PM",
			"1/2/2006 3:04 PM",
		},
	},
	{
		Name: "day-first",
		Layouts: []string{
			"2/1/2006",
			"2/1/06",
			"2.1.2006",
			"2.1.06",
			"2-1-2006",
			"2/1/2006 15:04:05",
			"2.1.2006 15:04",
		},
	},
}

// ParseDate parses raw under DefaultDateStrategies.
func ParseDate(raw string) (time.Time, bool) {
	return parseDateWith(DefaultDateStrategies, raw)
}

func parseDateWith(strategies []DateStrategy, raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, st := range strategies {
		for _, layout := range st.Layouts {
			t, err := time.Parse(layout, s)
			if err != nil {
				continue
			}
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// MoneyStrategy parses cleaned money text (no parentheses, currency glyphs,
// or thousands commas).
type MoneyStrategy struct {
	Name  string
	Parse func(s string) (decimal.Decimal, bool)
}

// DefaultMoneyStrategies is the order number conventions are tried in.
var DefaultMoneyStrategies = []MoneyStrategy{
	{Name: "plain", Parse: parsePlainNumber},
	{Name: "trailing-sign", Parse: parseTrailingSign},
	{Name: "space-grouped", Parse: parseSpaceGrouped},
}

var currencyGlyphs = strings.NewReplacer("$", "", "£", "", "€", "", ",", "")

// ParseMoney parses raw under DefaultMoneyStrategies. A figure wrapped in
// parentheses is always negative, whatever sign it carries inside.
func ParseMoney(raw string) (decimal.Decimal, bool) {
	return parseMoneyWith(DefaultMoneyStrategies, raw)
}

func parseMoneyWith(strategies []MoneyStrategy, raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	neg := strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.Trim(s, "()")
	s = strings.TrimSpace(currencyGlyphs.Replace(s))
	if s == "" {
		return decimal.Zero, false
	}

	for _, st := range strategies {
		v, ok := st.Parse(s)
		if !ok {
			continue
		}
		if neg {
			v = v.Abs().Neg()
		}
		return v, true
	}
	return decimal.Zero, false
}

func parsePlainNumber(s string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// parseTrailingSign accepts accounting exports that write "45.00-".
func parseTrailingSign(s string) (decimal.Decimal, bool) {
	n := len(s)
	if n < 2 || (s[n-1] != '-' && s[n-1] != '+') {
		return decimal.Zero, false
	}
	return parsePlainNumber(string(s[n-1]) + strings.TrimSpace(s[:n-1]))
}

// parseSpaceGrouped accepts "1 234.56", including non-breaking spaces.
func parseSpaceGrouped(s string) (decimal.Decimal, bool) {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\'':
			return -1
		}
		return r
	}, s)
	if stripped == s {
		return decimal.Zero, false
	}
	return parsePlainNumber(stripped)
}
