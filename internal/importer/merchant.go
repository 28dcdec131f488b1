package importer

import (
	"strings"

	"github.com/cleared-dev/tally/internal/model"
)

// merchantSeparators split a description into merchant and trailing detail.
var merchantSeparators = []string{" - ", "*", "  "}

// GuessMerchant returns a short merchant label from a statement description:
// the first non-empty segment before any separator.
// "AMAZON*MKTP - order" -> "AMAZON"
func GuessMerchant(description string) string {
	d := strings.TrimSpace(description)
	if d == "" {
		return model.UnknownDescription
	}
	for _, seg := range splitAny(d, merchantSeparators) {
		if seg = strings.TrimSpace(seg); seg != "" {
			return seg
		}
	}
	return d
}

// splitAny splits s on every occurrence of any separator, trying separators
// in order at each position, and drops empty segments.
func splitAny(s string, seps []string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); {
		matched := ""
		for _, sep := range seps {
			if strings.HasPrefix(s[i:], sep) {
				matched = sep
				break
			}
		}
		if matched == "" {
			i++
			continue
		}
		if i > start {
			parts = append(parts, s[start:i])
		}
		i += len(matched)
		start = i
	}
	if start < len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}
