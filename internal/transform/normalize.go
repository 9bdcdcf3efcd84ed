// Package transform normalizes text fields extracted from model output.
package transform

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeProductName collapses whitespace, strips control characters and
// applies unicode NFC normalization so that the same instrument name always
// compares equal regardless of how the model rendered it.
// Examples: "iShares Core  S&P 500 " → "iShares Core S&P 500"
func NormalizeProductName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Cc)), norm.NFC)
	normalized, _, err := transform.String(t, name)
	if err != nil {
		// Fall back to the raw value; normalization is best-effort.
		normalized = name
	}
	return strings.Join(strings.Fields(normalized), " ")
}

// NormalizeDecimalSeparator rewrites a comma decimal separator to a point,
// matching the source-document locale rules. Thousands separators are not
// supported: a value with both "," and "." is returned unchanged and left
// to fail numeric parsing.
func NormalizeDecimalSeparator(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		return strings.Replace(s, ",", ".", 1)
	}
	return s
}
