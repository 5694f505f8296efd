// Package normalize converts raw ledger field text into canonical comparable
// forms: Chilean tax IDs (RUT), invoice numbers, and peso amounts.
package normalize

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RUT normalizes a Chilean tax identifier: strips dots and dashes,
// upper-cases, trims. Empty or absent input yields the empty string.
func RUT(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.ToUpper(strings.TrimSpace(s))
}

// InvoiceNumber trims and strips leading zeros. Used both for key derivation
// and for the relaxed invoice-only comparison during auditing.
func InvoiceNumber(s string) string {
	return strings.TrimLeft(strings.TrimSpace(s), "0")
}

// Key derives the matching key for a document: normalized RUT plus
// normalized invoice number. The key is the sole identity used for
// cross-source comparison.
func Key(rut, factura string) string {
	return RUT(rut) + "_" + InvoiceNumber(factura)
}

// Amount parses a locale-formatted peso amount into an integer. Every
// character that is not a digit, comma, period, or minus sign is stripped;
// periods are then removed outright (Chilean thousands separator, never a
// decimal point in these registers); the remainder is parsed base 10. Any
// parse failure yields 0.
func Amount(s string) int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ".", "")
	if cleaned == "" {
		return 0
	}
	n, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases s and removes combining accents, so that keyword checks
// treat "período" and "periodo", or "crédito" and "credito", as equal.
func Fold(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}
