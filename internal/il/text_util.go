package il

import (
	"math"
	"strconv"
	"strings"
)

// formatFloat renders f with enough precision for round-trip parsing
// (strconv's shortest-round-trip mode), independent of host locale — Go's
// strconv always uses '.' regardless of the OS locale, so output stays
// identical across hosts with different locale settings. Whole values get
// an explicit ".0" so the token re-lexes as a float constant, not an
// integer.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// ParseFloatLiteral parses a float literal produced by formatFloat.
func ParseFloatLiteral(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// quoteString escapes s the way the text-format serializer escapes string
// literals: backslash, double-quote, and the common control characters.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// QuoteString is the exported form, reused by ilfmt's serializer.
func QuoteString(s string) string { return quoteString(s) }

// FormatFloat is the exported form, reused by ilfmt's serializer.
func FormatFloat(f float64) string { return formatFloat(f) }
