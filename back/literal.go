package back

import (
	"strconv"
	"strings"
)

// FloatLiteral spells a finite v as a C-like floating point literal that
// always carries a decimal point or an exponent, so it never parses as an
// integer. bitSize is 32 or 64.
func FloatLiteral(v float64, bitSize int) string {
	s := strconv.FormatFloat(v, 'g', -1, bitSize)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
