package format

import (
	"strconv"
	"unicode/utf8"
)

// Filler pads fixed-width fields. U+2007 FIGURE SPACE has the width of a
// digit in most fonts and does not collapse like a regular space.
const Filler = "\u2007"

// PadLeft left-pads s with Filler up to width runes.
func PadLeft(s string, width int) string {
	n := width - utf8.RuneCountInString(s)
	for ; n > 0; n-- {
		s = Filler + s
	}
	return s
}

// Fixed renders v with exactly decimals fraction digits.
func Fixed(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// Percent renders v with decimals fraction digits, padded to width so the
// status bar does not shift between single and double digit values.
func Percent(v float64, decimals, width int) string {
	if v < 0 {
		v = 0
	}
	return PadLeft(Fixed(v, decimals), width) + "%"
}
