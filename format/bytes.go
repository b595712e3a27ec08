// Package format turns raw magnitudes into the short strings shown on the
// status bar.
package format

import (
	"math"
	"strconv"
	"strings"
)

var (
	binaryUnits  = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
	decimalUnits = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
)

// Options controls how Bytes renders a value.
type Options struct {
	Binary bool
	Space  bool
	Single bool
	Suffix bool

	MinFractionDigits    int
	MinIntegerDigits     int
	MinSignificantDigits int
	MaxSignificantDigits int
}

// Default is binary units, no space, a single unit and four significant digits.
func Default() Options {
	return Options{
		Binary:               true,
		Space:                false,
		Single:               true,
		Suffix:               true,
		MinFractionDigits:    1,
		MinIntegerDigits:     1,
		MinSignificantDigits: 4,
		MaxSignificantDigits: 4,
	}
}

// Option overrides one field of the default Options.
type Option func(*Options)

func WithBinary(binary bool) Option { return func(o *Options) { o.Binary = binary } }
func WithSpace(space bool) Option   { return func(o *Options) { o.Space = space } }
func WithSingle(single bool) Option { return func(o *Options) { o.Single = single } }
func WithSuffix(suffix bool) Option { return func(o *Options) { o.Suffix = suffix } }

// WithSignificant sets both significant digit bounds.
func WithSignificant(lo, hi int) Option {
	return func(o *Options) {
		o.MinSignificantDigits = lo
		o.MaxSignificantDigits = hi
	}
}

// WithFractionDigits switches to fixed fraction digits by clearing the
// significant digit bounds.
func WithFractionDigits(n int) Option {
	return func(o *Options) {
		o.MinFractionDigits = n
		o.MinSignificantDigits = 0
		o.MaxSignificantDigits = 0
	}
}

// Pretty formats bytes with Default options plus overrides.
func Pretty(bytes float64, overrides ...Option) string {
	opts := Default()
	for _, apply := range overrides {
		apply(&opts)
	}
	return Bytes(bytes, opts)
}

// Bytes formats a byte count. Negative, NaN and infinite inputs are
// treated as zero.
func Bytes(bytes float64, opts Options) string {
	if math.IsNaN(bytes) || math.IsInf(bytes, 0) || bytes < 0 {
		bytes = 0
	}
	opts = opts.normalize()

	units, base := decimalUnits, 1000.0
	if opts.Binary {
		units, base = binaryUnits, 1024.0
	}

	exp := 0
	if bytes >= 1 {
		exp = int(math.Floor(math.Log(bytes) / math.Log(base)))
		exp = min(max(exp, 0), len(units)-1)
	}
	scaled := bytes / math.Pow(base, float64(exp))

	// Rounding can carry the value into the next unit (1023.99 KiB -> 1024).
	number := opts.number(scaled)
	if v, err := strconv.ParseFloat(number, 64); err == nil && v >= base && exp < len(units)-1 {
		exp++
		scaled = bytes / math.Pow(base, float64(exp))
		number = opts.number(scaled)
	}

	if !opts.Single && exp > 0 {
		if combined, ok := opts.combined(bytes, exp, base, units); ok {
			return combined
		}
	}

	return opts.join(number, units[exp])
}

func (o Options) join(number, unit string) string {
	if !o.Suffix {
		return number
	}
	if o.Space {
		return number + " " + unit
	}
	return number + unit
}

// combined renders the whole part in the chosen unit and the remainder in
// the next smaller one, e.g. "1GiB 512MiB".
func (o Options) combined(bytes float64, exp int, base float64, units []string) (string, bool) {
	unitSize := math.Pow(base, float64(exp))
	whole := math.Floor(bytes / unitSize)
	rest := (bytes - whole*unitSize) / (unitSize / base)

	head := o.join(strconv.FormatFloat(whole, 'f', 0, 64), units[exp])
	tail := o.number(rest)
	v, err := strconv.ParseFloat(tail, 64)
	if err != nil || v == 0 {
		return head, true
	}
	if v >= base {
		return "", false
	}
	return head + " " + o.join(tail, units[exp-1]), true
}

func (o Options) normalize() Options {
	d := Default()
	minSig, maxSig := o.MinSignificantDigits, o.MaxSignificantDigits
	switch {
	case minSig == 0 && maxSig == 0:
		// fixed fraction digits mode
	case minSig < 1 || maxSig < 1 || minSig > 21 || maxSig > 21 || minSig > maxSig:
		o.MinSignificantDigits = d.MinSignificantDigits
		o.MaxSignificantDigits = d.MaxSignificantDigits
	}
	if o.MinIntegerDigits < 1 || o.MinIntegerDigits > 21 {
		o.MinIntegerDigits = d.MinIntegerDigits
	}
	if o.MinFractionDigits < 0 || o.MinFractionDigits > 20 {
		o.MinFractionDigits = d.MinFractionDigits
	}
	return o
}

// number renders v honoring the significant digit band when set, otherwise
// the fraction digit floor. The integer part is zero padded to
// MinIntegerDigits.
func (o Options) number(v float64) string {
	var intPart, fracPart string
	if o.MaxSignificantDigits > 0 {
		intPart, fracPart = significant(v, o.MinSignificantDigits, o.MaxSignificantDigits)
	} else {
		s := strconv.FormatFloat(v, 'f', o.MinFractionDigits, 64)
		intPart, fracPart, _ = strings.Cut(s, ".")
	}

	if n := o.MinIntegerDigits - len(intPart); n > 0 {
		intPart = strings.Repeat("0", n) + intPart
	}
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// significant rounds v to maxSig significant digits and drops trailing
// fractional zeros while more than minSig digits remain.
func significant(v float64, minSig, maxSig int) (string, string) {
	if v == 0 {
		return "0", strings.Repeat("0", minSig-1)
	}

	s := strconv.FormatFloat(v, 'e', maxSig-1, 64)
	mantissa, expText, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expText)
	digits := strings.Replace(mantissa, ".", "", 1)

	for len(digits) > minSig && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
	}

	if exp < 0 {
		return "0", strings.Repeat("0", -exp-1) + digits
	}
	intLen := exp + 1
	if len(digits) <= intLen {
		return digits + strings.Repeat("0", intLen-len(digits)), ""
	}
	return digits[:intLen], digits[intLen:]
}

// SplitUnit separates a formatted value into its numeric part and unit
// suffix. "512.0MiB" yields ("512.0", "MiB").
func SplitUnit(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if (c >= '0' && c <= '9') || c == '.' {
			break
		}
		i--
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i:])
}
