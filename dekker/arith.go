package dekker

// splitter is 2^12 + 1. Multiplying by it splits a 24-bit float32
// significand into two halves whose products are exact in float32.
const splitter = 4097

// Precision selects how many cross terms [MulPrec] keeps.
type Precision int

const (
	// PrecisionFull keeps every cross term including lo*lo.
	PrecisionFull Precision = iota

	// PrecisionFast drops the lo*lo term. The result is still far more
	// accurate than plain float32 but loses a few of the lowest bits.
	PrecisionFast
)

// String returns the precision name.
func (p Precision) String() string {
	switch p {
	case PrecisionFull:
		return "full"
	case PrecisionFast:
		return "fast"
	default:
		return "unknown"
	}
}

// TwoSum returns s = fl(a+b) and the exact rounding error e, so that
// a + b == s + e holds exactly.
func TwoSum(a, b float32) (s, e float32) {
	s = a + b
	bb := s - a
	e = (a - (s - bb)) + (b - bb)
	return s, e
}

// QuickTwoSum is TwoSum for |a| >= |b|. It needs three operations instead
// of six but is only error-free when the magnitude precondition holds.
func QuickTwoSum(a, b float32) (s, e float32) {
	s = a + b
	e = b - (s - a)
	return s, e
}

// veltkamp splits a into hi + lo with at most 12 significant bits each.
func veltkamp(a float32) (hi, lo float32) {
	c := float32(splitter * a)
	hi = c - float32(c-a)
	lo = a - hi
	return hi, lo
}

// TwoProd returns p = fl(a*b) and the exact rounding error e using
// Dekker's product, without relying on a fused multiply-add.
func TwoProd(a, b float32) (p, e float32) {
	p = float32(a * b)
	ah, al := veltkamp(a)
	bh, bl := veltkamp(b)
	e = float32(ah*bh) - p
	e += float32(ah * bl)
	e += float32(al * bh)
	e += float32(al * bl)
	return p, e
}

// Add returns a + b with a second-order compensated sum: the high parts and
// the low parts are each summed error-free and the result is renormalized
// twice.
func Add(a, b Pair) Pair {
	s, e := TwoSum(a.Hi, b.Hi)
	t, f := TwoSum(a.Lo, b.Lo)
	e += t
	s, e = QuickTwoSum(s, e)
	e += f
	s, e = QuickTwoSum(s, e)
	return Pair{Hi: s, Lo: e}
}

// Sub returns a - b.
func Sub(a, b Pair) Pair {
	return Add(a, b.Neg())
}

// Mul returns a * b keeping every cross term.
func Mul(a, b Pair) Pair {
	return MulPrec(a, b, PrecisionFull)
}

// MulFast returns a * b without the lo*lo term.
func MulFast(a, b Pair) Pair {
	return MulPrec(a, b, PrecisionFast)
}

// MulPrec returns a * b. The high product is computed error-free with
// [TwoProd] and the hi*lo and lo*hi cross terms are folded into its error;
// the lo*lo term is added only at [PrecisionFull].
func MulPrec(a, b Pair, prec Precision) Pair {
	p, e := TwoProd(a.Hi, b.Hi)
	cross := float32(a.Hi*b.Lo) + float32(a.Lo*b.Hi)
	if prec == PrecisionFull {
		cross += float32(a.Lo * b.Lo)
	}
	e += cross
	p, e = QuickTwoSum(p, e)
	return Pair{Hi: p, Lo: e}
}
