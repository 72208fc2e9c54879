// Package dekker implements double-float ("df32") arithmetic: a float64 value
// is carried as an unevaluated sum of two float32 values so that GPU stages
// limited to single precision can reproduce double-precision results.
//
// The split is the Dekker/Veltkamp decomposition:
//
//	hi = float32(x)
//	lo = float32(x - float64(hi))
//
// hi + lo reproduces x to roughly 48 significand bits, far beyond what a lone
// float32 can hold. The error-free primitives [TwoSum], [QuickTwoSum] and
// [TwoProd] build compensated [Add] and [Mul] on top of the split, and the
// same sequence of float32 operations is used by the fill shader so CPU and
// GPU results agree bit for bit on conforming hardware.
//
// Every intermediate product is converted back to float32 explicitly. Go
// permits fusing x*y+z into a single FMA instruction unless the product is
// rounded by an explicit conversion, and a fused product breaks the
// error-free transformations.
package dekker
