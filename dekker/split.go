package dekker

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
)

// Split errors.
var (
	// ErrNonFinite is returned when a NaN or infinite value is split.
	ErrNonFinite = errors.New("dekker: non-finite value")

	// ErrOutOfRange is returned when a finite value is too large for float32.
	ErrOutOfRange = errors.New("dekker: value exceeds float32 range")
)

// Pair is a compensated single-precision value. Hi is the float32 nearest to
// the source value and Lo is the float32 nearest to the remaining residual.
type Pair struct {
	Hi, Lo float32
}

// Split decomposes x into a compensated pair.
//
// Split never fails. Non-finite inputs propagate as (x, 0) and magnitudes
// beyond float32 produce an infinite Hi with a zero Lo. Use [SplitChecked]
// when such inputs must be rejected.
func Split(x float64) Pair {
	hi := float32(x)
	if !finite(hi) {
		return Pair{Hi: hi}
	}
	return Pair{Hi: hi, Lo: float32(x - float64(hi))}
}

// SplitChecked is like [Split] but reports non-finite and out-of-range
// inputs instead of propagating them.
func SplitChecked(x float64) (Pair, error) {
	if err := check(x); err != nil {
		return Pair{}, err
	}
	return Split(x), nil
}

func check(x float64) error {
	if !finite(x) {
		return fmt.Errorf("%w: %v", ErrNonFinite, x)
	}
	if math.Abs(x) > math.MaxFloat32 {
		return fmt.Errorf("%w: %v", ErrOutOfRange, x)
	}
	return nil
}

func finite[T constraints.Float](v T) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float64 returns hi + lo evaluated in double precision.
func (p Pair) Float64() float64 {
	return float64(p.Hi) + float64(p.Lo)
}

// Float32 returns hi + lo rounded to single precision, which is what a
// shader produces when it collapses a pair.
func (p Pair) Float32() float32 {
	return p.Hi + p.Lo
}

// Neg returns -p. Negation is exact.
func (p Pair) Neg() Pair {
	return Pair{Hi: -p.Hi, Lo: -p.Lo}
}

// Vec2 is a compensated 2D position.
type Vec2 struct {
	X, Y Pair
}

// SplitVec2 splits both coordinates of a world position.
func SplitVec2(x, y float64) Vec2 {
	return Vec2{X: Split(x), Y: Split(y)}
}

// SplitVec2Checked splits both coordinates, rejecting values that cannot be
// represented.
func SplitVec2Checked(x, y float64) (Vec2, error) {
	if err := check(x); err != nil {
		return Vec2{}, fmt.Errorf("x: %w", err)
	}
	if err := check(y); err != nil {
		return Vec2{}, fmt.Errorf("y: %w", err)
	}
	return SplitVec2(x, y), nil
}

// High returns the high parts as a float32 vector.
func (v Vec2) High() [2]float32 { return [2]float32{v.X.Hi, v.Y.Hi} }

// Low returns the low parts as a float32 vector.
func (v Vec2) Low() [2]float32 { return [2]float32{v.X.Lo, v.Y.Lo} }

// Float64 reconstructs the position in double precision.
func (v Vec2) Float64() [2]float64 { return [2]float64{v.X.Float64(), v.Y.Float64()} }

// Mat4 is a split 4x4 matrix stored column-major, matching mgl64.Mat4 and
// the WGSL mat4x4 memory layout.
type Mat4 [16]Pair

// SplitMat4 splits every element of m.
func SplitMat4(m mgl64.Mat4) Mat4 {
	var out Mat4
	for i, v := range m {
		out[i] = Split(v)
	}
	return out
}

// SplitMat4Checked splits every element of m, failing on the first element
// that cannot be represented.
func SplitMat4Checked(m mgl64.Mat4) (Mat4, error) {
	for i, v := range m {
		if err := check(v); err != nil {
			return Mat4{}, fmt.Errorf("element (%d,%d): %w", i%4, i/4, err)
		}
	}
	return SplitMat4(m), nil
}

// At returns the element in the given row and column.
func (m *Mat4) At(row, col int) Pair {
	return m[col*4+row]
}

// High returns the high-part matrix.
func (m *Mat4) High() mgl32.Mat4 {
	var out mgl32.Mat4
	for i, p := range m {
		out[i] = p.Hi
	}
	return out
}

// Low returns the low-part matrix.
func (m *Mat4) Low() mgl32.Mat4 {
	var out mgl32.Mat4
	for i, p := range m {
		out[i] = p.Lo
	}
	return out
}

// Float64 reconstructs the matrix in double precision.
func (m *Mat4) Float64() mgl64.Mat4 {
	var out mgl64.Mat4
	for i, p := range m {
		out[i] = p.Float64()
	}
	return out
}

// Mat3 is a split 3x3 matrix for affine 2D transforms, column-major.
type Mat3 [9]Pair

// SplitMat3 splits every element of m.
func SplitMat3(m mgl64.Mat3) Mat3 {
	var out Mat3
	for i, v := range m {
		out[i] = Split(v)
	}
	return out
}

// SplitMat3Checked splits every element of m, failing on the first element
// that cannot be represented.
func SplitMat3Checked(m mgl64.Mat3) (Mat3, error) {
	for i, v := range m {
		if err := check(v); err != nil {
			return Mat3{}, fmt.Errorf("element (%d,%d): %w", i%3, i/3, err)
		}
	}
	return SplitMat3(m), nil
}

// At returns the element in the given row and column.
func (m *Mat3) At(row, col int) Pair {
	return m[col*3+row]
}

// Mat4 embeds the affine transform into a 4x4 matrix acting on (x, y, 0, 1).
func (m *Mat3) Mat4() Mat4 {
	var out Mat4
	// columns 0, 1 and the translation column 2 map to 0, 1 and 3
	for c, dst := range [3]int{0, 1, 3} {
		out[dst*4+0] = m.At(0, c)
		out[dst*4+1] = m.At(1, c)
		out[dst*4+3] = m.At(2, c)
	}
	out[2*4+2] = Pair{Hi: 1}
	return out
}
