package dekker

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestTwoSumExact(t *testing.T) {
	tests := []struct {
		a, b float32
	}{
		{1, 1e-8},
		{1e8, 0.123},
		{-3.5, 3.5},
		{16777216, 1},
		{0.1, 0.2},
		{1e-3, -7e-11},
	}
	for _, tt := range tests {
		s, e := TwoSum(tt.a, tt.b)
		if s != tt.a+tt.b {
			t.Errorf("TwoSum(%v, %v) s = %v, want fl(a+b) = %v", tt.a, tt.b, s, tt.a+tt.b)
		}
		if float64(s)+float64(e) != float64(tt.a)+float64(tt.b) {
			t.Errorf("TwoSum(%v, %v) = (%v, %v) is not exact", tt.a, tt.b, s, e)
		}
	}
}

func TestQuickTwoSumExact(t *testing.T) {
	s, e := QuickTwoSum(16777216, 1)
	if s != 16777216 || e != 1 {
		t.Errorf("QuickTwoSum(2^24, 1) = (%v, %v), want (16777216, 1)", s, e)
	}
}

func TestTwoProdExact(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		a := float32((rng.Float64() - 0.5) * 2e6)
		b := float32((rng.Float64() - 0.5) * 2e-2)
		p, e := TwoProd(a, b)
		// products of two 24-bit significands are exact in float64
		want := float64(a) * float64(b)
		if float64(p)+float64(e) != want {
			t.Fatalf("TwoProd(%v, %v) = (%v, %v), sum %v, want %v", a, b, p, e, float64(p)+float64(e), want)
		}
	}
}

func TestAddCancellation(t *testing.T) {
	a := Split(1e8 + 0.123456789)
	b := Split(1e8)
	got := Sub(a, b).Float64()
	want := a.Float64() - b.Float64()
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Sub = %v, want %v", got, want)
	}
}

func TestAddAccuracy(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 1000; i++ {
		x := (rng.Float64() - 0.5) * 2e7
		y := (rng.Float64() - 0.5) * 2e3
		a, b := Split(x), Split(y)
		got := Add(a, b).Float64()
		want := a.Float64() + b.Float64()
		if math.Abs(got-want) > math.Abs(want)*math.Ldexp(1, -44) {
			t.Fatalf("Add(%v, %v) = %v, want %v", x, y, got, want)
		}
	}
}

func TestMulAccuracy(t *testing.T) {
	tests := []struct {
		name string
		x, y float64
	}{
		{"resolution scale", 1113195.4907932735, 1 / 0.01866138385868561},
		{"small", 0.1, 0.3},
		{"clip scale", -6446275.841017161, 2.0 / 256 / 0.01866138385868561},
		{"negative", -1.0 / 3.0, 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := Split(tt.x), Split(tt.y)
			want := a.Float64() * b.Float64()
			for _, prec := range []Precision{PrecisionFull, PrecisionFast} {
				got := MulPrec(a, b, prec).Float64()
				if rel := math.Abs(got-want) / math.Abs(want); rel > math.Ldexp(1, -43) {
					t.Errorf("MulPrec(%s) relative error %g", prec, rel)
				}
			}
			if Mul(a, b) != MulPrec(a, b, PrecisionFull) {
				t.Error("Mul must keep every cross term")
			}
			if MulFast(a, b) != MulPrec(a, b, PrecisionFast) {
				t.Error("MulFast must drop lo*lo")
			}
		})
	}
}

func TestMulBeatsFloat32(t *testing.T) {
	x, y := 1113195.4907932735, 53.58691047271258
	want := x * y
	naive := float64(float32(x) * float32(y))
	comp := Mul(Split(x), Split(y)).Float64()
	if math.Abs(comp-want) >= math.Abs(naive-want) {
		t.Errorf("compensated error %g not below float32 error %g", math.Abs(comp-want), math.Abs(naive-want))
	}
	if math.Abs(comp-want) > 1e-4 {
		t.Errorf("compensated product error %g too large", math.Abs(comp-want))
	}
}

func TestPrecisionString(t *testing.T) {
	if PrecisionFull.String() != "full" || PrecisionFast.String() != "fast" || Precision(9).String() != "unknown" {
		t.Error("unexpected precision names")
	}
}

func BenchmarkSplit(b *testing.B) {
	x := 1113195.4907932735
	var p Pair
	for i := 0; i < b.N; i++ {
		p = Split(x + float64(i))
	}
	_ = p
}

func BenchmarkMul(b *testing.B) {
	x, y := Split(1113195.4907932735), Split(53.58691047271258)
	var p Pair
	for i := 0; i < b.N; i++ {
		p = Mul(x, y)
	}
	_ = p
}

func BenchmarkAdd(b *testing.B) {
	x, y := Split(1113195.4907932735), Split(-6446275.841017161)
	var p Pair
	for i := 0; i < b.N; i++ {
		p = Add(x, y)
	}
	_ = p
}
