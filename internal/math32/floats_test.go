package math32

import (
	"math"
	"testing"
)

func TestDot(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}

	if got := Dot(a, b); got != 32 {
		t.Errorf("Dot() = %v, want 32", got)
	}
}

func TestSquaredL2(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 6, 3}

	if got := SquaredL2(a, b); got != 25 {
		t.Errorf("SquaredL2() = %v, want 25", got)
	}

	if got := SquaredL2(a, a); got != 0 {
		t.Errorf("SquaredL2(a, a) = %v, want 0", got)
	}
}

func TestScaleInPlace(t *testing.T) {
	a := []float32{1, 2, 3}
	ScaleInPlace(a, 0.5)

	want := []float32{0.5, 1, 1.5}
	for i := range a {
		if math.Abs(float64(a[i]-want[i])) > 1e-6 {
			t.Errorf("ScaleInPlace()[%d] = %v, want %v", i, a[i], want[i])
		}
	}
}

func TestHamming(t *testing.T) {
	tests := []struct {
		name string
		a, b []byte
		want int
	}{
		{name: "identical", a: []byte{0xff, 0x00}, b: []byte{0xff, 0x00}, want: 0},
		{name: "all bits differ", a: []byte{0xff}, b: []byte{0x00}, want: 8},
		{name: "mixed", a: []byte{0b1010_1010}, b: []byte{0b0101_0101}, want: 8},
		{name: "single bit", a: []byte{0x01, 0x00}, b: []byte{0x00, 0x00}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Hamming(tt.a, tt.b); got != tt.want {
				t.Errorf("Hamming() = %d, want %d", got, tt.want)
			}
		})
	}
}
