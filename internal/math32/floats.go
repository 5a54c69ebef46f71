// Package math32 provides float32 and bit-vector distance kernels used by
// the graph engine.
package math32

import "math/bits"

// Dot calculates the dot product of two vectors.
func Dot(a, b []float32) float32 {
	var ret float32
	for i := range a {
		ret += a[i] * b[i]
	}
	return ret
}

// SquaredL2 calculates the squared L2 distance between two vectors.
func SquaredL2(a, b []float32) float32 {
	var distance float32
	for i := range a {
		d := a[i] - b[i]
		distance += d * d
	}
	return distance
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}

// Hamming counts the differing bits between two equal-length codes.
func Hamming(a, b []byte) int {
	var distance int
	for i := range a {
		distance += bits.OnesCount8(a[i] ^ b[i])
	}
	return distance
}
