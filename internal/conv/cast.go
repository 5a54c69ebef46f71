// Package conv provides checked integer conversions for the index file
// format, where header fields cross between Go's int and the fixed-width
// types written to disk. Counts and dimensions read from a file are
// untrusted and must not wrap when narrowed.
package conv

import (
	"fmt"
	"math"
)

// IntToUint32 converts int to uint32, rejecting negatives and overflow.
func IntToUint32(v int) (uint32, error) {
	if v < 0 {
		return 0, fmt.Errorf("value %d is negative", v)
	}
	if uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("value %d exceeds uint32 range", v)
	}
	return uint32(v), nil
}

// Uint64ToInt converts uint64 to int, rejecting overflow.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(math.MaxInt) {
		return 0, fmt.Errorf("value %d exceeds int range", v)
	}
	return int(v), nil
}

// Uint32ToInt converts uint32 to int, rejecting overflow on 32-bit targets.
func Uint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("value %d exceeds int range", v)
	}
	return int(v), nil
}
