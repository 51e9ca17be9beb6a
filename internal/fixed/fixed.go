// Package fixed holds the saturating integer arithmetic used by the motion engine.
//
// Velocities, accelerations and distance budgets are Q16.16 values stored in int32.
// Every operation on the physics path saturates instead of wrapping: a wrapped
// velocity would silently teleport a vehicle to the other end of the track.
package fixed

import "math"

// Q16.16 constants
const (
	Shift = 16
	One   = 1 << Shift
	Half  = 1 << (Shift - 1)
)

// FromInt converts an integer to Q16.16, saturating.
func FromInt(i int) int32 { return Clamp64(int64(i) << Shift) }

// ToInt truncates a Q16.16 value toward negative infinity.
func ToInt(f int32) int { return int(f >> Shift) }

// Clamp64 narrows v to the int32 range.
func Clamp64(v int64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// SatAdd adds without wrapping.
func SatAdd(a, b int32) int32 { return Clamp64(int64(a) + int64(b)) }

// SatSub subtracts without wrapping.
func SatSub(a, b int32) int32 { return Clamp64(int64(a) - int64(b)) }

// SatMul multiplies two Q16.16 values without wrapping.
func SatMul(a, b int32) int32 { return Clamp64((int64(a) * int64(b)) >> Shift) }

// MulInt multiplies a value by a plain integer factor without wrapping.
func MulInt(a int32, k int32) int32 { return Clamp64(int64(a) * int64(k)) }

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Abs(v int32) int32 {
	if v == math.MinInt32 {
		return math.MaxInt32
	}
	if v < 0 {
		return -v
	}
	return v
}

func Sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// Halve divides by two rounding toward zero, so a positive and a negative
// velocity of equal magnitude stay symmetric.
func Halve(v int32) int32 { return v / 2 }
