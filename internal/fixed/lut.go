package fixed

import "math"

// AngleSteps is the number of angle units in a full turn.
const AngleSteps = 256

// sinLUT is sin(2πi/256) in Q16.16. Tables are rounded once at start-up so every
// later lookup is pure integer math and identical across platforms.
var sinLUT [AngleSteps]int32

func init() {
	for i := 0; i < AngleSteps; i++ {
		rad := float64(2*math.Pi) * float64(i) / float64(AngleSteps)
		sinLUT[i] = int32(math.Round(float64(math.Sin(rad)) * One))
	}
}

// Sin returns sin of an 8-bit angle in Q16.16.
func Sin(angle uint8) int32 { return sinLUT[angle] }

// Cos returns cos of an 8-bit angle in Q16.16.
func Cos(angle uint8) int32 { return sinLUT[uint8(angle+64)] }

// Isqrt returns floor(sqrt(v)) for v >= 0.
func Isqrt(v int64) int64 {
	if v <= 0 {
		return 0
	}
	x := int64(math.Sqrt(float64(v)))
	for x*x > v {
		x--
	}
	for (x+1)*(x+1) <= v {
		x++
	}
	return x
}
