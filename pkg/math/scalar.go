package math

import "math"

// Pi as float32.
const Pi = float32(math.Pi)

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Fract returns x reduced into [0, 1).
func Fract(x float32) float32 {
	f := x - float32(math.Floor(float64(x)))
	if f >= 1 {
		return 0
	}
	return f
}

// Sin is a float32 wrapper over math.Sin.
func Sin(x float32) float32 { return float32(math.Sin(float64(x))) }

// Cos is a float32 wrapper over math.Cos.
func Cos(x float32) float32 { return float32(math.Cos(float64(x))) }
