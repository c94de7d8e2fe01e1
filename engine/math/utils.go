package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// WrapDegrees brings an angle in degrees back into [0, 360).
func WrapDegrees(degrees float32) float32 {
	wrapped := degrees - 360.0*floor(degrees/360.0)
	if wrapped >= 360.0 {
		wrapped -= 360.0
	}
	return wrapped
}

func floor(x float32) float32 {
	i := float32(int64(x))
	if i > x {
		i--
	}
	return i
}
