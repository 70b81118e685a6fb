package util

import (
	"cmp"
	"math"
)

// Clamp clamps val to the range [min, max] for any ordered type.
func Clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Round2 rounds a float to two decimals (cents, kilograms to the gram/10).
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
