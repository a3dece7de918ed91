package geometry

import (
	"math"

	"github.com/df07/go-splat-surfels/pkg/core"
)

// SHToRGB decodes the degree-0 harmonic of each channel to a base color
// clamped to [0, 1].
func SHToRGB(sh [3]float32) [3]float32 {
	var rgb [3]float32
	for k, c := range sh {
		rgb[k] = clamp01(0.5 + core.SH0*c)
	}
	return rgb
}

func clamp01(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v > 0 {
		return v
	}
	return 0 // also NaN
}

// MinorAxis returns the index of the smallest extent. Ties resolve to the
// later axis: x wins only when strictly smallest, then y if strictly below z.
func MinorAxis(scale [3]float32) int {
	a0 := math.Abs(float64(scale[0]))
	a1 := math.Abs(float64(scale[1]))
	a2 := math.Abs(float64(scale[2]))
	if a0 < a1 && a0 < a2 {
		return 0
	}
	if a1 < a2 {
		return 1
	}
	return 2
}
