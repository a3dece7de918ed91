package core

// SH0 is the normalization constant of the zeroth real spherical harmonic, 1/(2*sqrt(pi)).
const SH0 = 0.2820947917

// Quat is a rotation quaternion in canonical (scalar first) order.
type Quat struct {
	W, X, Y, Z float32
}

// Splat is one anisotropic Gaussian primitive, reduced to the fields the
// surfel pipeline consumes.
type Splat struct {
	Position [3]float32
	Rotation Quat
	Scale    [3]float32
	Opacity  float32
	SH       [3]float32 // degree-0 (DC) coefficients, one per RGB channel
}

// Surfel is an oriented, colored point derived from exactly one Splat.
type Surfel struct {
	Position [3]float32
	Normal   [3]float32
	Color    [3]float32 // linear RGB in [0, 1]
}

// SplatSlice adapts an in-memory slice to the Splats view.
type SplatSlice []Splat

func (s SplatSlice) Len() int       { return len(s) }
func (s SplatSlice) At(i int) Splat { return s[i] }

// ColorToByte converts a [0,1] color channel to 0-255, rounding to nearest.
func ColorToByte(c float32) uint8 {
	v := float64(c)*255 + 0.5
	if v <= 0 || v != v {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
