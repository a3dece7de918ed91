package geometry

import (
	"context"

	"github.com/df07/go-splat-surfels/pkg/core"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// ReferenceBackend computes surfels sequentially in float64. It never fails.
type ReferenceBackend struct{}

// NewReference creates the reference backend
func NewReference() *ReferenceBackend {
	return &ReferenceBackend{}
}

func (b *ReferenceBackend) Name() string { return "reference" }

// Compute implements Backend. The context is not consulted.
func (b *ReferenceBackend) Compute(ctx context.Context, splats core.Splats) ([]core.Surfel, error) {
	return b.ComputeAll(splats), nil
}

// ComputeAll returns one surfel per splat
func (b *ReferenceBackend) ComputeAll(splats core.Splats) []core.Surfel {
	out := make([]core.Surfel, splats.Len())
	for i := range out {
		out[i] = ReferenceSurfel(splats.At(i))
	}
	return out
}

// ReferenceSurfel derives the surfel of a single splat
func ReferenceSurfel(s core.Splat) core.Surfel {
	axis := r3.Vec{}
	switch MinorAxis(s.Scale) {
	case 0:
		axis.X = 1
	case 1:
		axis.Y = 1
	default:
		axis.Z = 1
	}
	n := r3.Unit(Rotation(s.Rotation).Rotate(axis))

	return core.Surfel{
		Position: s.Position,
		Normal:   [3]float32{float32(n.X), float32(n.Y), float32(n.Z)},
		Color:    SHToRGB(s.SH),
	}
}

// Rotation converts a splat quaternion to a unit rotation. The zero
// quaternion maps to the identity.
func Rotation(q core.Quat) r3.Rotation {
	n := quat.Number{
		Real: float64(q.W),
		Imag: float64(q.X),
		Jmag: float64(q.Y),
		Kmag: float64(q.Z),
	}
	length := quat.Abs(n)
	if length == 0 {
		return r3.Rotation{Real: 1}
	}
	return r3.Rotation(quat.Scale(1/length, n))
}
