package geometry

import (
	"context"
	"errors"
	"fmt"

	"github.com/df07/go-splat-surfels/pkg/compute"
	"github.com/df07/go-splat-surfels/pkg/core"
	"github.com/go-gl/mathgl/mgl32"
)

// AcceleratedBackend runs a float32 kernel on a compute device, one
// workgroup of splats per kernel call.
type AcceleratedBackend struct {
	device compute.Device
}

// NewAccelerated creates a backend dispatching onto device
func NewAccelerated(device compute.Device) *AcceleratedBackend {
	return &AcceleratedBackend{device: device}
}

func (b *AcceleratedBackend) Name() string {
	if b.device == nil {
		return "accelerated(none)"
	}
	return "accelerated(" + b.device.Name() + ")"
}

// Compute implements Backend. Any device failure yields an error wrapping
// core.ErrCompute and no surfels.
func (b *AcceleratedBackend) Compute(ctx context.Context, splats core.Splats) ([]core.Surfel, error) {
	n := splats.Len()
	if n == 0 {
		return []core.Surfel{}, nil
	}
	if b.device == nil {
		return nil, fmt.Errorf("%w: no compute device", core.ErrCompute)
	}

	out := make([]core.Surfel, n)
	err := b.device.Dispatch(ctx, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			out[i] = surfelKernel(splats.At(i))
		}
	})
	if err != nil {
		if !errors.Is(err, core.ErrCompute) {
			err = fmt.Errorf("%w: %w", core.ErrCompute, err)
		}
		return nil, fmt.Errorf("accelerated geometry: %w", err)
	}
	return out, nil
}

var basis = [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func surfelKernel(s core.Splat) core.Surfel {
	q := mgl32.Quat{W: s.Rotation.W, V: mgl32.Vec3{s.Rotation.X, s.Rotation.Y, s.Rotation.Z}}
	n := q.Normalize().Rotate(basis[MinorAxis(s.Scale)]).Normalize()

	return core.Surfel{
		Position: s.Position,
		Normal:   [3]float32(n),
		Color:    SHToRGB(s.SH),
	}
}
