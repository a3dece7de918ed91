// Package upsample densifies surfels by scattering children inside each
// parent Gaussian.
package upsample

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/df07/go-splat-surfels/pkg/compute"
	"github.com/df07/go-splat-surfels/pkg/core"
	"github.com/df07/go-splat-surfels/pkg/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultClampSigma bounds each standard-normal draw to [-3, 3]
const DefaultClampSigma = 3.0

// Options configures an Upsampler
type Options struct {
	// Seed selects the random streams. 0 draws a fresh seed per call.
	Seed uint64

	// ClampSigma bounds every normal draw; 0 means DefaultClampSigma.
	ClampSigma float64

	// NewSampler, when set, supplies the sampler for parent i in place of
	// the seeded streams.
	NewSampler func(seed uint64, parent int) core.Sampler
}

// DefaultOptions returns unseeded options with the default clamp
func DefaultOptions() Options {
	return Options{ClampSigma: DefaultClampSigma}
}

// Upsampler produces factor surfels per splat
type Upsampler struct {
	backend  geometry.Backend
	device   compute.Device
	opts     Options
	lastSeed uint64
}

// New creates an upsampler deriving parent surfels with backend and
// dispersing children on device. A nil device runs on a default CPU device.
func New(backend geometry.Backend, device compute.Device, opts Options) *Upsampler {
	if device == nil {
		device = compute.NewCPUDevice()
	}
	if opts.ClampSigma <= 0 {
		opts.ClampSigma = DefaultClampSigma
	}
	return &Upsampler{backend: backend, device: device, opts: opts}
}

// LastSeed returns the seed used by the most recent Upsample call
func (u *Upsampler) LastSeed() uint64 {
	return u.lastSeed
}

// Upsample returns factor surfels per splat. Children of splat i occupy
// out[i*factor : (i+1)*factor], share the parent normal and color, and sit at
// parent + R·(|s| ⊙ z) with z a clamped standard-normal draw. factor 1
// returns the parent surfels unchanged. factor <= 0 fails with
// core.ErrInvalidArgument.
func (u *Upsampler) Upsample(ctx context.Context, splats core.Splats, factor int) ([]core.Surfel, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("%w: upsampling factor must be positive, got %d", core.ErrInvalidArgument, factor)
	}

	if n := splats.Len(); n > 0 && factor > math.MaxInt/n {
		return nil, fmt.Errorf("%w: %d splats x%d surfels overflows", core.ErrInvalidArgument, n, factor)
	}

	parents, err := u.backend.Compute(ctx, splats)
	if err != nil {
		return nil, err
	}
	if factor == 1 {
		return parents, nil
	}

	seed := u.opts.Seed
	if seed == 0 {
		seed = rand.Uint64() | 1
	}
	u.lastSeed = seed

	n := len(parents)
	out := make([]core.Surfel, n*factor)
	err = u.device.Dispatch(ctx, n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			u.disperse(splats.At(i), parents[i], u.sampler(seed, i), out[i*factor:(i+1)*factor])
		}
	})
	if err != nil {
		return nil, fmt.Errorf("upsample: %w", err)
	}
	return out, nil
}

func (u *Upsampler) sampler(seed uint64, parent int) core.Sampler {
	if u.opts.NewSampler != nil {
		return u.opts.NewSampler(seed, parent)
	}
	return core.NewSeededSampler(seed, uint64(parent))
}

// disperse fills children with jittered copies of parent
func (u *Upsampler) disperse(s core.Splat, parent core.Surfel, sampler core.Sampler, children []core.Surfel) {
	rot := geometry.Rotation(s.Rotation)
	center := r3.Vec{X: float64(s.Position[0]), Y: float64(s.Position[1]), Z: float64(s.Position[2])}
	extent := r3.Vec{
		X: math.Abs(float64(s.Scale[0])),
		Y: math.Abs(float64(s.Scale[1])),
		Z: math.Abs(float64(s.Scale[2])),
	}

	for c := range children {
		z := sampler.Normal3D()
		local := r3.Vec{
			X: extent.X * u.clamp(z.X),
			Y: extent.Y * u.clamp(z.Y),
			Z: extent.Z * u.clamp(z.Z),
		}
		p := r3.Add(center, rot.Rotate(local))

		children[c] = core.Surfel{
			Position: [3]float32{float32(p.X), float32(p.Y), float32(p.Z)},
			Normal:   parent.Normal,
			Color:    parent.Color,
		}
	}
}

func (u *Upsampler) clamp(v float64) float64 {
	return math.Max(-u.opts.ClampSigma, math.Min(u.opts.ClampSigma, v))
}
