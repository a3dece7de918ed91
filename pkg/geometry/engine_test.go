package geometry

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/df07/go-splat-surfels/pkg/compute"
	"github.com/df07/go-splat-surfels/pkg/core"
	"github.com/df07/go-splat-surfels/pkg/splat/splattest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceSurfel_KnownRotations(t *testing.T) {
	const h = 0.70710677
	tests := []struct {
		name       string
		rotation   core.Quat
		scale      [3]float32
		wantNormal [3]float32
	}{
		{"identity z", core.Quat{W: 1}, [3]float32{1, 1, 0.01}, [3]float32{0, 0, 1}},
		{"identity x", core.Quat{W: 1}, [3]float32{0.01, 1, 1}, [3]float32{1, 0, 0}},
		{"zero quaternion is identity", core.Quat{}, [3]float32{1, 0.01, 1}, [3]float32{0, 1, 0}},
		{"quarter turn about z", core.Quat{W: h, Z: h}, [3]float32{0.01, 1, 1}, [3]float32{0, 1, 0}},
		{"quarter turn about x", core.Quat{W: h, X: h}, [3]float32{1, 1, 0.01}, [3]float32{0, -1, 0}},
		{"unnormalized", core.Quat{W: 2, Z: 2}, [3]float32{0.01, 1, 1}, [3]float32{0, 1, 0}},
		{"half turn about y", core.Quat{Y: 1}, [3]float32{1, 1, 0.01}, [3]float32{0, 0, -1}},
	}

	opt := cmpopts.EquateApprox(0, 1e-6)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := core.Splat{Position: [3]float32{1, 2, 3}, Rotation: tt.rotation, Scale: tt.scale}

			got := ReferenceSurfel(s)
			assert.Equal(t, s.Position, got.Position)
			if diff := cmp.Diff(tt.wantNormal, got.Normal, opt); diff != "" {
				t.Errorf("reference normal mismatch (-want +got):\n%s", diff)
			}

			acc := surfelKernel(s)
			if diff := cmp.Diff(tt.wantNormal, acc.Normal, opt); diff != "" {
				t.Errorf("kernel normal mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func assertValidSurfels(t *testing.T, splats []core.Splat, surfels []core.Surfel) {
	t.Helper()
	require.Len(t, surfels, len(splats))
	for i, s := range surfels {
		assert.Equal(t, splats[i].Position, s.Position, "surfel %d position", i)
		n := math.Sqrt(float64(s.Normal[0]*s.Normal[0] + s.Normal[1]*s.Normal[1] + s.Normal[2]*s.Normal[2]))
		assert.InDelta(t, 1.0, n, 1e-3, "surfel %d normal length", i)
		for k, c := range s.Color {
			assert.True(t, c >= 0 && c <= 1, "surfel %d color[%d] = %v", i, k, c)
		}
	}
}

func TestBackends_Parity(t *testing.T) {
	splats := splattest.RandomSplats(1000, 7)

	ref, err := NewReference().Compute(context.Background(), core.SplatSlice(splats))
	require.NoError(t, err)
	assertValidSurfels(t, splats, ref)

	acc, err := NewAccelerated(&compute.CPUDevice{Workers: 4}).Compute(context.Background(), core.SplatSlice(splats))
	require.NoError(t, err)
	assertValidSurfels(t, splats, acc)

	normals := cmp.Comparer(func(a, b [3]float32) bool {
		for k := range a {
			if math.Abs(float64(a[k]-b[k])) > 1e-3 {
				return false
			}
		}
		return true
	})
	if diff := cmp.Diff(ref, acc, normals); diff != "" {
		t.Errorf("accelerated surfels differ from reference (-ref +acc):\n%s", diff)
	}
}

func TestAccelerated_DeviceFailures(t *testing.T) {
	splats := core.SplatSlice(splattest.RandomSplats(10, 1))
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		backend *AcceleratedBackend
		ctx     context.Context
	}{
		{"no device", NewAccelerated(nil), context.Background()},
		{"unavailable", NewAccelerated(compute.UnavailableDevice{}), context.Background()},
		{"cancelled", NewAccelerated(compute.NewCPUDevice()), cancelled},
		{"foreign device error", NewAccelerated(failingDevice{}), context.Background()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.backend.Compute(tt.ctx, splats)
			assert.ErrorIs(t, err, core.ErrCompute)
			assert.Nil(t, out)
		})
	}
}

type failingDevice struct{}

func (failingDevice) Name() string { return "failing" }
func (failingDevice) Dispatch(ctx context.Context, n int, kernel compute.Kernel) error {
	return errors.New("device lost")
}

func TestBackends_EmptyInput(t *testing.T) {
	for _, b := range []Backend{NewReference(), NewAccelerated(compute.UnavailableDevice{})} {
		out, err := b.Compute(context.Background(), core.SplatSlice{})
		require.NoError(t, err, b.Name())
		assert.Empty(t, out, b.Name())
	}
}

func TestNewAndParseKind(t *testing.T) {
	for _, name := range []string{"accelerated", "Reference"} {
		kind, err := ParseKind(name)
		require.NoError(t, err)

		b, err := New(kind, compute.NewCPUDevice())
		require.NoError(t, err)
		assert.Contains(t, b.Name(), kind.String())
	}

	_, err := ParseKind("gpu")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = New(Kind(9), nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}
