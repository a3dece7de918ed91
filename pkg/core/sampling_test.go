package core

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestSeededSampler_Reproducible(t *testing.T) {
	a := NewSeededSampler(42, 7)
	b := NewSeededSampler(42, 7)

	for i := 0; i < 16; i++ {
		require.Equal(t, a.Normal3D(), b.Normal3D(), "draw %d", i)
	}
}

func TestSeededSampler_StreamsDiffer(t *testing.T) {
	a := NewSeededSampler(42, 0)
	b := NewSeededSampler(42, 1)

	assert.NotEqual(t, a.Normal3D(), b.Normal3D())
}

func TestRandomSampler_SharesSeededStream(t *testing.T) {
	a := NewRandomSampler(rand.NewPCG(1, 2))
	b := NewSeededSampler(1, 2)

	for i := 0; i < 8; i++ {
		require.Equal(t, a.Normal3D(), b.Normal3D(), "draw %d", i)
	}
}

func TestRandomSampler_NormalMoments(t *testing.T) {
	s := NewSeededSampler(99, 0)
	const n = 20000
	xs := make([]float64, 0, 3*n)
	for i := 0; i < n; i++ {
		v := s.Normal3D()
		xs = append(xs, v.X, v.Y, v.Z)
	}

	mean, std := stat.MeanStdDev(xs, nil)
	assert.InDelta(t, 0.0, mean, 0.03)
	assert.InDelta(t, 1.0, std, 0.03)
}
