package core

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// RandomSampler draws standard-normal values from a math/rand/v2 source
type RandomSampler struct {
	normal distuv.Normal
}

// NewRandomSampler creates a sampler drawing from src
func NewRandomSampler(src rand.Source) *RandomSampler {
	return &RandomSampler{
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// NewSeededSampler creates a sampler on an independent PCG stream.
// The same (seed, stream) pair always yields the same sequence.
func NewSeededSampler(seed, stream uint64) *RandomSampler {
	return NewRandomSampler(rand.NewPCG(seed, stream))
}

// Normal3D returns three independent N(0, 1) values
func (r *RandomSampler) Normal3D() r3.Vec {
	return r3.Vec{X: r.normal.Rand(), Y: r.normal.Rand(), Z: r.normal.Rand()}
}
