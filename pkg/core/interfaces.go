package core

import "gonum.org/v1/gonum/spatial/r3"

// Logger interface for pipeline logging
type Logger interface {
	Printf(format string, args ...interface{})
}

// Splats is a random-access view over a loaded scene.
// At does not bounds-check; callers iterate over [0, Len()).
type Splats interface {
	Len() int
	At(i int) Splat
}

// Sampler provides random numbers for stochastic densification.
// Can be swapped out for deterministic testing or different distributions.
type Sampler interface {
	// Normal3D returns three independent standard-normal values
	Normal3D() r3.Vec
}
