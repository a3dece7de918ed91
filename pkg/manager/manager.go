// Package manager composes loading, surfel computation, densification and
// export of a single splat scene.
package manager

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/df07/go-splat-surfels/pkg/core"
	"github.com/df07/go-splat-surfels/pkg/export"
	"github.com/df07/go-splat-surfels/pkg/geometry"
	"github.com/df07/go-splat-surfels/pkg/splat"
	"github.com/df07/go-splat-surfels/pkg/upsample"
)

// SplatManager owns a loaded scene and the surfel buffer derived from it.
// It is not safe for concurrent use.
type SplatManager struct {
	config Config
	logger core.Logger
	store  *splat.Store

	accelerated geometry.Backend
	reference   *geometry.ReferenceBackend
	upsampler   *upsample.Upsampler

	// replaced wholesale by each successful compute
	surfels []core.Surfel
}

// NewSplatManager loads the scene at path. Errors wrap core.ErrFormat,
// core.ErrIO or core.ErrInvalidArgument (bad config).
func NewSplatManager(path string, config Config, logger core.Logger) (*SplatManager, error) {
	if logger == nil {
		logger = core.NopLogger{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	store, err := splat.Load(path, config.SplatOptions())
	if err != nil {
		return nil, err
	}
	logger.Printf("Loaded %d splats from %s (%s) in %v\n", store.Count(), path, store.Format(), time.Since(start))

	reference := geometry.NewReference()
	m := &SplatManager{
		config:      config,
		logger:      logger,
		store:       store,
		accelerated: geometry.NewAccelerated(config.AcceleratorDevice()),
		reference:   reference,
		upsampler:   upsample.New(reference, config.CPUDevice(), config.UpsampleOptions()),
	}
	logger.Printf("Geometry backends: %s, %s\n", m.accelerated.Name(), m.reference.Name())
	return m, nil
}

// Close releases the scene
func (m *SplatManager) Close() error {
	return m.store.Close()
}

// Count returns the number of loaded splats
func (m *SplatManager) Count() int {
	return m.store.Count()
}

// SurfelCount returns the size of the current surfel buffer
func (m *SplatManager) SurfelCount() int {
	return len(m.surfels)
}

// Surfels returns the current surfel buffer. Callers must not modify it.
func (m *SplatManager) Surfels() []core.Surfel {
	return m.surfels
}

// ComputeGeometry derives one surfel per splat on the accelerated backend.
// On failure the error wraps core.ErrCompute and the previous buffer is kept.
func (m *SplatManager) ComputeGeometry(ctx context.Context) (int, error) {
	start := time.Now()
	surfels, err := m.accelerated.Compute(ctx, m.store)
	if err != nil {
		m.logger.Printf("Geometry on %s failed: %v\n", m.accelerated.Name(), err)
		return 0, err
	}
	m.surfels = surfels
	m.logger.Printf("Computed %d surfels on %s in %v\n", len(surfels), m.accelerated.Name(), time.Since(start))
	return len(surfels), nil
}

// ComputeGeometryReference derives one surfel per splat on the reference
// backend, which cannot fail.
func (m *SplatManager) ComputeGeometryReference() int {
	start := time.Now()
	m.surfels = m.reference.ComputeAll(m.store)
	m.logger.Printf("Computed %d surfels on %s in %v\n", len(m.surfels), m.reference.Name(), time.Since(start))
	return len(m.surfels)
}

// ComputeSuperResolution replaces the buffer with factor surfels per splat.
// factor <= 0 fails with core.ErrInvalidArgument and keeps the buffer.
func (m *SplatManager) ComputeSuperResolution(factor int) (int, error) {
	start := time.Now()
	surfels, err := m.upsampler.Upsample(context.Background(), m.store, factor)
	if err != nil {
		return 0, err
	}
	m.surfels = surfels
	m.logger.Printf("Upsampled %d splats x%d to %d surfels (seed %d) in %v\n",
		m.store.Count(), factor, len(surfels), m.upsampler.LastSeed(), time.Since(start))
	return len(surfels), nil
}

// ExportPLY writes the current buffer to an ascii PLY file
func (m *SplatManager) ExportPLY(path string) error {
	if err := export.SavePLY(path, m.surfels); err != nil {
		return err
	}
	m.logger.Printf("Exported %d surfels to %s\n", len(m.surfels), path)
	return nil
}

// ExportPCD writes the current buffer to an ascii PCD file
func (m *SplatManager) ExportPCD(path string) error {
	if err := export.SavePCD(path, m.surfels); err != nil {
		return err
	}
	m.logger.Printf("Exported %d surfels to %s\n", len(m.surfels), path)
	return nil
}

// WritePLY streams the current buffer as ascii PLY
func (m *SplatManager) WritePLY(w io.Writer) error {
	return export.WritePLY(w, m.surfels)
}

// SplatPosition returns the center of splat i
func (m *SplatManager) SplatPosition(i int) ([3]float32, error) {
	return m.store.Position(i)
}

// SplatRotation returns the quaternion of splat i as stored in the file
func (m *SplatManager) SplatRotation(i int) ([4]float32, error) {
	return m.store.Rotation(i)
}

// SplatScale returns the extents of splat i
func (m *SplatManager) SplatScale(i int) ([3]float32, error) {
	return m.store.Scale(i)
}

// SplatOpacity returns the opacity of splat i
func (m *SplatManager) SplatOpacity(i int) (float32, error) {
	return m.store.Opacity(i)
}

// SplatSH returns the harmonic coefficients of splat i, DC terms first
func (m *SplatManager) SplatSH(i int) ([]float32, error) {
	return m.store.SH(i)
}

func (m *SplatManager) surfel(i int) (core.Surfel, error) {
	if err := core.CheckIndex(i, len(m.surfels)); err != nil {
		return core.Surfel{}, fmt.Errorf("surfel: %w", err)
	}
	return m.surfels[i], nil
}

// SurfelPosition returns the position of surfel i
func (m *SplatManager) SurfelPosition(i int) ([3]float32, error) {
	s, err := m.surfel(i)
	return s.Position, err
}

// SurfelNormal returns the unit normal of surfel i
func (m *SplatManager) SurfelNormal(i int) ([3]float32, error) {
	s, err := m.surfel(i)
	return s.Normal, err
}

// SurfelColor returns the color of surfel i
func (m *SplatManager) SurfelColor(i int) ([3]float32, error) {
	s, err := m.surfel(i)
	return s.Color, err
}
