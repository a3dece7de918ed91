package manager

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/df07/go-splat-surfels/pkg/compute"
	"github.com/df07/go-splat-surfels/pkg/core"
	"github.com/df07/go-splat-surfels/pkg/splat"
	"github.com/df07/go-splat-surfels/pkg/upsample"
	"github.com/pelletier/go-toml/v2"
)

// Accelerator names accepted in Config.Accelerator
const (
	AcceleratorCPU  = "cpu"
	AcceleratorNone = "none"
)

// Config contains all pipeline settings
type Config struct {
	Accelerator     string  `toml:"accelerator"`      // device for the accelerated backend: "cpu" or "none"
	Workers         int     `toml:"workers"`          // 0 = runtime.NumCPU()
	WorkgroupSize   int     `toml:"workgroup_size"`   // elements per kernel call
	Seed            uint64  `toml:"seed"`             // super-resolution seed, 0 = random
	ClampSigma      float64 `toml:"clamp_sigma"`      // bound on each normal draw
	QuaternionOrder string  `toml:"quaternion_order"` // "xyzw" or "wxyz"
	LogScale        bool    `toml:"log_scale"`        // scales are stored as logarithms
	MemoryMap       bool    `toml:"memory_map"`       // map binary scenes read-only
}

// DefaultConfig returns sensible default settings
func DefaultConfig() Config {
	return Config{
		Accelerator:     AcceleratorCPU,
		Workers:         0,
		WorkgroupSize:   compute.DefaultWorkgroupSize,
		Seed:            0,
		ClampSigma:      upsample.DefaultClampSigma,
		QuaternionOrder: splat.OrderXYZW,
		LogScale:        false,
		MemoryMap:       true,
	}
}

const maxConfigSize = 1 * 1024 * 1024

// LoadConfig reads a TOML config file. Keys missing from the file keep their
// default values; unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".toml" {
		return cfg, fmt.Errorf("%w: config file must have .toml extension, got %q", core.ErrInvalidArgument, ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("%w: failed to stat config file: %v", core.ErrIO, err)
	}
	if info.Size() > maxConfigSize {
		return cfg, fmt.Errorf("%w: config file too large: %d bytes (max %d)", core.ErrInvalidArgument, info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("%w: failed to read config file: %v", core.ErrIO, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: failed to parse config TOML: %v", core.ErrFormat, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks every field. Errors wrap core.ErrInvalidArgument.
func (c Config) Validate() error {
	switch c.Accelerator {
	case AcceleratorCPU, AcceleratorNone:
	default:
		return fmt.Errorf("%w: accelerator must be %q or %q, got %q", core.ErrInvalidArgument, AcceleratorCPU, AcceleratorNone, c.Accelerator)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", core.ErrInvalidArgument, c.Workers)
	}
	if c.WorkgroupSize < 0 {
		return fmt.Errorf("%w: workgroup_size must be non-negative, got %d", core.ErrInvalidArgument, c.WorkgroupSize)
	}
	if c.ClampSigma < 0 {
		return fmt.Errorf("%w: clamp_sigma must be non-negative, got %f", core.ErrInvalidArgument, c.ClampSigma)
	}
	return c.SplatOptions().Validate()
}

// SplatOptions returns the scene loading options
func (c Config) SplatOptions() splat.Options {
	return splat.Options{
		QuaternionOrder: c.QuaternionOrder,
		LogScale:        c.LogScale,
		MemoryMap:       c.MemoryMap,
	}
}

// UpsampleOptions returns the super-resolution options
func (c Config) UpsampleOptions() upsample.Options {
	return upsample.Options{
		Seed:       c.Seed,
		ClampSigma: c.ClampSigma,
	}
}

// CPUDevice returns the worker-pool device described by the config
func (c Config) CPUDevice() *compute.CPUDevice {
	return &compute.CPUDevice{Workers: c.Workers, WorkgroupSize: c.WorkgroupSize}
}

// AcceleratorDevice returns the device backing the accelerated backend
func (c Config) AcceleratorDevice() compute.Device {
	if c.Accelerator == AcceleratorNone {
		return compute.UnavailableDevice{Reason: "accelerator disabled by configuration"}
	}
	return c.CPUDevice()
}
