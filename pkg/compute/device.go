package compute

import (
	"context"
	"fmt"
	"runtime"

	"github.com/df07/go-splat-surfels/pkg/core"
)

// DefaultWorkgroupSize is the number of elements handed to one kernel call
const DefaultWorkgroupSize = 64

// Device runs data-parallel kernels. Dispatch splits [0, n) into workgroups
// and returns once every workgroup has run or the first one failed. Errors
// wrap core.ErrCompute.
type Device interface {
	Name() string
	Dispatch(ctx context.Context, n int, kernel Kernel) error
}

// NumWorkgroups returns the number of workgroups of the given size needed to
// cover n elements
func NumWorkgroups(n, size int) int {
	if n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// CPUDevice dispatches kernels onto a worker pool
type CPUDevice struct {
	Workers       int // 0 means runtime.NumCPU()
	WorkgroupSize int // 0 means DefaultWorkgroupSize
}

// NewCPUDevice creates a CPU device with default sizing
func NewCPUDevice() *CPUDevice {
	return &CPUDevice{}
}

func (d *CPUDevice) Name() string {
	return fmt.Sprintf("cpu(%d workers)", d.workers())
}

func (d *CPUDevice) workers() int {
	if d.Workers > 0 {
		return d.Workers
	}
	return runtime.NumCPU()
}

func (d *CPUDevice) workgroupSize() int {
	if d.WorkgroupSize > 0 {
		return d.WorkgroupSize
	}
	return DefaultWorkgroupSize
}

// Dispatch runs kernel over [0, n) in workgroups
func (d *CPUDevice) Dispatch(ctx context.Context, n int, kernel Kernel) error {
	if n <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrCompute, err)
	}

	size := d.workgroupSize()
	groups := NumWorkgroups(n, size)

	pool := NewWorkerPool(ctx, kernel, min(d.workers(), groups), groups)
	pool.Start()
	for g := 0; g < groups; g++ {
		lo := g * size
		pool.SubmitTask(Workgroup{ID: g, Lo: lo, Hi: min(lo+size, n)})
	}

	if err := pool.Stop(); err != nil {
		return fmt.Errorf("%w: %s: %w", core.ErrCompute, d.Name(), err)
	}
	return nil
}

// UnavailableDevice stands in for an accelerator that could not be
// initialized. Every dispatch fails.
type UnavailableDevice struct {
	Reason string
}

func (d UnavailableDevice) Name() string {
	return "unavailable"
}

func (d UnavailableDevice) Dispatch(ctx context.Context, n int, kernel Kernel) error {
	reason := d.Reason
	if reason == "" {
		reason = "no compute device"
	}
	return fmt.Errorf("%w: %s", core.ErrCompute, reason)
}
