package geometry

import (
	"context"
	"fmt"
	"strings"

	"github.com/df07/go-splat-surfels/pkg/compute"
	"github.com/df07/go-splat-surfels/pkg/core"
)

// Backend turns splats into surfels, one per splat, in input order
type Backend interface {
	Name() string
	Compute(ctx context.Context, splats core.Splats) ([]core.Surfel, error)
}

// Kind selects a Backend implementation
type Kind int

const (
	Accelerated Kind = iota
	Reference
)

func (k Kind) String() string {
	switch k {
	case Accelerated:
		return "accelerated"
	case Reference:
		return "reference"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses "accelerated" or "reference"
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accelerated":
		return Accelerated, nil
	case "reference":
		return Reference, nil
	default:
		return 0, fmt.Errorf("%w: unknown geometry backend %q", core.ErrInvalidArgument, s)
	}
}

// New creates the backend of the given kind. The device is only used by
// the accelerated backend.
func New(kind Kind, device compute.Device) (Backend, error) {
	switch kind {
	case Accelerated:
		return NewAccelerated(device), nil
	case Reference:
		return NewReference(), nil
	default:
		return nil, fmt.Errorf("%w: unknown geometry backend %v", core.ErrInvalidArgument, kind)
	}
}
