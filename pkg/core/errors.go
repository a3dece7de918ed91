package core

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the pipeline wraps exactly one of
// these; test with errors.Is.
var (
	ErrFormat          = errors.New("format error")
	ErrIO              = errors.New("i/o error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCompute         = errors.New("compute error")
	ErrIndex           = errors.New("index out of range")
)

// IndexError reports an accessor index outside [0, Len).
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

// Is makes IndexError match ErrIndex.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndex
}

// CheckIndex returns an *IndexError when i is outside [0, n).
func CheckIndex(i, n int) error {
	if i < 0 || i >= n {
		return &IndexError{Index: i, Len: n}
	}
	return nil
}
