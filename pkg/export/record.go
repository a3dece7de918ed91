// Package export writes surfels as ascii PLY and PCD point clouds.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/df07/go-splat-surfels/pkg/core"
)

// headerFunc writes a format header for n points
type headerFunc func(w *bufio.Writer, n int)

// appendRecord appends "x y z r g b nx ny nz\n". Floats use the shortest
// representation that parses back to the same float32.
func appendRecord(buf []byte, s core.Surfel) []byte {
	for _, v := range s.Position {
		buf = strconv.AppendFloat(buf, float64(v), 'g', -1, 32)
		buf = append(buf, ' ')
	}
	for _, c := range s.Color {
		buf = strconv.AppendUint(buf, uint64(core.ColorToByte(c)), 10)
		buf = append(buf, ' ')
	}
	for k, v := range s.Normal {
		if k > 0 {
			buf = append(buf, ' ')
		}
		buf = strconv.AppendFloat(buf, float64(v), 'g', -1, 32)
	}
	return append(buf, '\n')
}

// write streams the header and one record per surfel
func write(w io.Writer, surfels []core.Surfel, header headerFunc) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	header(bw, len(surfels))

	line := make([]byte, 0, 128)
	for _, s := range surfels {
		line = appendRecord(line[:0], s)
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("%w: %v", core.ErrIO, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	return nil
}

// save creates path and writes surfels into it
func save(path string, surfels []core.Surfel, header headerFunc) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", core.ErrIO, path, err)
	}

	if err := write(f, surfels, header); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %v", core.ErrIO, path, err)
	}
	return nil
}
