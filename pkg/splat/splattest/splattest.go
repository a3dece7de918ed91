// Package splattest writes small 3DGS scene files for tests.
package splattest

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/df07/go-splat-surfels/pkg/core"
)

// Scene describes how splats are laid out in the generated file
type Scene struct {
	Format string // "ascii" or "binary_little_endian"
	Rest   int    // number of f_rest_* properties, filled with k/100
	WXYZ   bool   // store the scalar part in rot_0
}

// Properties returns the vertex property names in file order
func (sc Scene) Properties() []string {
	props := []string{"x", "y", "z", "nx", "ny", "nz", "f_dc_0", "f_dc_1", "f_dc_2"}
	for k := 0; k < sc.Rest; k++ {
		props = append(props, fmt.Sprintf("f_rest_%d", k))
	}
	return append(props, "opacity", "scale_0", "scale_1", "scale_2", "rot_0", "rot_1", "rot_2", "rot_3")
}

func (sc Scene) record(s core.Splat) []float32 {
	rec := []float32{
		s.Position[0], s.Position[1], s.Position[2],
		0, 0, 0,
		s.SH[0], s.SH[1], s.SH[2],
	}
	for k := 0; k < sc.Rest; k++ {
		rec = append(rec, float32(k)/100)
	}
	rec = append(rec, s.Opacity, s.Scale[0], s.Scale[1], s.Scale[2])
	q := s.Rotation
	if sc.WXYZ {
		return append(rec, q.W, q.X, q.Y, q.Z)
	}
	return append(rec, q.X, q.Y, q.Z, q.W)
}

// Write encodes splats as a PLY scene
func (sc Scene) Write(w io.Writer, splats []core.Splat) error {
	format := sc.Format
	if format == "" {
		format = "binary_little_endian"
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\nformat %s 1.0\nelement vertex %d\n", format, len(splats))
	for _, p := range sc.Properties() {
		fmt.Fprintf(bw, "property float %s\n", p)
	}
	bw.WriteString("end_header\n")

	for _, s := range splats {
		rec := sc.record(s)
		if format == "ascii" {
			for k, v := range rec {
				if k > 0 {
					bw.WriteByte(' ')
				}
				bw.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
			}
			bw.WriteByte('\n')
			continue
		}
		if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes splats into a scene file under t.TempDir and returns its path
func (sc Scene) WriteFile(tb testing.TB, splats []core.Splat) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "scene.ply")
	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("Failed to create scene file: %v", err)
	}
	defer f.Close()

	if err := sc.Write(f, splats); err != nil {
		tb.Fatalf("Failed to write scene file: %v", err)
	}
	return path
}

// WriteFile writes a binary scene with the default layout
func WriteFile(tb testing.TB, splats []core.Splat) string {
	tb.Helper()
	return Scene{}.WriteFile(tb, splats)
}

// RandomSplats returns n splats with unit quaternions, positive scales and
// DC terms spanning the clamp range.
func RandomSplats(n int, seed uint64) []core.Splat {
	r := rand.New(rand.NewPCG(seed, 0))
	uniform := func(lo, hi float64) float32 { return float32(lo + (hi-lo)*r.Float64()) }

	splats := make([]core.Splat, n)
	for i := range splats {
		w, x, y, z := r.NormFloat64(), r.NormFloat64(), r.NormFloat64(), r.NormFloat64()
		norm := math.Sqrt(w*w + x*x + y*y + z*z)
		splats[i] = core.Splat{
			Position: [3]float32{uniform(-10, 10), uniform(-10, 10), uniform(-10, 10)},
			Rotation: core.Quat{W: float32(w / norm), X: float32(x / norm), Y: float32(y / norm), Z: float32(z / norm)},
			Scale:    [3]float32{uniform(0.001, 0.5), uniform(0.001, 0.5), uniform(0.001, 0.5)},
			Opacity:  uniform(0, 1),
			SH:       [3]float32{uniform(-3, 3), uniform(-3, 3), uniform(-3, 3)},
		}
	}
	return splats
}
