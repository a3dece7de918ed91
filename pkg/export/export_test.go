package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-splat-surfels/pkg/core"
	"github.com/df07/go-splat-surfels/pkg/geometry"
	"github.com/df07/go-splat-surfels/pkg/loaders"
	"github.com/df07/go-splat-surfels/pkg/splat/splattest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSurfels(n int) []core.Surfel {
	splats := core.SplatSlice(splattest.RandomSplats(n, 21))
	return geometry.NewReference().ComputeAll(splats)
}

func TestAppendRecord(t *testing.T) {
	s := core.Surfel{
		Position: [3]float32{1, -2.5, 0.1},
		Normal:   [3]float32{0, 0, 1},
		Color:    [3]float32{1, 0.5, 0},
	}
	assert.Equal(t, "1 -2.5 0.1 255 128 0 0 0 1\n", string(appendRecord(nil, s)))
}

func TestWritePLY_RoundTrip(t *testing.T) {
	surfels := testSurfels(200)

	var buf bytes.Buffer
	require.NoError(t, WritePLY(&buf, surfels))
	assert.True(t, strings.HasPrefix(buf.String(), "ply\nformat ascii 1.0\n"))
	assert.Contains(t, buf.String(), "element vertex 200\n")

	points, err := loaders.ReadPLYPoints(&buf)
	require.NoError(t, err)
	require.Len(t, points, len(surfels))

	for i, p := range points {
		s := surfels[i]
		for k := 0; k < 3; k++ {
			// shortest formatting parses back to the same float32
			assert.Equal(t, s.Position[k], float32(p.Position[k]), "point %d", i)
			assert.Equal(t, s.Normal[k], float32(p.Normal[k]), "point %d", i)
			assert.Equal(t, int(core.ColorToByte(s.Color[k])), p.Color[k], "point %d", i)
		}
	}
}

func TestPLYAndPCDAgree(t *testing.T) {
	surfels := testSurfels(100)

	var ply, pcd bytes.Buffer
	require.NoError(t, WritePLY(&ply, surfels))
	require.NoError(t, WritePCD(&pcd, surfels))

	fromPLY, err := loaders.ReadPLYPoints(bytes.NewReader(ply.Bytes()))
	require.NoError(t, err)
	fromPCD, err := loaders.ReadPCDPoints(bytes.NewReader(pcd.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, fromPLY, fromPCD)

	// identical record text after the headers
	plyBody := ply.String()[strings.Index(ply.String(), "end_header\n")+len("end_header\n"):]
	pcdBody := pcd.String()[strings.Index(pcd.String(), "DATA ascii\n")+len("DATA ascii\n"):]
	assert.Equal(t, plyBody, pcdBody)
}

func TestWritePCD_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePCD(&buf, testSurfels(7)))

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "VERSION 0.7", lines[1])
	assert.Equal(t, "FIELDS x y z red green blue normal_x normal_y normal_z", lines[2])
	assert.Equal(t, "SIZE 4 4 4 1 1 1 4 4 4", lines[3])
	assert.Equal(t, "TYPE F F F U U U F F F", lines[4])
	assert.Equal(t, "WIDTH 7", lines[6])
	assert.Equal(t, "HEIGHT 1", lines[7])
	assert.Equal(t, "POINTS 7", lines[9])
	assert.Equal(t, "DATA ascii", lines[10])
	// 11 header lines, 7 records, trailing empty string
	assert.Len(t, lines, 11+7+1)
}

func TestWrite_Empty(t *testing.T) {
	var ply, pcd bytes.Buffer
	require.NoError(t, WritePLY(&ply, nil))
	require.NoError(t, WritePCD(&pcd, nil))

	points, err := loaders.ReadPLYPoints(&ply)
	require.NoError(t, err)
	assert.Empty(t, points)

	points, err = loaders.ReadPCDPoints(&pcd)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	surfels := testSurfels(10)

	tests := []struct {
		name string
		save func(string, []core.Surfel) error
		read func(*os.File) ([]loaders.CloudPoint, error)
	}{
		{"ply", SavePLY, func(f *os.File) ([]loaders.CloudPoint, error) { return loaders.ReadPLYPoints(f) }},
		{"pcd", SavePCD, func(f *os.File) ([]loaders.CloudPoint, error) { return loaders.ReadPCDPoints(f) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "out."+tt.name)
			require.NoError(t, tt.save(path, surfels))

			f, err := os.Open(path)
			require.NoError(t, err)
			defer f.Close()

			points, err := tt.read(f)
			require.NoError(t, err)
			assert.Len(t, points, len(surfels))
		})
	}
}

func TestSave_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "out.ply")
	assert.ErrorIs(t, SavePLY(path, testSurfels(2)), core.ErrIO)
	assert.ErrorIs(t, SavePCD(path, testSurfels(2)), core.ErrIO)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_WriterFailure(t *testing.T) {
	err := WritePLY(failingWriter{}, testSurfels(3))
	assert.ErrorIs(t, err, core.ErrIO)
	assert.Contains(t, err.Error(), "disk full")
}
