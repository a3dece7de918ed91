package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/df07/go-splat-surfels/pkg/core"
)

// pcdHeader writes a PCD v0.7 header with one unorganized row of n points
func pcdHeader(w *bufio.Writer, n int) {
	fmt.Fprintf(w, "# .PCD v0.7 - Point Cloud Data file format\n")
	fmt.Fprintf(w, "VERSION 0.7\n")
	fmt.Fprintf(w, "FIELDS x y z red green blue normal_x normal_y normal_z\n")
	fmt.Fprintf(w, "SIZE 4 4 4 1 1 1 4 4 4\n")
	fmt.Fprintf(w, "TYPE F F F U U U F F F\n")
	fmt.Fprintf(w, "COUNT 1 1 1 1 1 1 1 1 1\n")
	fmt.Fprintf(w, "WIDTH %d\n", n)
	fmt.Fprintf(w, "HEIGHT 1\n")
	fmt.Fprintf(w, "VIEWPOINT 0 0 0 1 0 0 0\n")
	fmt.Fprintf(w, "POINTS %d\n", n)
	fmt.Fprintf(w, "DATA ascii\n")
}

// WritePCD writes surfels as an ascii PCD point cloud
func WritePCD(w io.Writer, surfels []core.Surfel) error {
	return write(w, surfels, pcdHeader)
}

// SavePCD writes surfels to an ascii PCD file at path.
// Errors wrap core.ErrIO.
func SavePCD(path string, surfels []core.Surfel) error {
	return save(path, surfels, pcdHeader)
}
