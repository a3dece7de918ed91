package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/df07/go-splat-surfels/pkg/core"
)

func plyHeader(w *bufio.Writer, n int) {
	fmt.Fprintf(w, "ply\n")
	fmt.Fprintf(w, "format ascii 1.0\n")
	fmt.Fprintf(w, "comment surfels derived from gaussian splats\n")
	fmt.Fprintf(w, "element vertex %d\n", n)
	for _, p := range []string{"float x", "float y", "float z", "uchar red", "uchar green", "uchar blue", "float nx", "float ny", "float nz"} {
		fmt.Fprintf(w, "property %s\n", p)
	}
	fmt.Fprintf(w, "end_header\n")
}

// WritePLY writes surfels as an ascii PLY point cloud
func WritePLY(w io.Writer, surfels []core.Surfel) error {
	return write(w, surfels, plyHeader)
}

// SavePLY writes surfels to an ascii PLY file at path.
// Errors wrap core.ErrIO.
func SavePLY(path string, surfels []core.Surfel) error {
	return save(path, surfels, plyHeader)
}
