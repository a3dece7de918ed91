package loaders

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/df07/go-splat-surfels/pkg/core"
)

// CloudPoint is one record of an exported oriented point cloud
type CloudPoint struct {
	Position [3]float64
	Color    [3]int
	Normal   [3]float64
}

// cloudColumns holds the column index of each CloudPoint field
type cloudColumns struct {
	pos, color, normal [3]int
	width              int
}

func newCloudColumns(names []string, aliases map[string]string) (cloudColumns, error) {
	cols := cloudColumns{width: len(names)}
	found := make(map[string]int, len(names))
	for i, name := range names {
		if canonical, ok := aliases[name]; ok {
			name = canonical
		}
		found[name] = i
	}

	want := []struct {
		dst  *int
		name string
	}{
		{&cols.pos[0], "x"}, {&cols.pos[1], "y"}, {&cols.pos[2], "z"},
		{&cols.color[0], "red"}, {&cols.color[1], "green"}, {&cols.color[2], "blue"},
		{&cols.normal[0], "nx"}, {&cols.normal[1], "ny"}, {&cols.normal[2], "nz"},
	}
	for _, w := range want {
		idx, ok := found[w.name]
		if !ok {
			return cols, fmt.Errorf("%w: point cloud has no %q field", core.ErrFormat, w.name)
		}
		*w.dst = idx
	}
	return cols, nil
}

func (c cloudColumns) parse(fields []string) (CloudPoint, error) {
	var p CloudPoint
	if len(fields) < c.width {
		return p, fmt.Errorf("%w: record has %d fields, want %d", core.ErrIO, len(fields), c.width)
	}
	for k := 0; k < 3; k++ {
		var err error
		if p.Position[k], err = strconv.ParseFloat(fields[c.pos[k]], 64); err != nil {
			return p, fmt.Errorf("%w: %v", core.ErrFormat, err)
		}
		if p.Normal[k], err = strconv.ParseFloat(fields[c.normal[k]], 64); err != nil {
			return p, fmt.Errorf("%w: %v", core.ErrFormat, err)
		}
		if p.Color[k], err = strconv.Atoi(fields[c.color[k]]); err != nil {
			return p, fmt.Errorf("%w: %v", core.ErrFormat, err)
		}
	}
	return p, nil
}

// ReadPLYPoints reads an ascii PLY point cloud with x y z, red green blue,
// nx ny nz vertex properties in any order.
func ReadPLYPoints(r io.Reader) ([]CloudPoint, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var header []byte
	for scanner.Scan() {
		header = append(header, scanner.Bytes()...)
		header = append(header, '\n')
		if strings.TrimSpace(scanner.Text()) == "end_header" {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: error reading header: %v", core.ErrIO, err)
	}

	h, err := ParsePLYHeader(header)
	if err != nil {
		return nil, err
	}
	if h.Format != FormatASCII {
		return nil, fmt.Errorf("%w: expected ascii point cloud, got %s", core.ErrFormat, h.Format)
	}
	vertex := h.Element("vertex")
	if vertex == nil {
		return nil, fmt.Errorf("%w: no vertex element", core.ErrFormat)
	}

	names := make([]string, len(vertex.Props))
	for i, p := range vertex.Props {
		names[i] = p.Name
	}
	cols, err := newCloudColumns(names, nil)
	if err != nil {
		return nil, err
	}

	return readRecords(scanner, cols, vertex.Count)
}

// pcdAliases maps PCL field names onto the PLY property names
var pcdAliases = map[string]string{
	"normal_x": "nx",
	"normal_y": "ny",
	"normal_z": "nz",
	"r":        "red",
	"g":        "green",
	"b":        "blue",
}

// ReadPCDPoints reads an ascii PCD v0.7 point cloud
func ReadPCDPoints(r io.Reader) ([]CloudPoint, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var fields []string
	points := -1
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "FIELDS":
			fields = parts[1:]
		case "POINTS":
			if len(parts) < 2 {
				return nil, fmt.Errorf("%w: invalid POINTS line", core.ErrFormat)
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: invalid point count %q", core.ErrFormat, parts[1])
			}
			points = n
		case "DATA":
			if len(parts) < 2 || parts[1] != "ascii" {
				return nil, fmt.Errorf("%w: unsupported PCD data section %q", core.ErrFormat, line)
			}
			if fields == nil || points < 0 {
				return nil, fmt.Errorf("%w: PCD header missing FIELDS or POINTS", core.ErrFormat)
			}
			cols, err := newCloudColumns(fields, pcdAliases)
			if err != nil {
				return nil, err
			}
			return readRecords(scanner, cols, points)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: error reading header: %v", core.ErrIO, err)
	}
	return nil, fmt.Errorf("%w: missing DATA line", core.ErrFormat)
}

const maxPreallocPoints = 1 << 16

func readRecords(scanner *bufio.Scanner, cols cloudColumns, count int) ([]CloudPoint, error) {
	points := make([]CloudPoint, 0, min(count, maxPreallocPoints))
	for len(points) < count && scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		p, err := cols.parse(fields)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", len(points), err)
		}
		points = append(points, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	if len(points) < count {
		return nil, fmt.Errorf("%w: expected %d records, found %d", core.ErrIO, count, len(points))
	}
	return points, nil
}
