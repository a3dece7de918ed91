package loaders

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/df07/go-splat-surfels/pkg/core"
)

// PLY body encodings
const (
	FormatASCII              = "ascii"
	FormatBinaryLittleEndian = "binary_little_endian"
	FormatBinaryBigEndian    = "binary_big_endian"
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format   string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version  string // Usually "1.0"
	Comments []string
	Elements []PLYElement

	// Size is the byte offset where the body starts, including the
	// line ending that follows end_header.
	Size int
}

// PLYElement is one "element" declaration with its properties
type PLYElement struct {
	Name  string
	Count int
	Props []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// Element returns the named element, or nil
func (h *PLYHeader) Element(name string) *PLYElement {
	for i := range h.Elements {
		if h.Elements[i].Name == name {
			return &h.Elements[i]
		}
	}
	return nil
}

// RecordSize returns the byte size of one fixed-width record of the element,
// or 0 when it has a list property.
func (e *PLYElement) RecordSize() int {
	return calculateVertexSize(e.Props)
}

// ParsePLYHeader parses the header at the start of data.
// Errors wrap core.ErrFormat.
func ParsePLYHeader(data []byte) (*PLYHeader, error) {
	header := &PLYHeader{}

	pos := 0
	lineNo := 0
	for {
		if pos >= len(data) {
			return nil, fmt.Errorf("%w: missing end_header", core.ErrFormat)
		}

		var raw []byte
		next := bytes.IndexByte(data[pos:], '\n')
		if next < 0 {
			raw = data[pos:]
			pos = len(data)
		} else {
			raw = data[pos : pos+next]
			pos += next + 1
		}
		line := strings.TrimSpace(string(bytes.TrimSuffix(raw, []byte{'\r'})))
		lineNo++

		if lineNo == 1 {
			if line != "ply" {
				return nil, fmt.Errorf("%w: missing ply magic number", core.ErrFormat)
			}
			continue
		}

		if line == "end_header" {
			header.Size = pos
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("%w: invalid format line %q", core.ErrFormat, line)
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
			header.Comments = append(header.Comments, strings.TrimSpace(strings.TrimPrefix(line, parts[0])))
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("%w: invalid element line %q", core.ErrFormat, line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: invalid element count: %s", core.ErrFormat, parts[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, fmt.Errorf("%w: property declared before any element", core.ErrFormat)
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: failed to parse property: %v", core.ErrFormat, err)
			}
			el := &header.Elements[len(header.Elements)-1]
			el.Props = append(el.Props, prop)
		default:
			return nil, fmt.Errorf("%w: unexpected header line %q", core.ErrFormat, line)
		}
	}

	if header.Format == "" {
		return nil, fmt.Errorf("%w: missing format line", core.ErrFormat)
	}

	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	prop := PLYProperty{}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
		if getTypeSize(prop.ListType) == 0 || getTypeSize(prop.DataType) == 0 {
			return PLYProperty{}, fmt.Errorf("unsupported list types %s/%s", prop.ListType, prop.DataType)
		}
	} else {
		prop.Type = parts[0]
		prop.Name = parts[1]
		if getTypeSize(prop.Type) == 0 {
			return PLYProperty{}, fmt.Errorf("unsupported data type: %s", prop.Type)
		}
	}

	return prop, nil
}

// calculateVertexSize calculates the size in bytes of a single fixed-width record.
// Returns 0 when any property is a list.
func calculateVertexSize(props []PLYProperty) int {
	size := 0
	for _, prop := range props {
		if prop.IsList {
			return 0
		}
		size += getTypeSize(prop.Type)
	}
	return size
}

// getTypeSize returns the size in bytes of a PLY data type, or 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}

func isFloat32Type(dataType string) bool {
	return dataType == "float" || dataType == "float32"
}
