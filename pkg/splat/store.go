package splat

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-splat-surfels/pkg/core"
	"github.com/df07/go-splat-surfels/pkg/loaders"
)

// Quaternion component orders found in splat exports
const (
	OrderXYZW = "xyzw" // rot_3 is the scalar part
	OrderWXYZ = "wxyz" // rot_0 is the scalar part
)

// Options controls how a scene file is interpreted
type Options struct {
	QuaternionOrder string // OrderXYZW or OrderWXYZ
	LogScale        bool   // stored scales are log-extents
	MemoryMap       bool   // map binary bodies instead of reading them
}

// DefaultOptions returns the options matching common 3DGS exports
func DefaultOptions() Options {
	return Options{
		QuaternionOrder: OrderXYZW,
		MemoryMap:       true,
	}
}

// Validate checks the option values
func (o Options) Validate() error {
	switch o.QuaternionOrder {
	case OrderXYZW, OrderWXYZ:
	default:
		return fmt.Errorf("%w: quaternion order %q", core.ErrInvalidArgument, o.QuaternionOrder)
	}
	return nil
}

// arena is strided float32 storage. field does not bounds-check.
type arena interface {
	field(i, slot int) float32
	release() error
}

// binaryArena decodes little-endian float32 slots in place
type binaryArena struct {
	data   []byte
	stride int // bytes per record
	unmap  func([]byte) error
}

func (a *binaryArena) field(i, slot int) float32 {
	off := i*a.stride + slot*4
	return math.Float32frombits(binary.LittleEndian.Uint32(a.data[off : off+4]))
}

func (a *binaryArena) release() error {
	if a.unmap == nil || a.data == nil {
		return nil
	}
	err := a.unmap(a.data)
	a.data = nil
	return err
}

// floatArena holds a parsed ascii body
type floatArena struct {
	vals   []float32
	stride int // values per record
}

func (a *floatArena) field(i, slot int) float32 {
	return a.vals[i*a.stride+slot]
}

func (a *floatArena) release() error {
	a.vals = nil
	return nil
}

// Store is a loaded splat scene. Records stay in one contiguous buffer and
// accessors read fields at record*stride + offset.
type Store struct {
	path   string
	header *loaders.PLYHeader
	layout *loaders.SplatLayout
	count  int
	arena  arena
	opts   Options

	// rotation slots in W, X, Y, Z order
	rot [4]int
}

// Load reads a 3DGS scene in PLY format. Errors wrap core.ErrFormat for
// malformed headers or layouts and core.ErrIO for unreadable or short bodies.
func Load(path string, opts Options) (*Store, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	data, unmap, err := readScene(path, opts.MemoryMap)
	if err != nil {
		return nil, err
	}

	store, err := newStore(data, unmap, opts)
	if err != nil {
		if unmap != nil {
			unmap(data)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if _, parsed := store.arena.(*floatArena); parsed && unmap != nil {
		if err := unmap(data); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
		}
	}
	store.path = path
	return store, nil
}

// readScene returns the file contents, mapped when possible. unmap is nil for
// heap-backed data.
func readScene(path string, useMap bool) ([]byte, func([]byte) error, error) {
	if useMap {
		if data, err := mapFile(path); err == nil {
			return data, unmapFile, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read scene: %v", core.ErrIO, err)
	}
	return data, nil, nil
}

func newStore(data []byte, unmap func([]byte) error, opts Options) (*Store, error) {
	header, err := loaders.ParsePLYHeader(data)
	if err != nil {
		return nil, err
	}

	if len(header.Elements) == 0 || header.Elements[0].Name != "vertex" {
		return nil, fmt.Errorf("%w: first element must be vertex", core.ErrFormat)
	}
	vertex := &header.Elements[0]

	layout, err := loaders.MatchSplatLayout(vertex.Props)
	if err != nil {
		return nil, err
	}

	s := &Store{
		header: header,
		layout: layout,
		count:  vertex.Count,
		opts:   opts,
	}
	if opts.QuaternionOrder == OrderWXYZ {
		s.rot = layout.Rotation
	} else {
		r := layout.Rotation
		s.rot = [4]int{r[3], r[0], r[1], r[2]}
	}

	body := data[header.Size:]
	switch header.Format {
	case loaders.FormatBinaryLittleEndian:
		size := vertex.RecordSize()
		if s.count > len(body)/size {
			return nil, fmt.Errorf("%w: body holds %d bytes, need %d records of %d bytes",
				core.ErrIO, len(body), s.count, size)
		}
		s.arena = &binaryArena{data: body[:s.count*size], stride: size, unmap: wrapUnmap(data, unmap)}
	case loaders.FormatASCII:
		vals, err := parseASCIIBody(body, s.count, layout.Stride)
		if err != nil {
			return nil, err
		}
		s.arena = &floatArena{vals: vals, stride: layout.Stride}
	default:
		return nil, fmt.Errorf("%w: unsupported PLY format %q", core.ErrFormat, header.Format)
	}

	return s, nil
}

// wrapUnmap releases the whole mapping when the arena only holds the body
func wrapUnmap(data []byte, unmap func([]byte) error) func([]byte) error {
	if unmap == nil {
		return nil
	}
	return func([]byte) error { return unmap(data) }
}

// parseASCIIBody parses count records of stride values into one arena
func parseASCIIBody(body []byte, count, stride int) ([]float32, error) {
	// every value takes at least one digit and one separator
	if count > (len(body)+1)/(2*stride) {
		return nil, fmt.Errorf("%w: body holds %d bytes, too short for %d records of %d values",
			core.ErrIO, len(body), count, stride)
	}
	vals := make([]float32, 0, count*stride)
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	record := 0
	for record < count && scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < stride {
			return nil, fmt.Errorf("%w: record %d has %d values, want %d", core.ErrIO, record, len(fields), stride)
		}
		for _, f := range fields[:stride] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: record %d: %v", core.ErrFormat, record, err)
			}
			vals = append(vals, float32(v))
		}
		record++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	if record < count {
		return nil, fmt.Errorf("%w: expected %d records, found %d", core.ErrIO, count, record)
	}
	return vals, nil
}

// Close releases the scene buffer. The store must not be used afterwards.
func (s *Store) Close() error {
	if s.arena == nil {
		return nil
	}
	err := s.arena.release()
	s.arena = nil
	s.count = 0
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrIO, err)
	}
	return nil
}

// Path returns the file the store was loaded from
func (s *Store) Path() string { return s.path }

// Format returns the PLY body encoding
func (s *Store) Format() string { return s.header.Format }

// Header returns the parsed PLY header
func (s *Store) Header() *loaders.PLYHeader { return s.header }

// Count returns the number of splats
func (s *Store) Count() int { return s.count }

// Len implements core.Splats
func (s *Store) Len() int { return s.count }

// At implements core.Splats. It does not bounds-check.
func (s *Store) At(i int) core.Splat {
	return core.Splat{
		Position: s.vec3(i, s.layout.Position),
		Rotation: core.Quat{
			W: s.arena.field(i, s.rot[0]),
			X: s.arena.field(i, s.rot[1]),
			Y: s.arena.field(i, s.rot[2]),
			Z: s.arena.field(i, s.rot[3]),
		},
		Scale:   s.scale(i),
		Opacity: s.arena.field(i, s.layout.Opacity),
		SH:      s.vec3(i, s.layout.DC),
	}
}

func (s *Store) vec3(i int, slots [3]int) [3]float32 {
	return [3]float32{
		s.arena.field(i, slots[0]),
		s.arena.field(i, slots[1]),
		s.arena.field(i, slots[2]),
	}
}

func (s *Store) scale(i int) [3]float32 {
	v := s.vec3(i, s.layout.Scale)
	if s.opts.LogScale {
		for k := range v {
			v[k] = float32(math.Exp(float64(v[k])))
		}
	}
	return v
}

// Position returns the center of splat i
func (s *Store) Position(i int) ([3]float32, error) {
	if err := core.CheckIndex(i, s.count); err != nil {
		return [3]float32{}, err
	}
	return s.vec3(i, s.layout.Position), nil
}

// Rotation returns rot_0..rot_3 of splat i as stored in the file
func (s *Store) Rotation(i int) ([4]float32, error) {
	if err := core.CheckIndex(i, s.count); err != nil {
		return [4]float32{}, err
	}
	r := s.layout.Rotation
	return [4]float32{
		s.arena.field(i, r[0]),
		s.arena.field(i, r[1]),
		s.arena.field(i, r[2]),
		s.arena.field(i, r[3]),
	}, nil
}

// Quaternion returns the rotation of splat i in scalar-first order
func (s *Store) Quaternion(i int) (core.Quat, error) {
	if err := core.CheckIndex(i, s.count); err != nil {
		return core.Quat{}, err
	}
	return s.At(i).Rotation, nil
}

// Scale returns the per-axis extent of splat i
func (s *Store) Scale(i int) ([3]float32, error) {
	if err := core.CheckIndex(i, s.count); err != nil {
		return [3]float32{}, err
	}
	return s.scale(i), nil
}

// Opacity returns the stored opacity of splat i
func (s *Store) Opacity(i int) (float32, error) {
	if err := core.CheckIndex(i, s.count); err != nil {
		return 0, err
	}
	return s.arena.field(i, s.layout.Opacity), nil
}

// SH returns all harmonic coefficients of splat i: the three DC terms
// followed by the f_rest_* terms.
func (s *Store) SH(i int) ([]float32, error) {
	if err := core.CheckIndex(i, s.count); err != nil {
		return nil, err
	}
	out := make([]float32, 0, 3+len(s.layout.Rest))
	for _, slot := range s.layout.DC {
		out = append(out, s.arena.field(i, slot))
	}
	for _, slot := range s.layout.Rest {
		out = append(out, s.arena.field(i, slot))
	}
	return out, nil
}

// SHRest returns the higher-degree harmonic coefficients of splat i
func (s *Store) SHRest(i int) ([]float32, error) {
	if err := core.CheckIndex(i, s.count); err != nil {
		return nil, err
	}
	out := make([]float32, len(s.layout.Rest))
	for k, slot := range s.layout.Rest {
		out[k] = s.arena.field(i, slot)
	}
	return out, nil
}
