package loaders

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/df07/go-splat-surfels/pkg/core"
)

// SplatLayout maps the Gaussian splat fields to property slots of a vertex
// record. Every slot is a little-endian float32 (binary) or one column (ascii).
// The nx ny nz placeholders are required but never read.
type SplatLayout struct {
	Stride   int // properties per record
	Position [3]int
	DC       [3]int
	Opacity  int
	Scale    [3]int
	Rotation [4]int // rot_0..rot_3 in file order
	Rest     []int  // f_rest_* slots ordered by coefficient index
}

var requiredSplatProps = []string{
	"x", "y", "z",
	"nx", "ny", "nz",
	"f_dc_0", "f_dc_1", "f_dc_2",
	"opacity",
	"scale_0", "scale_1", "scale_2",
	"rot_0", "rot_1", "rot_2", "rot_3",
}

// MatchSplatLayout matches a vertex property list against the 3DGS scene
// export layout. Properties are located by name; unknown float properties
// are skipped. Errors wrap core.ErrFormat.
func MatchSplatLayout(props []PLYProperty) (*SplatLayout, error) {
	slots := make(map[string]int, len(props))
	type restSlot struct{ k, slot int }
	var rest []restSlot

	for i, prop := range props {
		if prop.IsList {
			return nil, fmt.Errorf("%w: list property %q in splat record", core.ErrFormat, prop.Name)
		}
		if !isFloat32Type(prop.Type) {
			return nil, fmt.Errorf("%w: property %q has type %s, want float", core.ErrFormat, prop.Name, prop.Type)
		}
		if _, dup := slots[prop.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate property %q", core.ErrFormat, prop.Name)
		}
		slots[prop.Name] = i

		if suffix, ok := strings.CutPrefix(prop.Name, "f_rest_"); ok {
			k, err := strconv.Atoi(suffix)
			if err != nil {
				return nil, fmt.Errorf("%w: malformed harmonic property %q", core.ErrFormat, prop.Name)
			}
			rest = append(rest, restSlot{k: k, slot: i})
		}
	}

	var missing []string
	for _, name := range requiredSplatProps {
		if _, ok := slots[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: not a gaussian splat layout, missing %s", core.ErrFormat, strings.Join(missing, ", "))
	}

	sort.Slice(rest, func(a, b int) bool { return rest[a].k < rest[b].k })

	layout := &SplatLayout{
		Stride:   len(props),
		Position: [3]int{slots["x"], slots["y"], slots["z"]},
		DC:       [3]int{slots["f_dc_0"], slots["f_dc_1"], slots["f_dc_2"]},
		Opacity:  slots["opacity"],
		Scale:    [3]int{slots["scale_0"], slots["scale_1"], slots["scale_2"]},
		Rotation: [4]int{slots["rot_0"], slots["rot_1"], slots["rot_2"], slots["rot_3"]},
	}
	for _, r := range rest {
		layout.Rest = append(layout.Rest, r.slot)
	}

	return layout, nil
}
