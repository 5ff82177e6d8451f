package adhoc

import (
	"fmt"
)

// Distribution is the resolved meaning of a field's distribution marker.
type Distribution struct {
	Marker   Marker `json:"marker" msgpack:"marker"`
	Shape    Shape  `json:"shape" msgpack:"shape"`
	Optional bool   `json:"optional,omitempty" msgpack:"optional,omitempty"`
	Unsigned bool   `json:"unsigned,omitempty" msgpack:"unsigned,omitempty"`
	Bound    Bound  `json:"bound" msgpack:"bound"`
}

// Resolve applies the parameter defaults of a distribution marker.
// I without a parameter makes the field unsigned, I_ without a parameter makes it
// unsigned and optional, and I_() makes it optional only.
func Resolve(marker Marker, bound Bound) (Distribution, error) {
	spec, ok := LookupSpec(string(marker))
	if !ok {
		return Distribution{}, fmt.Errorf("%w: %q", ErrUnknownMarker, marker)
	}
	if !spec.IsDistribution() {
		return Distribution{}, fmt.Errorf("%w: %s does not describe a value distribution", ErrWrongTarget, marker)
	}
	dist := Distribution{
		Marker:   marker,
		Shape:    spec.Shape,
		Optional: spec.Optional,
		Bound:    bound,
	}
	if spec.Shape == ShapeUniform && bound.Absent() {
		dist.Unsigned = true
	}
	return dist, nil
}
