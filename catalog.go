package adhoc

import (
	"github.com/vast-data/go-adhoc/codegen/markers"
)

// Marker is a catalog token as written by users, e.g. "A_" or "id".
type Marker string

const (
	// Ascending: required field whose values skew toward higher values.
	// Parameter: most often the lowest value, or a value range (-7 | 78).
	Ascending Marker = "A"
	// AscendingOpt is Ascending on an optional field.
	AscendingOpt Marker = "A_"
	// Descending: required field whose values skew toward lower values.
	// Parameter: the highest value, or a value range (-7 | 78).
	Descending Marker = "V"
	// DescendingOpt is Descending on an optional field.
	DescendingOpt Marker = "V_"
	// BidirectionalOpt: optional field whose values spread both ways from a middle value.
	// Parameter: the middle, most frequent value, or a value range (-7 | 78).
	BidirectionalOpt Marker = "X_"
	// Uniform: required field with values spread evenly over the datatype range or a
	// given range (-3 | 82). Without a parameter the field is unsigned.
	Uniform Marker = "I"
	// UniformOpt is Uniform on an optional field. Without a parameter the field is
	// unsigned and optional; the explicit empty form I_() only makes it optional.
	UniformOpt Marker = "I_"
	// Dims: required multidimensional field of fixed shape, e.g. 3|3|4.
	Dims Marker = "D"
	// DimsOpt: optional multidimensional field; axes may be variable (-3) or unbounded (~4).
	DimsOpt Marker = "D_"
	// BitFlags: the constants of an enumerated type are independent bit flags.
	BitFlags Marker = "flags"
	// PackID: unique pack identity used for wire-level type discrimination.
	PackID Marker = "id"
)

// ParamKind is the kind of parameter a marker takes.
type ParamKind int

const (
	ParamNone ParamKind = iota
	// ParamBound is a number or a lo|hi range.
	ParamBound
	// ParamDims is a dimension string.
	ParamDims
	// ParamUint is an unsigned integer.
	ParamUint
)

func (k ParamKind) String() string {
	switch k {
	case ParamNone:
		return "none"
	case ParamBound:
		return "bound"
	case ParamDims:
		return "dims"
	case ParamUint:
		return "uint"
	default:
		return "unknown"
	}
}

func (k ParamKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ParamKind) UnmarshalText(text []byte) error {
	for _, candidate := range []ParamKind{ParamNone, ParamBound, ParamDims, ParamUint} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return malformed("unknown parameter kind %q", text)
}

// Shape is the value distribution a field marker describes.
type Shape int

const (
	ShapeNone Shape = iota
	ShapeAscending
	ShapeDescending
	ShapeBidirectional
	ShapeUniform
)

func (s Shape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeAscending:
		return "ascending"
	case ShapeDescending:
		return "descending"
	case ShapeBidirectional:
		return "bidirectional"
	case ShapeUniform:
		return "uniform"
	default:
		return "unknown"
	}
}

func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(text []byte) error {
	for _, candidate := range []Shape{ShapeNone, ShapeAscending, ShapeDescending, ShapeBidirectional, ShapeUniform} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return malformed("unknown shape %q", text)
}

// Spec describes one catalog entry.
type Spec struct {
	Marker        Marker             `json:"marker" msgpack:"marker"`
	Target        markers.TargetType `json:"target" msgpack:"target"`
	Param         ParamKind          `json:"param" msgpack:"param"`
	ParamRequired bool               `json:"paramRequired" msgpack:"paramRequired"`
	// Optional is set for markers that make the field optional.
	Optional    bool   `json:"optional" msgpack:"optional"`
	Shape       Shape  `json:"shape" msgpack:"shape"`
	Description string `json:"description" msgpack:"description"`
}

// IsDistribution reports whether the marker describes a value distribution.
func (s Spec) IsDistribution() bool {
	return s.Shape != ShapeNone
}

// IsDims reports whether the marker declares a multidimensional field.
func (s Spec) IsDims() bool {
	return s.Param == ParamDims
}

var catalog = []Spec{
	{Marker: Ascending, Target: markers.DescribesField, Param: ParamBound, Shape: ShapeAscending,
		Description: "Required field whose values have an up direction (higher) dispersion gradient. Parameter: most often lowest value or value range (-7 | 78)"},
	{Marker: AscendingOpt, Target: markers.DescribesField, Param: ParamBound, Optional: true, Shape: ShapeAscending,
		Description: "Optional field whose values have an up direction (higher) dispersion gradient. Parameter: most often lowest value or value range (-7 | 78)"},
	{Marker: Descending, Target: markers.DescribesField, Param: ParamBound, Shape: ShapeDescending,
		Description: "Required field whose values have a down direction (lower) dispersion gradient. Parameter: highest value or value range (-7 | 78)"},
	{Marker: DescendingOpt, Target: markers.DescribesField, Param: ParamBound, Optional: true, Shape: ShapeDescending,
		Description: "Optional field whose values have a down direction (lower) dispersion gradient. Parameter: highest value or value range (-7 | 78)"},
	{Marker: BidirectionalOpt, Target: markers.DescribesField, Param: ParamBound, Optional: true, Shape: ShapeBidirectional,
		Description: "Optional field whose values have a bi-directional dispersion gradient. Parameter: middle, most often value or value range (-7 | 78)"},
	{Marker: Uniform, Target: markers.DescribesField, Param: ParamBound, Shape: ShapeUniform,
		Description: "Required field with uniform values distribution in the datatype range or in the given range (-3 | 82). Without parameter the field is unsigned"},
	{Marker: UniformOpt, Target: markers.DescribesField, Param: ParamBound, Optional: true, Shape: ShapeUniform,
		Description: "Optional field with uniform values distribution in the datatype range or in the given range (-3 | 82). I_() makes the field optional only; without parameter the field is unsigned and optional"},
	{Marker: Dims, Target: markers.DescribesField, Param: ParamDims, ParamRequired: true,
		Description: "Required multidimensional field. Fixed dimensions in the form (3|3|4)"},
	{Marker: DimsOpt, Target: markers.DescribesField, Param: ParamDims, ParamRequired: true, Optional: true,
		Description: "Optional multidimensional field. Dimensions in the form (3|-3|~4): -N is variable up to N, ~N is unbounded"},
	{Marker: BitFlags, Target: markers.DescribesType, Param: ParamNone,
		Description: "Treat the enum constants as a bit flags set instead of mutually exclusive values"},
	{Marker: PackID, Target: markers.DescribesType, Param: ParamUint, ParamRequired: true,
		Description: "Pack unique identification used for wire-level type discrimination"},
}

var catalogIndex = func() map[Marker]int {
	index := make(map[Marker]int, len(catalog))
	for i, spec := range catalog {
		index[spec.Marker] = i
	}
	return index
}()

// Catalog returns a copy of the full marker catalog in declaration order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// LookupSpec finds a catalog entry by its exact, case sensitive token.
func LookupSpec(token string) (Spec, bool) {
	i, ok := catalogIndex[Marker(token)]
	if !ok {
		return Spec{}, false
	}
	return catalog[i], true
}
