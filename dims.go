package adhoc

import (
	"strconv"
	"strings"
	"unicode"
)

// AxisKind tells how the length of one array axis is bounded.
type AxisKind int

const (
	// AxisFixed is written "N": exactly N elements.
	AxisFixed AxisKind = iota
	// AxisVariable is written "-N": up to N elements.
	AxisVariable
	// AxisUnbounded is written "~N": any number of elements, N is a size hint.
	AxisUnbounded
)

func (k AxisKind) String() string {
	switch k {
	case AxisFixed:
		return "fixed"
	case AxisVariable:
		return "variable"
	case AxisUnbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

func (k AxisKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AxisKind) UnmarshalText(text []byte) error {
	for _, candidate := range []AxisKind{AxisFixed, AxisVariable, AxisUnbounded} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return malformed("unknown axis kind %q", text)
}

// Axis is one dimension of a multidimensional field.
type Axis struct {
	Kind AxisKind `json:"kind" msgpack:"kind"`
	Len  int      `json:"len" msgpack:"len"`
}

func (a Axis) String() string {
	switch a.Kind {
	case AxisVariable:
		return "-" + strconv.Itoa(a.Len)
	case AxisUnbounded:
		return "~" + strconv.Itoa(a.Len)
	default:
		return strconv.Itoa(a.Len)
	}
}

// Dimensions is a parsed dimension string such as "3|-3|~4", outermost axis first.
type Dimensions []Axis

// ParseDims parses a dimension string. Whitespace is ignored and the whole
// string may be wrapped in parentheses: "(3|-3|~ 4)" equals "3|-3|~4".
func ParseDims(text string) (Dimensions, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	compact, _ = unwrapParens(compact)
	if compact == "" {
		return nil, malformed("empty dimension string")
	}

	parts := strings.Split(compact, "|")
	dims := make(Dimensions, 0, len(parts))
	for _, part := range parts {
		axis := Axis{Kind: AxisFixed}
		digits := part
		switch {
		case strings.HasPrefix(part, "-"):
			axis.Kind = AxisVariable
			digits = part[1:]
		case strings.HasPrefix(part, "~"):
			axis.Kind = AxisUnbounded
			digits = part[1:]
		}
		n, err := strconv.Atoi(digits)
		if err != nil || strings.HasPrefix(digits, "+") || strings.HasPrefix(digits, "-") {
			return nil, malformed("axis %q of %q is not N, -N or ~N", part, text)
		}
		if n <= 0 {
			return nil, malformed("axis %q of %q must be positive", part, text)
		}
		axis.Len = n
		dims = append(dims, axis)
	}
	return dims, nil
}

// String renders the canonical form, e.g. "3|-3|~4".
func (d Dimensions) String() string {
	parts := make([]string, len(d))
	for i, axis := range d {
		parts[i] = axis.String()
	}
	return strings.Join(parts, "|")
}

// Lengths returns the axis magnitudes in order.
func (d Dimensions) Lengths() []int {
	lengths := make([]int, len(d))
	for i, axis := range d {
		lengths[i] = axis.Len
	}
	return lengths
}

// Fixed reports whether every axis has a fixed length.
func (d Dimensions) Fixed() bool {
	for _, axis := range d {
		if axis.Kind != AxisFixed {
			return false
		}
	}
	return true
}

func (d Dimensions) Rank() int {
	return len(d)
}

func (d Dimensions) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Dimensions) UnmarshalText(text []byte) error {
	parsed, err := ParseDims(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
