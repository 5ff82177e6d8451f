package adhoc

import (
	"math"
	"strconv"
	"strings"
)

// Range is an inclusive value range written "lo|hi".
type Range struct {
	Min float64 `json:"min" msgpack:"min"`
	Max float64 `json:"max" msgpack:"max"`
}

// Bound is the optional parameter of a distribution marker.
//
// The zero Bound is an absent parameter. Empty is the explicit "()" form.
// Given is set when a value or a range was written; Range is nil for a single value.
type Bound struct {
	Given bool    `json:"given,omitempty" msgpack:"given,omitempty"`
	Empty bool    `json:"empty,omitempty" msgpack:"empty,omitempty"`
	Value float64 `json:"value,omitempty" msgpack:"value,omitempty"`
	Range *Range  `json:"range,omitempty" msgpack:"range,omitempty"`
}

// ParseBound parses "", "()", "5", "-7|78" or "(-7 | 78)".
func ParseBound(text string) (Bound, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Bound{}, nil
	}
	inner, wrapped := unwrapParens(text)
	if wrapped && inner == "" {
		return Bound{Empty: true}, nil
	}

	parts := strings.Split(inner, "|")
	switch len(parts) {
	case 1:
		v, err := parseNumber(parts[0])
		if err != nil {
			return Bound{}, err
		}
		return Bound{Given: true, Value: v}, nil
	case 2:
		lo, err := parseNumber(parts[0])
		if err != nil {
			return Bound{}, err
		}
		hi, err := parseNumber(parts[1])
		if err != nil {
			return Bound{}, err
		}
		if lo > hi {
			return Bound{}, malformed("range %q: min %v is above max %v", text, lo, hi)
		}
		return Bound{Given: true, Range: &Range{Min: lo, Max: hi}}, nil
	default:
		return Bound{}, malformed("bound %q: want a number or a lo|hi range", text)
	}
}

// Absent reports whether no parameter was written at all.
func (b Bound) Absent() bool {
	return !b.Given && !b.Empty
}

func (b Bound) String() string {
	switch {
	case b.Empty:
		return "()"
	case !b.Given:
		return ""
	case b.Range != nil:
		return formatNumber(b.Range.Min) + "|" + formatNumber(b.Range.Max)
	default:
		return formatNumber(b.Value)
	}
}

func (b Bound) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bound) UnmarshalText(text []byte) error {
	parsed, err := ParseBound(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, malformed("empty number")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, malformed("%q is not a finite number", s)
	}
	return v, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// unwrapParens strips one pair of surrounding parentheses.
func unwrapParens(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		return strings.TrimSpace(s[1 : len(s)-1]), true
	}
	return s, false
}
