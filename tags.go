package adhoc

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/vast-data/go-adhoc/codegen/markers"
)

// TagKey is the struct tag key carrying field markers:
//
//	Temp   int16   `adhoc:"A=-7|78"`
//	Matrix []int32 `adhoc:"D_=3|-3|~4,I_"`
const TagKey = "adhoc"

// Annotation is one marker as written on a declaration, with its parameter parsed.
type Annotation struct {
	Marker Marker `json:"marker" msgpack:"marker"`
	// Text is the parameter as written, "()" for the explicit empty form.
	Text  string     `json:"text,omitempty" msgpack:"text,omitempty"`
	Bound Bound      `json:"bound,omitempty" msgpack:"bound,omitempty"`
	Dims  Dimensions `json:"dims,omitempty" msgpack:"dims,omitempty"`
	// ID is set for the pack identifier marker.
	ID *uint64 `json:"id,omitempty" msgpack:"id,omitempty"`
}

// ParseAnnotation parses one marker entry such as "A=-7|78", "I_()" or "D_(3|-3|~4)".
// It does not check the attachment target.
func ParseAnnotation(entry string) (Annotation, error) {
	name, args, parens := markers.SplitMarker(entry)
	spec, ok := LookupSpec(name)
	if !ok {
		return Annotation{}, fmt.Errorf("%w: %q", ErrUnknownMarker, name)
	}
	ann := Annotation{Marker: spec.Marker, Text: args}
	if parens && args == "" {
		ann.Text = "()"
	}

	fail := func(err error) (Annotation, error) {
		return Annotation{}, &MarkerError{Marker: spec.Marker, Err: err}
	}
	switch spec.Param {
	case ParamNone:
		if args != "" {
			return fail(malformed("%s takes no parameter, got %q", spec.Marker, args))
		}
	case ParamBound:
		bound, err := ParseBound(ann.Text)
		if err != nil {
			return fail(err)
		}
		ann.Bound = bound
	case ParamDims:
		if args == "" {
			return fail(ErrMissingParam)
		}
		dims, err := ParseDims(args)
		if err != nil {
			return fail(err)
		}
		ann.Dims = dims
	case ParamUint:
		if args == "" {
			return fail(ErrMissingParam)
		}
		id, err := strconv.ParseUint(args, 10, 64)
		if err != nil {
			return fail(malformed("%q is not an unsigned integer", args))
		}
		ann.ID = &id
	}
	return ann, nil
}

// ParseTag parses the value of an adhoc struct tag. Every entry must be a
// field marker; type markers such as flags or id are rejected with ErrWrongTarget.
func ParseTag(tag string) ([]Annotation, error) {
	var anns []Annotation
	var errs []error
	for _, entry := range markers.SplitTag(tag) {
		ann, err := ParseAnnotation(entry)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if spec, _ := LookupSpec(string(ann.Marker)); spec.Target != markers.DescribesField {
			errs = append(errs, &MarkerError{Marker: ann.Marker, Err: fmt.Errorf("%w: %w", ErrWrongTarget, &markers.TargetError{
				Marker: string(ann.Marker), Want: spec.Target, Got: markers.DescribesField,
			})})
			continue
		}
		anns = append(anns, ann)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return anns, nil
}

// FieldMarkers is the resolved marker set of one field.
type FieldMarkers struct {
	Distribution *Distribution `json:"distribution,omitempty" msgpack:"distribution,omitempty"`
	// DimsMarker is D or D_ when the field is multidimensional.
	DimsMarker Marker     `json:"dimsMarker,omitempty" msgpack:"dimsMarker,omitempty"`
	Dims       Dimensions `json:"dims,omitempty" msgpack:"dims,omitempty"`
	Optional   bool       `json:"optional,omitempty" msgpack:"optional,omitempty"`
	// Markers lists the field's markers in the order they were written.
	Markers []Marker `json:"markers,omitempty" msgpack:"markers,omitempty"`
}

// Empty reports whether the field carries no marker.
func (f FieldMarkers) Empty() bool {
	return len(f.Markers) == 0
}

// ResolveField checks the annotations of one field and resolves their meaning.
// A field takes at most one distribution marker and at most one dimension marker,
// and D only accepts fixed axes.
func ResolveField(anns []Annotation) (FieldMarkers, error) {
	var out FieldMarkers
	var errs []error
	var distMarker Marker

	for _, ann := range anns {
		spec, ok := LookupSpec(string(ann.Marker))
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownMarker, ann.Marker))
			continue
		}
		fail := func(err error) {
			errs = append(errs, &MarkerError{Marker: spec.Marker, Err: err})
		}
		if spec.Target != markers.DescribesField {
			fail(fmt.Errorf("%w: %s describes a %s", ErrWrongTarget, spec.Marker, spec.Target))
			continue
		}
		out.Markers = append(out.Markers, spec.Marker)

		switch {
		case spec.IsDistribution():
			if out.Distribution != nil {
				fail(fmt.Errorf("%w: %s and %s on one field", ErrConflictingMarkers, distMarker, spec.Marker))
				continue
			}
			dist, err := Resolve(spec.Marker, ann.Bound)
			if err != nil {
				fail(err)
				continue
			}
			distMarker = spec.Marker
			out.Distribution = &dist
		case spec.IsDims():
			if out.DimsMarker != "" {
				fail(fmt.Errorf("%w: %s and %s on one field", ErrConflictingMarkers, out.DimsMarker, spec.Marker))
				continue
			}
			if len(ann.Dims) == 0 {
				fail(ErrMissingParam)
				continue
			}
			if spec.Marker == Dims && !ann.Dims.Fixed() {
				fail(malformed("%s only takes fixed axes, got %q", Dims, ann.Dims))
				continue
			}
			out.DimsMarker = spec.Marker
			out.Dims = ann.Dims
		}
		if spec.Optional {
			out.Optional = true
		}
	}
	if len(errs) > 0 {
		return FieldMarkers{}, errors.Join(errs...)
	}
	return out, nil
}
