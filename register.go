package adhoc

import (
	"fmt"

	"github.com/vast-data/go-adhoc/codegen/markers"
)

// DefaultPrefix is the comment marker prefix: "// +adhoc:A=-7|78".
const DefaultPrefix = "adhoc"

// RegisterMarkers registers every catalog entry as the comment marker
// "+<prefix>:<token>" with the entry's target. Parsed values are a Bound for
// distribution markers, Dimensions for D and D_, *uint64 for id and struct{}
// for flags.
func RegisterMarkers(registry *markers.Registry, prefix string) error {
	for _, spec := range catalog {
		name := prefix + ":" + string(spec.Marker)
		if err := registry.Register(name, spec.Target, outputOf(spec), spec.Description); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the catalog under DefaultPrefix.
func NewRegistry() *markers.Registry {
	registry := markers.NewRegistry()
	if err := RegisterMarkers(registry, DefaultPrefix); err != nil {
		panic(err)
	}
	return registry
}

func outputOf(spec Spec) interface{} {
	switch spec.Param {
	case ParamBound:
		return Bound{}
	case ParamDims:
		return Dimensions(nil)
	case ParamUint:
		return (*uint64)(nil)
	default:
		return struct{}{}
	}
}

// AnnotationOf converts a value parsed by a registry from RegisterMarkers back
// into an Annotation. Missing required parameters are reported with ErrMissingParam.
func AnnotationOf(marker Marker, value interface{}) (Annotation, error) {
	spec, ok := LookupSpec(string(marker))
	if !ok {
		return Annotation{}, fmt.Errorf("%w: %q", ErrUnknownMarker, marker)
	}
	ann := Annotation{Marker: spec.Marker}
	switch v := value.(type) {
	case Bound:
		ann.Bound = v
		ann.Text = v.String()
	case Dimensions:
		if len(v) == 0 {
			return Annotation{}, &MarkerError{Marker: spec.Marker, Err: ErrMissingParam}
		}
		ann.Dims = v
		ann.Text = v.String()
	case *uint64:
		if v == nil {
			return Annotation{}, &MarkerError{Marker: spec.Marker, Err: ErrMissingParam}
		}
		id := *v
		ann.ID = &id
		ann.Text = fmt.Sprint(id)
	case struct{}:
	default:
		return Annotation{}, fmt.Errorf("%w: unexpected %T value for %s", ErrMalformedParam, value, marker)
	}
	return ann, nil
}
