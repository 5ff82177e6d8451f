package adhoc

import (
	"errors"
	"fmt"

	"github.com/vast-data/go-adhoc/codegen/markers"
)

var (
	// ErrUnknownMarker is returned for tokens outside the catalog.
	ErrUnknownMarker = markers.ErrUnknownMarker
	// ErrWrongTarget is returned when a marker is attached to the wrong kind of declaration.
	ErrWrongTarget = errors.New("marker attached to the wrong target")
	// ErrMalformedParam is returned when a marker parameter does not parse.
	ErrMalformedParam = errors.New("malformed marker parameter")
	// ErrConflictingMarkers is returned when a field carries two distribution or two dimension markers.
	ErrConflictingMarkers = errors.New("conflicting markers")
	// ErrMissingParam is returned when a marker that requires a parameter has none.
	ErrMissingParam = errors.New("missing marker parameter")
	// ErrIncompatibleCatalog is returned for documents written by an incompatible catalog version.
	ErrIncompatibleCatalog = errors.New("incompatible catalog version")
)

// MarkerError ties a marker failure to the declaration it was found on.
type MarkerError struct {
	Marker Marker
	// Owner is "Type" or "Type.Field"; empty when unknown.
	Owner string
	Err   error
}

func (e *MarkerError) Error() string {
	if e.Owner == "" {
		return fmt.Sprintf("marker %s: %v", e.Marker, e.Err)
	}
	return fmt.Sprintf("%s: marker %s: %v", e.Owner, e.Marker, e.Err)
}

func (e *MarkerError) Unwrap() error {
	return e.Err
}

func IsMarkerErr(err error) bool {
	var markerErr *MarkerError
	return errors.As(err, &markerErr)
}

// IsWrongTargetErr matches ErrWrongTarget as well as the collector's *markers.TargetError.
func IsWrongTargetErr(err error) bool {
	return errors.Is(err, ErrWrongTarget) || markers.IsTargetErr(err)
}

func IsMalformedParamErr(err error) bool {
	return errors.Is(err, ErrMalformedParam)
}

func IsConflictingMarkersErr(err error) bool {
	return errors.Is(err, ErrConflictingMarkers)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedParam, fmt.Sprintf(format, args...))
}
