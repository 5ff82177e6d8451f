package markers

import (
	"errors"
	"fmt"
	"go/token"
)

// ErrUnknownMarker is returned by Registry.Lookup for names that were never registered.
var ErrUnknownMarker = errors.New("unknown marker")

// TargetError reports a registered marker applied to the wrong kind of declaration.
type TargetError struct {
	Marker string
	Want   TargetType
	Got    TargetType
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("marker %s describes a %s, not a %s", e.Marker, e.Want, e.Got)
}

// IsTargetErr reports whether err is or wraps a *TargetError.
func IsTargetErr(err error) bool {
	var targetErr *TargetError
	return errors.As(err, &targetErr)
}

// Diagnostic is a marker the collector found but could not apply.
type Diagnostic struct {
	// Marker is the raw marker text without the leading "+".
	Marker string
	// Owner names the declaration the marker was attached to ("Type" or "Type.Field"),
	// or the package name for markers in a package doc comment.
	Owner string
	// Target is the kind of declaration Owner names.
	Target TargetType
	// Position is the resolved source position, if a file set was available.
	Position token.Position
	// Err is the underlying problem: ErrUnknownMarker, *TargetError or a parse error.
	Err error
}

func (d Diagnostic) Error() string {
	if d.Position.IsValid() {
		return fmt.Sprintf("%s: %s: +%s: %v", d.Position, d.Owner, d.Marker, d.Err)
	}
	return fmt.Sprintf("%s: +%s: %v", d.Owner, d.Marker, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}
