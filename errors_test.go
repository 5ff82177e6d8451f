package adhoc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vast-data/go-adhoc/codegen/markers"
)

func isErr(err, target error) bool {
	return errors.Is(err, target)
}

func TestMarkerError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *MarkerError
		want string
	}{
		{
			name: "with owner",
			err:  &MarkerError{Marker: Dims, Owner: "Frame.Pixels", Err: ErrMissingParam},
			want: "Frame.Pixels: marker D: missing marker parameter",
		},
		{
			name: "without owner",
			err:  &MarkerError{Marker: PackID, Err: ErrMalformedParam},
			want: "marker id: malformed marker parameter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	wrapped := fmt.Errorf("scan: %w", &MarkerError{Marker: Ascending, Err: ErrConflictingMarkers})

	tests := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"marker error", IsMarkerErr, wrapped, true},
		{"marker error nil", IsMarkerErr, nil, false},
		{"conflicting", IsConflictingMarkersErr, wrapped, true},
		{"malformed", IsMalformedParamErr, malformed("bad"), true},
		{"malformed other", IsMalformedParamErr, errors.New("bad"), false},
		{"wrong target sentinel", IsWrongTargetErr, fmt.Errorf("x: %w", ErrWrongTarget), true},
		{"wrong target collector", IsWrongTargetErr, &markers.TargetError{Marker: "adhoc:A"}, true},
		{"wrong target other", IsWrongTargetErr, ErrMissingParam, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if !errors.Is(ErrUnknownMarker, markers.ErrUnknownMarker) {
		t.Error("ErrUnknownMarker should be the collector's sentinel")
	}
}
