package adhoc

import (
	"strings"
	"testing"
)

func TestCatalogVersion(t *testing.T) {
	v := CatalogVersion()

	if v == "" {
		t.Error("CatalogVersion() should not return empty string")
	}

	// Version should not contain newlines (should be trimmed)
	if strings.Contains(v, "\n") || strings.Contains(v, "\r") {
		t.Error("CatalogVersion() should not contain newline characters")
	}
}

func TestCheckCompatible(t *testing.T) {
	tests := []struct {
		constraint string
		wantErr    bool
	}{
		{"", false},
		{">= 1.0", false},
		{"~> 1.0", false},
		{">= 2.0", true},
		{"< 1.0", true},
		{"not a constraint", true},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			if err := CheckCompatible(tt.constraint); (err != nil) != tt.wantErr {
				t.Errorf("CheckCompatible(%q) error = %v, wantErr %v", tt.constraint, err, tt.wantErr)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		docVersion string
		wantErr    bool
	}{
		{CatalogVersion(), false},
		{"1.0", false},
		{"0.9.0", true},
		{"1.99.0", true},
		{"2.0.0", true},
		{"garbage", true},
	}
	for _, tt := range tests {
		t.Run(tt.docVersion, func(t *testing.T) {
			err := Compatible(tt.docVersion)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Compatible(%q) error = %v, wantErr %v", tt.docVersion, err, tt.wantErr)
			}
			if err != nil && !isErr(err, ErrIncompatibleCatalog) {
				t.Errorf("Compatible(%q) error = %v, want ErrIncompatibleCatalog", tt.docVersion, err)
			}
		})
	}
}
