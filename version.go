package adhoc

import (
	_ "embed"
	"fmt"
	"strings"

	version "github.com/hashicorp/go-version"
)

//go:embed version
var catalogVersion string

// CatalogVersion is the version of the marker catalog. The major version changes
// whenever a token, target or parameter format changes meaning.
func CatalogVersion() string {
	return strings.TrimSpace(catalogVersion)
}

// CheckCompatible reports whether this catalog satisfies a version constraint
// such as ">= 1.0, < 2.0". An empty constraint always passes.
func CheckCompatible(constraint string) error {
	if strings.TrimSpace(constraint) == "" {
		return nil
	}
	constraints, err := version.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid catalog constraint %q: %w", constraint, err)
	}
	current := version.Must(version.NewVersion(CatalogVersion()))
	if !constraints.Check(current) {
		return fmt.Errorf("%w: catalog %s does not satisfy %q", ErrIncompatibleCatalog, current, constraint)
	}
	return nil
}

// Compatible reports whether a document written by catalog docVersion can be read
// by this catalog: the major versions must match and the document must not be newer.
func Compatible(docVersion string) error {
	doc, err := version.NewVersion(docVersion)
	if err != nil {
		return fmt.Errorf("%w: %q is not a version: %v", ErrIncompatibleCatalog, docVersion, err)
	}
	current := version.Must(version.NewVersion(CatalogVersion()))
	if doc.Segments()[0] != current.Segments()[0] {
		return fmt.Errorf("%w: document catalog %s, running %s", ErrIncompatibleCatalog, doc, current)
	}
	if doc.GreaterThan(current) {
		return fmt.Errorf("%w: document catalog %s is newer than %s", ErrIncompatibleCatalog, doc, current)
	}
	return nil
}
