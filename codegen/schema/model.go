// Package schema turns AdHoc markers found in Go code into the document an
// external binary-protocol generator consumes. Nothing here executes the
// annotated code: source is read with go/ast and compiled types with reflection.
package schema

import (
	adhoc "github.com/vast-data/go-adhoc"
)

// Document is the scan result handed to the generator.
type Document struct {
	// CatalogVersion is the marker catalog version the document was written with.
	CatalogVersion string `json:"catalogVersion" msgpack:"catalogVersion"`
	// Module is the module path from go.mod, empty for reflected documents.
	Module string `json:"module,omitempty" msgpack:"module,omitempty"`
	// Packs lists every type that carries at least one marker.
	Packs []Pack `json:"packs" msgpack:"packs"`
	// Issues lists markers that were found but could not be applied.
	Issues []Issue `json:"issues,omitempty" msgpack:"issues,omitempty"`
}

// Pack is one annotated type.
type Pack struct {
	Name string `json:"name" msgpack:"name"`
	// Package is the import path of the declaring package.
	Package string `json:"package" msgpack:"package"`
	// File is the declaring file relative to the scan root.
	File string `json:"file,omitempty" msgpack:"file,omitempty"`
	// Kind is "struct", "interface", "ident" or "other".
	Kind string `json:"kind" msgpack:"kind"`
	// Underlying is the underlying type of non-struct types, e.g. "uint8".
	Underlying string  `json:"underlying,omitempty" msgpack:"underlying,omitempty"`
	Bitflags   bool    `json:"bitflags,omitempty" msgpack:"bitflags,omitempty"`
	ID         *uint64 `json:"id,omitempty" msgpack:"id,omitempty"`
	Doc        string  `json:"doc,omitempty" msgpack:"doc,omitempty"`
	Fields     []Field `json:"fields,omitempty" msgpack:"fields,omitempty"`
}

// QualifiedName is "import/path.Name".
func (p Pack) QualifiedName() string {
	if p.Package == "" {
		return p.Name
	}
	return p.Package + "." + p.Name
}

// Field is one struct field with its resolved markers.
type Field struct {
	Name string `json:"name" msgpack:"name"`
	// Type is the Go type expression, e.g. "[][]int16".
	Type         string              `json:"type" msgpack:"type"`
	Optional     bool                `json:"optional,omitempty" msgpack:"optional,omitempty"`
	Markers      []adhoc.Marker      `json:"markers,omitempty" msgpack:"markers,omitempty"`
	Distribution *adhoc.Distribution `json:"distribution,omitempty" msgpack:"distribution,omitempty"`
	DimsMarker   adhoc.Marker        `json:"dimsMarker,omitempty" msgpack:"dimsMarker,omitempty"`
	Dims         adhoc.Dimensions    `json:"dims,omitempty" msgpack:"dims,omitempty"`
}

// Issue is a marker problem found while building the document.
type Issue struct {
	Pack     string `json:"pack,omitempty" msgpack:"pack,omitempty"`
	Field    string `json:"field,omitempty" msgpack:"field,omitempty"`
	Marker   string `json:"marker,omitempty" msgpack:"marker,omitempty"`
	Position string `json:"position,omitempty" msgpack:"position,omitempty"`
	Message  string `json:"message" msgpack:"message"`
}

func newField(name, typeExpr string, resolved adhoc.FieldMarkers) Field {
	return Field{
		Name:         name,
		Type:         typeExpr,
		Optional:     resolved.Optional,
		Markers:      resolved.Markers,
		Distribution: resolved.Distribution,
		DimsMarker:   resolved.DimsMarker,
		Dims:         resolved.Dims,
	}
}
