package markers

import (
	"go/ast"
	"go/token"
	"reflect"
)

// TargetType describes which kind of Go construct a marker can be applied to.
type TargetType int

const (
	// DescribesPackage indicates that a marker is associated with a package.
	DescribesPackage TargetType = iota
	// DescribesType indicates that a marker is associated with a type declaration.
	DescribesType
	// DescribesField indicates that a marker is associated with a struct field.
	DescribesField
	// DescribesDeclaration covers every other declaration (const, var, func).
	// No marker can be registered for it; it only appears in diagnostics.
	DescribesDeclaration
)

func (t TargetType) String() string {
	switch t {
	case DescribesPackage:
		return "package"
	case DescribesType:
		return "type"
	case DescribesField:
		return "field"
	case DescribesDeclaration:
		return "declaration"
	default:
		return "unknown"
	}
}

// MarshalText renders the target by name so encoded documents stay readable.
func (t TargetType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ArgumentType represents the type of marker arguments.
type ArgumentType int

const (
	// InvalidType represents a type that can't be parsed.
	InvalidType ArgumentType = iota
	// StringType is a string argument.
	StringType
	// IntType is a signed integer argument.
	IntType
	// UintType is an unsigned integer argument.
	UintType
	// FloatType is a floating point argument.
	FloatType
	// BoolType is a boolean argument.
	BoolType
	// SliceType is a slice argument.
	SliceType
	// MapType is a map argument with string keys.
	MapType
	// AnyType matches any type (interface{}).
	AnyType
	// TextType is any type implementing encoding.TextUnmarshaler.
	TextType
)

// Argument describes the type and properties of a marker argument.
type Argument struct {
	// Type is the type of this argument.
	Type ArgumentType
	// Optional indicates if this argument is optional.
	Optional bool
	// ItemType is the type of slice items or map values.
	ItemType *Argument
}

// Definition defines how to parse a specific marker.
type Definition struct {
	// Name is the marker's name (e.g., "adhoc:id").
	Name string
	// Target indicates which Go constructs this marker can be applied to.
	Target TargetType
	// OutputType is the Go type that this marker parses into.
	OutputType reflect.Type
	// Fields maps argument names to their types (for struct outputs).
	Fields map[string]Argument
	// FieldNames maps argument names to struct field names.
	FieldNames map[string]string
	// Description provides help text for this marker.
	Description string
}

// MarkerValue represents a parsed marker with its associated AST node.
type MarkerValue struct {
	// Name is the marker name.
	Name string `json:"name"`
	// Value is the parsed marker value.
	Value interface{} `json:"value"`
	// Node is the AST node this marker is associated with.
	Node ast.Node `json:"-"`
	// Target indicates what type of construct this marker describes.
	Target TargetType `json:"target"`
	// Position is the source position of the marker comment.
	Position token.Pos `json:"position"`
	// FromTag is set when the marker was read from a struct tag.
	FromTag bool `json:"fromTag,omitempty"`
}

// MarkerValues maps marker names to their parsed values.
type MarkerValues map[string][]interface{}

// Get returns the first value for the given marker name, or nil if not found.
func (v MarkerValues) Get(name string) interface{} {
	vals := v[name]
	if len(vals) == 0 {
		return nil
	}
	return vals[0]
}

// GetAll returns all values for the given marker name.
func (v MarkerValues) GetAll(name string) []interface{} {
	return v[name]
}

// Has returns true if the marker name exists (even with empty values).
func (v MarkerValues) Has(name string) bool {
	_, exists := v[name]
	return exists
}

// Len returns the number of parsed values across all marker names.
func (v MarkerValues) Len() int {
	n := 0
	for _, vals := range v {
		n += len(vals)
	}
	return n
}

// TypeInfo contains information about a parsed Go type and its markers.
type TypeInfo struct {
	// Name is the type name.
	Name string
	// Kind is "struct", "interface", "ident" (named or basic type), or "other".
	Kind string
	// Underlying is the source text of the type expression for non-struct types,
	// e.g. "uint8" for `type Color uint8`.
	Underlying string
	// Markers are the markers associated with this type.
	Markers MarkerValues
	// Fields are the struct fields (if this is a struct type).
	Fields []FieldInfo
	// Doc is the documentation comment.
	Doc string
	// Diagnostics lists markers of this type and its fields that could not be applied.
	Diagnostics []Diagnostic
	// RawDecl is the raw AST declaration.
	RawDecl *ast.GenDecl
	// RawSpec is the raw AST type spec.
	RawSpec *ast.TypeSpec
	// RawFile is the raw AST file.
	RawFile *ast.File
}

// FieldInfo contains information about a struct field and its markers.
type FieldInfo struct {
	// Name is the field name. Embedded fields use the embedded type name.
	Name string
	// Embedded is set for anonymous fields.
	Embedded bool
	// TypeExpr is the source text of the field type, e.g. "[][]int16".
	TypeExpr string
	// Markers are the markers associated with this field.
	Markers MarkerValues
	// Order lists marker names of this field in source order, doc comment first, then tag.
	Order []string
	// Tag is the struct tag.
	Tag reflect.StructTag
	// Doc is the documentation comment.
	Doc string
	// RawField is the raw AST field.
	RawField *ast.Field
}

// FileInfo is everything the collector read from one Go file.
type FileInfo struct {
	// Filename is the name the file was parsed under.
	Filename string
	// Package is the package clause name.
	Package string
	// Types lists the top-level type declarations in source order.
	Types []*TypeInfo
	// Markers lists every applied marker of the file in source order.
	Markers []MarkerValue
	// Diagnostics lists every marker of the file that could not be applied,
	// including the ones also reported on a TypeInfo.
	Diagnostics []Diagnostic
	// RawFile is the parsed file.
	RawFile *ast.File
	// Fset resolves positions of RawFile.
	Fset *token.FileSet
}

// TypeCallback is called for each type found during parsing.
type TypeCallback func(*TypeInfo)
