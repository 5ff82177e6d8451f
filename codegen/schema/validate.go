package schema

import (
	"errors"
	"fmt"
	"strings"

	adhoc "github.com/vast-data/go-adhoc"
)

var (
	// ErrDuplicatePackID is reported when two packs share an id.
	ErrDuplicatePackID = errors.New("duplicate pack id")
	// ErrMarkerIssue wraps an Issue recorded while building the document.
	ErrMarkerIssue = errors.New("marker issue")
)

// ValidationError is one problem found by Validate.
type ValidationError struct {
	Pack   string
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	owner := e.Pack
	if e.Field != "" {
		owner += "." + e.Field
	}
	if owner == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", owner, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationErr reports whether err is or wraps a *ValidationError.
func IsValidationErr(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// Validate checks a document against the rules the Go type system can answer:
// pack ids are unique, flags sit on integer types, dimension markers on array
// fields and distribution markers on numeric fields. Every Issue of the
// document is reported as well. All problems are joined into one error.
func Validate(doc *Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	var errs []error
	ids := make(map[uint64]string)

	for _, pack := range doc.Packs {
		qualified := pack.QualifiedName()
		if pack.ID != nil {
			if previous, dup := ids[*pack.ID]; dup {
				errs = append(errs, &ValidationError{Pack: qualified, Err: ErrDuplicatePackID,
					Reason: fmt.Sprintf("pack id %d already used by %s", *pack.ID, previous)})
			} else {
				ids[*pack.ID] = qualified
			}
		}
		if pack.Bitflags && !integerPack(pack) {
			errs = append(errs, &ValidationError{Pack: qualified, Err: adhoc.ErrWrongTarget,
				Reason: fmt.Sprintf("flags needs an integer enum type, got %s %s", pack.Kind, pack.Underlying)})
		}

		for _, field := range pack.Fields {
			if field.DimsMarker != "" && !arrayType(field.Type) {
				errs = append(errs, &ValidationError{Pack: qualified, Field: field.Name, Err: adhoc.ErrWrongTarget,
					Reason: fmt.Sprintf("%s needs an array or slice field, got %s", field.DimsMarker, field.Type)})
			}
			if field.DimsMarker != "" && arrayDepth(field.Type) > 0 && arrayDepth(field.Type) != field.Dims.Rank() {
				errs = append(errs, &ValidationError{Pack: qualified, Field: field.Name, Err: adhoc.ErrMalformedParam,
					Reason: fmt.Sprintf("%s=%s has rank %d but %s has %d axes",
						field.DimsMarker, field.Dims, field.Dims.Rank(), field.Type, arrayDepth(field.Type))})
			}
			if field.Distribution != nil && !numericType(field.Type) {
				errs = append(errs, &ValidationError{Pack: qualified, Field: field.Name, Err: adhoc.ErrWrongTarget,
					Reason: fmt.Sprintf("%s needs a numeric field, got %s", field.Distribution.Marker, field.Type)})
			}
		}
	}

	for _, issue := range doc.Issues {
		reason := issue.Message
		if issue.Position != "" {
			reason = issue.Position + ": " + reason
		}
		errs = append(errs, &ValidationError{Pack: issue.Pack, Field: issue.Field, Reason: reason, Err: ErrMarkerIssue})
	}
	return errors.Join(errs...)
}

var (
	integerTypes = map[string]bool{
		"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
		"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
		"uintptr": true, "byte": true, "rune": true,
	}
	floatTypes = map[string]bool{"float32": true, "float64": true}
	// predeclared types that are neither integers nor floats
	otherBuiltins = map[string]bool{
		"string": true, "bool": true, "complex64": true, "complex128": true,
		"any": true, "error": true, "struct": true, "interface": true,
	}
)

// integerPack reports whether the pack may be an integer enum. Named underlying
// types from other declarations are given the benefit of the doubt.
func integerPack(pack Pack) bool {
	if pack.Kind != "ident" {
		return false
	}
	if integerTypes[pack.Underlying] {
		return true
	}
	return !floatTypes[pack.Underlying] && !otherBuiltins[pack.Underlying]
}

// elemType strips pointers, slices and arrays from a type expression.
func elemType(typeExpr string) string {
	for {
		switch {
		case strings.HasPrefix(typeExpr, "*"):
			typeExpr = typeExpr[1:]
		case strings.HasPrefix(typeExpr, "["):
			end := strings.Index(typeExpr, "]")
			if end < 0 {
				return typeExpr
			}
			typeExpr = typeExpr[end+1:]
		default:
			return typeExpr
		}
	}
}

// arrayDepth counts the leading slice and array axes, zero for named types.
func arrayDepth(typeExpr string) int {
	depth := 0
	typeExpr = strings.TrimPrefix(typeExpr, "*")
	for strings.HasPrefix(typeExpr, "[") {
		end := strings.Index(typeExpr, "]")
		if end < 0 {
			break
		}
		depth++
		typeExpr = strings.TrimPrefix(typeExpr[end+1:], "*")
	}
	return depth
}

func arrayType(typeExpr string) bool {
	typeExpr = strings.TrimPrefix(typeExpr, "*")
	if strings.HasPrefix(typeExpr, "[") {
		return true
	}
	return namedType(typeExpr)
}

func numericType(typeExpr string) bool {
	elem := elemType(typeExpr)
	if integerTypes[elem] || floatTypes[elem] {
		return true
	}
	return namedType(elem)
}

// namedType reports whether typeExpr names a declared type whose underlying
// type is unknown here.
func namedType(typeExpr string) bool {
	if typeExpr == "" || otherBuiltins[typeExpr] || integerTypes[typeExpr] || floatTypes[typeExpr] {
		return false
	}
	for _, prefix := range []string{"map[", "chan ", "<-chan", "func(", "struct{", "interface{", "struct {", "interface {"} {
		if strings.HasPrefix(typeExpr, prefix) {
			return false
		}
	}
	return true
}
