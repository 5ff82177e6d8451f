package schema

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	adhoc "github.com/vast-data/go-adhoc"
)

const (
	extPackID       = "x-adhoc-id"
	extBitflags     = "x-adhoc-flags"
	extMarkers      = "x-adhoc-markers"
	extShape        = "x-adhoc-distribution"
	extValue        = "x-adhoc-value"
	extUnsigned     = "x-adhoc-unsigned"
	extAxis         = "x-adhoc-axis"
	extGoType       = "x-go-type"
	openAPIVersion  = "3.0.3"
	openAPITitle    = "AdHoc packs"
	componentPrefix = "#/components/schemas/"
)

// OpenAPI renders the packs of doc as OpenAPI component schemas. Marker data
// without an OpenAPI equivalent is carried in x-adhoc extensions.
func OpenAPI(doc *Document) *openapi3.T {
	title := openAPITitle
	if doc.Module != "" {
		title = doc.Module
	}
	spec := &openapi3.T{
		OpenAPI: openAPIVersion,
		Info:    &openapi3.Info{Title: title, Version: doc.CatalogVersion},
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas, len(doc.Packs)),
		},
	}

	names := componentNames(doc.Packs)
	for _, pack := range doc.Packs {
		spec.Components.Schemas[names[pack.QualifiedName()]] = &openapi3.SchemaRef{Value: packSchema(pack, doc.Packs, names)}
	}
	return spec
}

// componentNames keys packs by bare name unless two packages declare the same name.
func componentNames(packs []Pack) map[string]string {
	count := make(map[string]int, len(packs))
	for _, pack := range packs {
		count[pack.Name]++
	}
	names := make(map[string]string, len(packs))
	for _, pack := range packs {
		name := pack.Name
		if count[name] > 1 {
			name = strings.NewReplacer("/", "_", ".", "_").Replace(pack.QualifiedName())
		}
		names[pack.QualifiedName()] = name
	}
	return names
}

func packSchema(pack Pack, packs []Pack, names map[string]string) *openapi3.Schema {
	var schema *openapi3.Schema
	switch pack.Kind {
	case "struct":
		schema = openapi3.NewObjectSchema()
		for _, field := range pack.Fields {
			schema.Properties[field.Name] = fieldSchema(field, pack.Package, packs, names)
			if !field.Optional {
				schema.Required = append(schema.Required, field.Name)
			}
		}
	default:
		ref := typeSchema(pack.Underlying, pack.Package, packs, names)
		if ref.Value != nil {
			schema = ref.Value
		} else {
			schema = openapi3.NewSchema()
			schema.AllOf = openapi3.SchemaRefs{ref}
		}
	}
	if schema.Extensions == nil {
		schema.Extensions = make(map[string]any)
	}
	schema.Description = pack.Doc
	if pack.ID != nil {
		schema.Extensions[extPackID] = *pack.ID
	}
	if pack.Bitflags {
		schema.Extensions[extBitflags] = true
	}
	return schema
}

func fieldSchema(field Field, pkg string, packs []Pack, names map[string]string) *openapi3.SchemaRef {
	ref := typeSchema(field.Type, pkg, packs, names)
	if len(field.Markers) == 0 || ref.Ref != "" {
		return ref
	}
	schema := ref.Value
	schema.Extensions[extMarkers] = markerNames(field.Markers)

	// walk the array levels alongside the declared axes
	level := schema
	for _, axis := range field.Dims {
		if level == nil || level.Items == nil {
			break
		}
		switch axis.Kind {
		case adhoc.AxisFixed:
			n := uint64(axis.Len)
			level.MinItems = n
			level.MaxItems = &n
		case adhoc.AxisVariable:
			n := uint64(axis.Len)
			level.MaxItems = &n
		}
		level.Extensions[extAxis] = axis.String()
		// nil for references, which ends the walk
		level = level.Items.Value
	}

	if dist := field.Distribution; dist != nil {
		elem := schema
		for elem.Items != nil && elem.Items.Value != nil && elem.Items.Ref == "" {
			elem = elem.Items.Value
		}
		elem.Extensions[extShape] = dist.Shape.String()
		if dist.Unsigned {
			elem.Extensions[extUnsigned] = true
			zero := 0.0
			elem.Min = &zero
		}
		switch {
		case dist.Bound.Range != nil:
			lo, hi := dist.Bound.Range.Min, dist.Bound.Range.Max
			elem.Min = &lo
			elem.Max = &hi
		case dist.Bound.Given:
			elem.Extensions[extValue] = dist.Bound.Value
		}
	}
	if field.Optional {
		schema.Nullable = true
	}
	return ref
}

// typeSchema maps a Go type expression onto a schema. Types declared as packs
// become references; other named types keep their Go name in x-go-type.
func typeSchema(typeExpr, pkg string, packs []Pack, names map[string]string) *openapi3.SchemaRef {
	pointer := strings.HasPrefix(typeExpr, "*")
	typeExpr = strings.TrimPrefix(typeExpr, "*")

	var schema *openapi3.Schema
	switch {
	case strings.HasPrefix(typeExpr, "["):
		end := strings.Index(typeExpr, "]")
		items := typeSchema(typeExpr[end+1:], pkg, packs, names)
		schema = openapi3.NewArraySchema()
		schema.Items = items
		if size := typeExpr[1:end]; size != "" {
			schema.Extensions = map[string]any{"x-go-len": size}
		}
	case integerTypes[typeExpr]:
		schema = openapi3.NewIntegerSchema()
		if strings.HasSuffix(typeExpr, "64") {
			schema.Format = "int64"
		} else if strings.HasSuffix(typeExpr, "32") || typeExpr == "rune" {
			schema.Format = "int32"
		}
		if strings.HasPrefix(typeExpr, "uint") || typeExpr == "byte" {
			zero := 0.0
			schema.Min = &zero
		}
	case floatTypes[typeExpr]:
		schema = openapi3.NewFloat64Schema()
		if typeExpr == "float32" {
			schema.Format = "float"
		}
	case typeExpr == "string":
		schema = openapi3.NewStringSchema()
	case typeExpr == "bool":
		schema = openapi3.NewBoolSchema()
	default:
		if name, ok := lookupPack(typeExpr, pkg, packs, names); ok {
			return openapi3.NewSchemaRef(componentPrefix+name, nil)
		}
		schema = openapi3.NewSchema()
		schema.Extensions = map[string]any{extGoType: typeExpr}
	}
	if schema.Extensions == nil {
		schema.Extensions = make(map[string]any)
	}
	schema.Nullable = pointer
	return openapi3.NewSchemaRef("", schema)
}

func lookupPack(typeExpr, pkg string, packs []Pack, names map[string]string) (string, bool) {
	for _, pack := range packs {
		if pack.Package == pkg && pack.Name == typeExpr {
			return names[pack.QualifiedName()], true
		}
	}
	return "", false
}

func markerNames(list []adhoc.Marker) []string {
	out := make([]string, len(list))
	for i, m := range list {
		out[i] = string(m)
	}
	return out
}
