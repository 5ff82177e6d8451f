package schema

import (
	"errors"
	"reflect"

	adhoc "github.com/vast-data/go-adhoc"
)

// FromTypes builds a document from compiled types through reflection. Only the
// struct tag and method set channels are visible this way; comment markers need
// a Scanner. Types that fail inspection are reported in the joined error and
// left out of the document.
func FromTypes(types ...reflect.Type) (*Document, error) {
	doc := &Document{CatalogVersion: adhoc.CatalogVersion()}
	var errs []error
	for _, t := range types {
		if t == nil {
			continue
		}
		meta, err := adhoc.InspectType(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		pack := Pack{
			Name:     meta.Name,
			Package:  meta.PkgPath,
			Kind:     reflectKind(meta.Kind),
			Bitflags: meta.Bitflags,
		}
		if meta.Kind != reflect.Struct && meta.Kind != reflect.Interface {
			pack.Underlying = meta.Kind.String()
		}
		if meta.HasPackID {
			id := meta.PackID
			pack.ID = &id
		}
		for _, field := range meta.Fields {
			pack.Fields = append(pack.Fields, newField(field.Name, field.Type.String(), field.Markers))
		}
		doc.Packs = append(doc.Packs, pack)
	}
	return doc, errors.Join(errs...)
}

// reflectKind maps a reflect kind onto the Kind values the scanner reports.
func reflectKind(k reflect.Kind) string {
	switch k {
	case reflect.Struct:
		return "struct"
	case reflect.Interface:
		return "interface"
	case reflect.Array, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Pointer:
		return "other"
	default:
		return "ident"
	}
}
