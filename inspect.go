package adhoc

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
)

var (
	bitflagsType   = reflect.TypeOf((*Bitflags)(nil)).Elem()
	identifiedType = reflect.TypeOf((*Identified)(nil)).Elem()
)

// TypeMeta is the marker metadata of one Go type, read through reflection.
type TypeMeta struct {
	Name    string       `json:"name" msgpack:"name"`
	PkgPath string       `json:"pkgPath" msgpack:"pkgPath"`
	Kind    reflect.Kind `json:"-" msgpack:"-"`
	// Bitflags is false unless the type declares AdHocBitflags.
	Bitflags  bool        `json:"bitflags" msgpack:"bitflags"`
	PackID    uint64      `json:"packId,omitempty" msgpack:"packId,omitempty"`
	HasPackID bool        `json:"hasPackId" msgpack:"hasPackId"`
	Fields    []FieldMeta `json:"fields,omitempty" msgpack:"fields,omitempty"`
}

// FieldMeta is one exported struct field and its tag markers.
type FieldMeta struct {
	Name        string       `json:"name" msgpack:"name"`
	Index       []int        `json:"-" msgpack:"-"`
	Type        reflect.Type `json:"-" msgpack:"-"`
	Tag         string       `json:"tag,omitempty" msgpack:"tag,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty" msgpack:"annotations,omitempty"`
	Markers     FieldMarkers `json:"markers" msgpack:"markers"`
}

type inspector struct {
	mu    sync.RWMutex
	cache map[reflect.Type]*TypeMeta
}

var defaultInspector = &inspector{cache: make(map[reflect.Type]*TypeMeta)}

// Inspect returns the marker metadata of v's type. Pointers are dereferenced.
func Inspect(v any) (*TypeMeta, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, errors.New("cannot inspect a nil value")
	}
	return InspectType(t)
}

// InspectType returns the marker metadata of t. Results are cached per type and
// shared between callers, so they must not be modified.
func InspectType(t reflect.Type) (*TypeMeta, error) {
	return defaultInspector.inspect(t)
}

func (in *inspector) inspect(t reflect.Type) (*TypeMeta, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	in.mu.RLock()
	meta, ok := in.cache[t]
	in.mu.RUnlock()
	if ok {
		return meta, nil
	}

	meta, err := buildTypeMeta(t)
	if err != nil {
		return nil, err
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if cached, ok := in.cache[t]; ok {
		return cached, nil
	}
	in.cache[t] = meta
	return meta, nil
}

func buildTypeMeta(t reflect.Type) (*TypeMeta, error) {
	meta := &TypeMeta{
		Name:    t.Name(),
		PkgPath: t.PkgPath(),
		Kind:    t.Kind(),
	}
	owner := meta.Name
	if owner == "" {
		owner = t.String()
	}

	var errs []error
	if t.Kind() == reflect.Interface {
		return meta, nil
	}
	if implements(t, bitflagsType) && declares(t, "AdHocBitflags", bitflagsType) {
		if !isInteger(t.Kind()) {
			errs = append(errs, &MarkerError{Marker: BitFlags, Owner: owner,
				Err: fmt.Errorf("%w: flags needs an integer enum type, %s is a %s", ErrWrongTarget, owner, t.Kind())})
		} else {
			meta.Bitflags = true
		}
	}
	if implements(t, identifiedType) && declares(t, "AdHocPackID", identifiedType) {
		id, err := packIDOf(t)
		if err != nil {
			errs = append(errs, &MarkerError{Marker: PackID, Owner: owner, Err: err})
		} else {
			meta.PackID = id
			meta.HasPackID = true
		}
	}

	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			field := FieldMeta{Name: sf.Name, Index: sf.Index, Type: sf.Type}
			if tag, ok := sf.Tag.Lookup(TagKey); ok {
				field.Tag = tag
				anns, err := ParseTag(tag)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s.%s: %w", owner, sf.Name, err))
					continue
				}
				resolved, err := ResolveField(anns)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s.%s: %w", owner, sf.Name, err))
					continue
				}
				field.Annotations = anns
				field.Markers = resolved
			}
			meta.Fields = append(meta.Fields, field)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return meta, nil
}

// implements checks the value and the pointer method sets.
func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

// declares reports whether t carries the marker method itself. Methods promoted
// from embedded fields belong to the embedded type and are ignored.
func declares(t reflect.Type, name string, iface reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return true
	}
	promoted := false
	for i := 0; i < t.NumField(); i++ {
		if sf := t.Field(i); sf.Anonymous && implements(sf.Type, iface) {
			promoted = true
			break
		}
	}
	if !promoted {
		return true
	}
	// an own method shadowing the promoted one is compiled from source,
	// promotion wrappers are generated
	for _, candidate := range []reflect.Type{t, reflect.PointerTo(t)} {
		m, ok := candidate.MethodByName(name)
		if !ok {
			continue
		}
		pc := m.Func.Pointer()
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if file, _ := fn.FileLine(pc); file != "<autogenerated>" {
			return true
		}
	}
	return false
}

// packIDOf calls AdHocPackID on a zero value of t.
func packIDOf(t reflect.Type) (id uint64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: AdHocPackID panicked on the zero value: %v", ErrMalformedParam, r)
		}
	}()
	return zeroOf(t).Interface().(Identified).AdHocPackID(), nil
}

// zeroOf returns a zero value whose method set includes pointer receiver methods.
func zeroOf(t reflect.Type) reflect.Value {
	if t.Implements(identifiedType) {
		return reflect.Zero(t)
	}
	return reflect.New(t)
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}
