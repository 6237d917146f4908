package configlib

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// FieldDescriptor describes one member of a configuration type: its declared
// name, an optional explicit document key, its static type signature, an
// optional comment, an optional converter override, and the accessor pair the
// engine uses to read and write the member on an instance.
//
// Set is nil for product types (see TypeDescriptor.New); their members are
// fixed at construction time.
type FieldDescriptor struct {
	Name      string
	Key       string
	Signature Signature
	Comment   string
	Converter Converter
	Get       func(recv any) any
	Set       func(recv any, v any) error
}

// TypeDescriptor describes a configuration type as an ordered list of field
// descriptors. Descriptors are built once per type and cached process-wide;
// they are immutable after construction and safe for concurrent reads.
//
// When New is non-nil the type is a product type: the engine collects one
// value per field (defaults merged with document overrides, in field order)
// and passes them atomically to New instead of assigning fields on a
// pre-built instance.
type TypeDescriptor struct {
	Type   reflect.Type
	Fields []FieldDescriptor
	New    func(values []any) (any, error)
}

var descriptorCache sync.Map // reflect.Type -> *TypeDescriptor

// Describe returns the cached descriptor for T, building it by reflection
// over T's exported struct fields if necessary. Field behavior is declared
// via struct tags:
//
//	type Server struct {
//	    Host string `comment:"Bind address"`
//	    Port int    `conf:"listen_port"`
//	    Skip int    `conf:"-"`
//	}
//
// The conf tag overrides the document key (bypassing the field naming
// policy); "-" excludes the field. The comment tag is rendered as comment
// lines preceding the field.
func Describe[T any]() (*TypeDescriptor, error) {
	return describeType(reflect.TypeOf((*T)(nil)).Elem(), make(map[reflect.Type]bool))
}

// RegisterDescriptor installs a hand-built descriptor for td.Type, taking
// precedence over reflection. This is how immutable product types declare
// their members and constructor. Registering a descriptor for a type that
// already has one is an error.
func RegisterDescriptor(td *TypeDescriptor) error {
	if td == nil || td.Type == nil {
		return fmt.Errorf("descriptor and its type must not be nil")
	}
	if td.Type.Kind() != reflect.Struct {
		return fmt.Errorf("descriptor type %s must be a struct", td.Type)
	}
	for _, f := range td.Fields {
		if f.Get == nil {
			return fmt.Errorf("descriptor for %s: field %q has no Get accessor", td.Type, f.Name)
		}
		if td.New == nil && f.Set == nil {
			return fmt.Errorf("descriptor for %s: field %q has no Set accessor and no constructor is declared", td.Type, f.Name)
		}
	}
	if _, loaded := descriptorCache.LoadOrStore(td.Type, td); loaded {
		return fmt.Errorf("descriptor for %s already registered", td.Type)
	}
	return nil
}

func describeType(t reflect.Type, visiting map[reflect.Type]bool) (*TypeDescriptor, error) {
	if td, ok := descriptorCache.Load(t); ok {
		return td.(*TypeDescriptor), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, &UnsupportedTypeError{Type: t}
	}
	if visiting[t] {
		return nil, fmt.Errorf("configuration type recursively contains itself: %w", &UnsupportedTypeError{Type: t})
	}
	visiting[t] = true
	defer delete(visiting, t)

	td := &TypeDescriptor{Type: t}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("conf")
		if tag == "-" {
			continue
		}
		sig, err := signatureOf(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", sf.Name, err)
		}
		// Nested configuration types are validated eagerly so that a type
		// cycle surfaces here instead of during conversion.
		if err := describeNested(sig, visiting); err != nil {
			return nil, fmt.Errorf("field %q: %w", sf.Name, err)
		}
		index := sf.Index
		td.Fields = append(td.Fields, FieldDescriptor{
			Name:      sf.Name,
			Key:       strings.TrimSpace(tag),
			Signature: sig,
			Comment:   sf.Tag.Get("comment"),
			Get:       fieldGetter(index),
			Set:       fieldSetter(index, sf.Type, sf.Name),
		})
	}
	actual, _ := descriptorCache.LoadOrStore(t, td)
	return actual.(*TypeDescriptor), nil
}

func describeNested(sig Signature, visiting map[reflect.Type]bool) error {
	switch sig.Kind {
	case KindConfig:
		_, err := describeType(sig.Type, visiting)
		return err
	case KindSequence, KindPointer:
		return describeNested(*sig.Elem, visiting)
	case KindMap:
		return describeNested(*sig.Elem, visiting)
	default:
		return nil
	}
}

// fieldGetter reads a field off a struct or a pointer to one.
func fieldGetter(index []int) func(recv any) any {
	return func(recv any) any {
		rv := reflect.ValueOf(recv)
		if rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		return rv.FieldByIndex(index).Interface()
	}
}

// fieldSetter writes a field through a pointer to a struct. The engine's
// converters produce exactly-typed values, so anything non-assignable is a
// programming error in a custom converter.
func fieldSetter(index []int, ft reflect.Type, name string) func(recv any, v any) error {
	return func(recv any, v any) error {
		rv := reflect.ValueOf(recv)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return fmt.Errorf("cannot set field %q: target must be a non-nil pointer, got %T", name, recv)
		}
		fv := rv.Elem().FieldByIndex(index)
		if v == nil {
			fv.Set(reflect.Zero(ft))
			return nil
		}
		vv := reflect.ValueOf(v)
		if !vv.Type().AssignableTo(ft) {
			return fmt.Errorf("cannot set field %q: %w", name, &TypeMismatchError{Expected: ft.String(), Actual: vv.Type().String()})
		}
		fv.Set(vv)
		return nil
	}
}
