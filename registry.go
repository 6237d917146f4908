package configlib

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// Converter is a polymorphic serialize/deserialize pair for one type.
// Serialize turns a member value into a document tree value (null, scalar,
// Seq, or Doc); Deserialize turns a tree value back into the member value.
type Converter interface {
	Serialize(v any) (any, error)
	Deserialize(v any) (any, error)
}

// Registry resolves converters for member types. User-registered converters
// are consulted before the engine's built-ins; registering two converters for
// the same type is an error.
type Registry struct {
	mu      sync.RWMutex
	entries map[reflect.Type]Converter
}

func newRegistry() *Registry {
	return &Registry{entries: make(map[reflect.Type]Converter)}
}

// Register associates a converter with a concrete type.
func (r *Registry) Register(t reflect.Type, c Converter) error {
	if t == nil || c == nil {
		return fmt.Errorf("converter registration requires a type and a converter")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[t]; exists {
		return fmt.Errorf("converter for %s already registered", t)
	}
	r.entries[t] = c
	return nil
}

func (r *Registry) lookup(t reflect.Type) (Converter, bool) {
	r.mu.RLock()
	c, ok := r.entries[t]
	r.mu.RUnlock()
	return c, ok
}

// Registration is a deferred converter registration. Packages that define
// converters expose values of this type so callers opt in explicitly instead
// of relying on import side-effects (init functions).
//
// Usage:
//
//	r, _ := configlib.NewRegistry(configlib.Stdlib(), myConverter)
type Registration func(r *Registry) error

// NewConverter wraps a typed serialize/deserialize pair into a Registration
// for T. The deserialize function receives a document tree value and must
// return the member value; the serialize function does the reverse.
func NewConverter[T any](serialize func(T) (any, error), deserialize func(any) (T, error)) Registration {
	return func(r *Registry) error {
		t := reflect.TypeOf((*T)(nil)).Elem()
		return r.Register(t, funcConverter[T]{serialize: serialize, deserialize: deserialize})
	}
}

type funcConverter[T any] struct {
	serialize   func(T) (any, error)
	deserialize func(any) (T, error)
}

func (c funcConverter[T]) Serialize(v any) (any, error) {
	tv, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("serialize: expected %T, got %T", tv, v)
	}
	return c.serialize(tv)
}

func (c funcConverter[T]) Deserialize(v any) (any, error) {
	return c.deserialize(v)
}

// Enum declares T as an enumeration with the given name table. Values
// serialize to their declared name; deserialization matches names exactly
// (case-sensitive) and fails on unknown names.
func Enum[T comparable](names map[string]T) Registration {
	return func(r *Registry) error {
		t := reflect.TypeOf((*T)(nil)).Elem()
		byName := make(map[string]T, len(names))
		byValue := make(map[T]string, len(names))
		declared := make([]string, 0, len(names))
		for name, value := range names {
			byName[name] = value
			byValue[value] = name
			declared = append(declared, name)
		}
		sort.Strings(declared)
		return r.Register(t, enumConverter[T]{byName: byName, byValue: byValue, declared: declared})
	}
}

type enumConverter[T comparable] struct {
	byName   map[string]T
	byValue  map[T]string
	declared []string
}

func (c enumConverter[T]) Serialize(v any) (any, error) {
	tv, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("serialize: expected %T, got %T", tv, v)
	}
	name, ok := c.byValue[tv]
	if !ok {
		return nil, fmt.Errorf("value %v is not a declared enumeration member", tv)
	}
	return name, nil
}

func (c enumConverter[T]) Deserialize(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, mismatch("an enumeration name", v)
	}
	tv, ok := c.byName[s]
	if !ok {
		return nil, &TypeMismatchError{
			Expected: fmt.Sprintf("one of [%s]", strings.Join(c.declared, ", ")),
			Actual:   fmt.Sprintf("%q", s),
		}
	}
	return tv, nil
}

// Group groups multiple registrations into one so bundles can be passed
// around as a single value.
func Group(regs ...Registration) Registration {
	return func(r *Registry) error { return Apply(r, regs...) }
}

// Apply applies one or more registrations to an existing registry. Stops at
// the first error and returns it.
func Apply(r *Registry, regs ...Registration) error {
	for _, reg := range regs {
		if err := reg(r); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry constructs a new registry and applies the provided
// registrations.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := newRegistry()
	if err := Apply(r, regs...); err != nil {
		return nil, err
	}
	return r, nil
}
