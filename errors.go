package configlib

import (
	"fmt"
	"reflect"
)

// SyntaxError reports that the text of a configuration file is not
// well-formed for the configured codec.
type SyntaxError struct {
	Path string
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("configuration file %s does not contain a valid document: %v", e.Path, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// EmptyDocumentError reports that a configuration file is empty or only
// contains null.
type EmptyDocumentError struct {
	Path string
}

func (e *EmptyDocumentError) Error() string {
	return fmt.Sprintf("configuration file %s is empty or only contains null", e.Path)
}

// NotAMappingError reports that the top-level document is not a mapping and
// therefore does not represent a configuration.
type NotAMappingError struct {
	Path string
	Kind string
}

func (e *NotAMappingError) Error() string {
	return fmt.Sprintf("configuration file %s does not represent a configuration: expected a mapping but found a %s", e.Path, e.Kind)
}

// TypeMismatchError reports that a document value cannot be converted to a
// member's declared type.
type TypeMismatchError struct {
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("expected %s but found %s", e.Expected, e.Actual)
}

// UnsupportedTypeError reports that no converter resolves for a type.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("type %s is not supported as a configuration member", e.Type)
}

// SerializerOutputError reports that a custom converter produced a value the
// emitter cannot render. Custom serializers must always produce null, a
// scalar, a Seq, or a Doc.
type SerializerOutputError struct {
	Value any
}

func (e *SerializerOutputError) Error() string {
	return fmt.Sprintf("serializer produced a value of type %T which cannot be rendered; custom serializers must produce null, a scalar, a Seq, or a Doc", e.Value)
}

func mismatch(expected string, actual any) *TypeMismatchError {
	return &TypeMismatchError{Expected: expected, Actual: kindName(actual)}
}
