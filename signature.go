package configlib

import (
	"fmt"
	"reflect"
)

// SignatureKind discriminates the closed set of type shapes the engine knows
// how to convert. Every supported Go type reduces to exactly one kind.
type SignatureKind int

const (
	KindBool SignatureKind = iota
	KindInt
	KindUint
	KindFloat
	KindString
	// KindSequence covers slices and arrays; Elem holds the element
	// signature.
	KindSequence
	// KindMap covers maps with string-representable keys; Key and Elem hold
	// the key and value signatures.
	KindMap
	// KindConfig covers nested configuration structs, converted through
	// their own type descriptor.
	KindConfig
	// KindPointer is the nullable wrapper; Elem holds the pointee signature.
	KindPointer
)

func (k SignatureKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	case KindConfig:
		return "config"
	case KindPointer:
		return "pointer"
	default:
		return fmt.Sprintf("SignatureKind(%d)", int(k))
	}
}

// Signature is the static type signature of a configuration member: the
// concrete Go type plus its reduced shape. Signatures for composite kinds
// carry the signatures of their parts.
type Signature struct {
	Kind SignatureKind
	Type reflect.Type
	Key  *Signature // map key, nil otherwise
	Elem *Signature // sequence element, map value, or pointee
}

// signatureOf reduces a Go type to its signature. Types outside the supported
// universe (chan, func, complex, plain interfaces, ...) fail with
// UnsupportedTypeError naming the type.
func signatureOf(t reflect.Type) (Signature, error) {
	switch t.Kind() {
	case reflect.Bool:
		return Signature{Kind: KindBool, Type: t}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Signature{Kind: KindInt, Type: t}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Signature{Kind: KindUint, Type: t}, nil
	case reflect.Float32, reflect.Float64:
		return Signature{Kind: KindFloat, Type: t}, nil
	case reflect.String:
		return Signature{Kind: KindString, Type: t}, nil
	case reflect.Slice, reflect.Array:
		elem, err := signatureOf(t.Elem())
		if err != nil {
			return Signature{}, err
		}
		return Signature{Kind: KindSequence, Type: t, Elem: &elem}, nil
	case reflect.Map:
		key, err := signatureOf(t.Key())
		if err != nil {
			return Signature{}, err
		}
		if !stringRepresentable(key.Kind) {
			return Signature{}, &UnsupportedTypeError{Type: t.Key()}
		}
		elem, err := signatureOf(t.Elem())
		if err != nil {
			return Signature{}, err
		}
		return Signature{Kind: KindMap, Type: t, Key: &key, Elem: &elem}, nil
	case reflect.Struct:
		return Signature{Kind: KindConfig, Type: t}, nil
	case reflect.Pointer:
		elem, err := signatureOf(t.Elem())
		if err != nil {
			return Signature{}, err
		}
		return Signature{Kind: KindPointer, Type: t, Elem: &elem}, nil
	default:
		return Signature{}, &UnsupportedTypeError{Type: t}
	}
}

// stringRepresentable reports whether a map key of this kind can round-trip
// through a document key string.
func stringRepresentable(k SignatureKind) bool {
	switch k {
	case KindBool, KindInt, KindUint, KindFloat, KindString:
		return true
	default:
		return false
	}
}

func (s Signature) String() string {
	switch s.Kind {
	case KindSequence:
		return fmt.Sprintf("sequence of %s", s.Elem)
	case KindMap:
		return fmt.Sprintf("map of %s to %s", s.Key, s.Elem)
	case KindPointer:
		return fmt.Sprintf("optional %s", s.Elem)
	default:
		return s.Type.String()
	}
}
