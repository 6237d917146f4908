package configlib

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// engine is the recursive serialize/deserialize core. One engine serves one
// store; it owns no mutable state beyond the registry and settings it was
// built with, so a single conversion call is a pure in-memory tree walk.
type engine struct {
	registry *Registry
	settings *Settings
}

func (e *engine) keyFor(f *FieldDescriptor) string {
	if f.Key != "" {
		return f.Key
	}
	return e.settings.fieldNames(f.Name)
}

// serialize converts an instance of td.Type into a document. Output key
// order equals field declaration order. Null members are omitted entirely
// unless OutputNulls is set, in which case they appear as explicit nulls with
// their comment attached.
func (e *engine) serialize(td *TypeDescriptor, instance any) (Doc, error) {
	out := make(Doc, 0, len(td.Fields))
	for i := range td.Fields {
		f := &td.Fields[i]
		key := e.keyFor(f)
		v := f.Get(instance)
		if isNull(v) {
			if e.settings.OutputNulls {
				out = append(out, Entry{Key: key, Value: nil, Comment: f.Comment})
			}
			continue
		}
		conv, err := e.converterFor(f.Signature, f.Converter)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		raw, err := conv.Serialize(v)
		if err != nil {
			return nil, fmt.Errorf("serialize field %q: %w", f.Name, err)
		}
		node, err := normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("serialize field %q: %w", f.Name, err)
		}
		out = append(out, Entry{Key: key, Value: node, Comment: f.Comment})
	}
	return out, nil
}

// deserialize builds an instance of td.Type from doc, starting from the
// given defaults instance. Keys absent from doc leave the default value
// untouched; unknown keys in doc are ignored.
func (e *engine) deserialize(td *TypeDescriptor, doc Doc, defaults any) (any, error) {
	if td.New != nil {
		values := make([]any, len(td.Fields))
		for i := range td.Fields {
			values[i] = td.Fields[i].Get(defaults)
		}
		for i := range td.Fields {
			f := &td.Fields[i]
			v, present, err := e.fieldValue(f, doc)
			if err != nil {
				return nil, err
			}
			if present {
				values[i] = v
			}
		}
		inst, err := td.New(values)
		if err != nil {
			return nil, fmt.Errorf("construct %s: %w", td.Type, err)
		}
		return inst, nil
	}

	target := reflect.New(td.Type)
	target.Elem().Set(reflect.ValueOf(defaults))
	for i := range td.Fields {
		f := &td.Fields[i]
		v, present, err := e.fieldValue(f, doc)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		if err := f.Set(target.Interface(), v); err != nil {
			return nil, err
		}
	}
	return target.Elem().Interface(), nil
}

// fieldValue resolves the three-way absent / present-null / present-value
// case for one field. present=false means the default stays untouched.
func (e *engine) fieldValue(f *FieldDescriptor, doc Doc) (v any, present bool, err error) {
	raw, ok := doc.Get(e.keyFor(f))
	if !ok {
		return nil, false, nil
	}
	if raw == nil {
		if !e.settings.InputNulls {
			return nil, false, nil
		}
		if !nullable(f.Signature) {
			return nil, false, fmt.Errorf("deserialize field %q: %w", f.Name, mismatch(f.Signature.String(), nil))
		}
		return nil, true, nil
	}
	conv, err := e.converterFor(f.Signature, f.Converter)
	if err != nil {
		return nil, false, fmt.Errorf("field %q: %w", f.Name, err)
	}
	v, err = conv.Deserialize(raw)
	if err != nil {
		return nil, false, fmt.Errorf("deserialize field %q: %w", f.Name, err)
	}
	return v, true, nil
}

// converterFor resolves the converter for a signature: the field-level
// override first, then user registrations, then the built-ins, matched
// exhaustively over the signature kinds.
func (e *engine) converterFor(sig Signature, override Converter) (Converter, error) {
	if override != nil {
		return override, nil
	}
	if c, ok := e.registry.lookup(sig.Type); ok {
		return c, nil
	}
	switch sig.Kind {
	case KindBool:
		return boolConverter{typ: sig.Type}, nil
	case KindInt:
		return intConverter{typ: sig.Type}, nil
	case KindUint:
		return uintConverter{typ: sig.Type}, nil
	case KindFloat:
		return floatConverter{typ: sig.Type}, nil
	case KindString:
		return stringConverter{typ: sig.Type}, nil
	case KindSequence:
		elem, err := e.converterFor(*sig.Elem, nil)
		if err != nil {
			return nil, err
		}
		return sequenceConverter{typ: sig.Type, elemSig: *sig.Elem, elem: elem, outputNulls: e.settings.OutputNulls}, nil
	case KindMap:
		value, err := e.converterFor(*sig.Elem, nil)
		if err != nil {
			return nil, err
		}
		return mapConverter{typ: sig.Type, valueSig: *sig.Elem, value: value, outputNulls: e.settings.OutputNulls}, nil
	case KindConfig:
		td, err := describeType(sig.Type, make(map[reflect.Type]bool))
		if err != nil {
			return nil, err
		}
		// A struct with no members and no registered converter (time.Time
		// without Stdlib, say) would round-trip lossily through an empty
		// mapping; refuse it instead.
		if len(td.Fields) == 0 && td.New == nil {
			return nil, &UnsupportedTypeError{Type: sig.Type}
		}
		return configConverter{engine: e, td: td}, nil
	case KindPointer:
		elem, err := e.converterFor(*sig.Elem, nil)
		if err != nil {
			return nil, err
		}
		return pointerConverter{typ: sig.Type, elem: elem}, nil
	default:
		return nil, &UnsupportedTypeError{Type: sig.Type}
	}
}

// isNull reports whether a member value represents null: a nil interface or
// a nil pointer, map, slice, or interface value.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// nullable reports whether a signature admits an explicit null. Setting a
// non-nullable member to null is a deserialization error.
func nullable(sig Signature) bool {
	switch sig.Type.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return true
	default:
		return false
	}
}

// normalize reduces a converter's output to canonical tree values: nil,
// bool, int64, float64, string, Seq, Doc. Anything else is invalid
// serializer output.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool, int64, float64, string:
		return v, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint:
		return normalizeUint(uint64(t))
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return normalizeUint(t)
	case float32:
		return float64(t), nil
	case Seq:
		out := make(Seq, len(t))
		for i, ev := range t {
			nv, err := normalize(ev)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	case []any:
		return normalize(Seq(t))
	case Doc:
		out := make(Doc, len(t))
		for i, entry := range t {
			nv, err := normalize(entry.Value)
			if err != nil {
				return nil, err
			}
			out[i] = Entry{Key: entry.Key, Value: nv, Comment: entry.Comment}
		}
		return out, nil
	default:
		return nil, &SerializerOutputError{Value: v}
	}
}

func normalizeUint(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("unsigned value %d overflows the integer scalar range", u)
	}
	return int64(u), nil
}

type boolConverter struct {
	typ reflect.Type
}

func (c boolConverter) Serialize(v any) (any, error) {
	return reflect.ValueOf(v).Bool(), nil
}

func (c boolConverter) Deserialize(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, mismatch("a boolean scalar", v)
	}
	return reflect.ValueOf(b).Convert(c.typ).Interface(), nil
}

type intConverter struct {
	typ reflect.Type
}

func (c intConverter) Serialize(v any) (any, error) {
	return reflect.ValueOf(v).Int(), nil
}

func (c intConverter) Deserialize(v any) (any, error) {
	i, ok := v.(int64)
	if !ok {
		return nil, mismatch("an integer scalar", v)
	}
	out := reflect.New(c.typ).Elem()
	if out.OverflowInt(i) {
		return nil, &TypeMismatchError{Expected: c.typ.String(), Actual: fmt.Sprintf("out-of-range integer %d", i)}
	}
	out.SetInt(i)
	return out.Interface(), nil
}

type uintConverter struct {
	typ reflect.Type
}

func (c uintConverter) Serialize(v any) (any, error) {
	return normalizeUint(reflect.ValueOf(v).Uint())
}

func (c uintConverter) Deserialize(v any) (any, error) {
	i, ok := v.(int64)
	if !ok {
		return nil, mismatch("an integer scalar", v)
	}
	if i < 0 {
		return nil, &TypeMismatchError{Expected: c.typ.String(), Actual: fmt.Sprintf("negative integer %d", i)}
	}
	out := reflect.New(c.typ).Elem()
	if out.OverflowUint(uint64(i)) {
		return nil, &TypeMismatchError{Expected: c.typ.String(), Actual: fmt.Sprintf("out-of-range integer %d", i)}
	}
	out.SetUint(uint64(i))
	return out.Interface(), nil
}

type floatConverter struct {
	typ reflect.Type
}

func (c floatConverter) Serialize(v any) (any, error) {
	return reflect.ValueOf(v).Float(), nil
}

func (c floatConverter) Deserialize(v any) (any, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int64:
		// Integer scalars promote to float members, never the reverse.
		f = float64(t)
	default:
		return nil, mismatch("a float scalar", v)
	}
	out := reflect.New(c.typ).Elem()
	if out.OverflowFloat(f) {
		return nil, &TypeMismatchError{Expected: c.typ.String(), Actual: fmt.Sprintf("out-of-range float %g", f)}
	}
	out.SetFloat(f)
	return out.Interface(), nil
}

type stringConverter struct {
	typ reflect.Type
}

func (c stringConverter) Serialize(v any) (any, error) {
	return reflect.ValueOf(v).String(), nil
}

func (c stringConverter) Deserialize(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, mismatch("a string scalar", v)
	}
	return reflect.ValueOf(s).Convert(c.typ).Interface(), nil
}

type sequenceConverter struct {
	typ         reflect.Type
	elemSig     Signature
	elem        Converter
	outputNulls bool
}

func (c sequenceConverter) Serialize(v any) (any, error) {
	rv := reflect.ValueOf(v)
	out := make(Seq, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		ev := rv.Index(i).Interface()
		if isNull(ev) {
			// The null-output gate applies to collection elements too:
			// without it a null element is dropped from the sequence.
			if c.outputNulls {
				out = append(out, nil)
			}
			continue
		}
		node, err := c.elem.Serialize(ev)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, node)
	}
	return out, nil
}

func (c sequenceConverter) Deserialize(v any) (any, error) {
	seq, ok := v.(Seq)
	if !ok {
		return nil, mismatch("a sequence", v)
	}
	var out reflect.Value
	switch c.typ.Kind() {
	case reflect.Slice:
		out = reflect.MakeSlice(c.typ, len(seq), len(seq))
	default: // array
		if len(seq) != c.typ.Len() {
			return nil, &TypeMismatchError{
				Expected: fmt.Sprintf("a sequence of length %d", c.typ.Len()),
				Actual:   fmt.Sprintf("a sequence of length %d", len(seq)),
			}
		}
		out = reflect.New(c.typ).Elem()
	}
	for i, raw := range seq {
		if raw == nil {
			if !nullable(c.elemSig) {
				return nil, fmt.Errorf("element %d: %w", i, mismatch(c.elemSig.String(), nil))
			}
			continue
		}
		ev, err := c.elem.Deserialize(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(ev))
	}
	return out.Interface(), nil
}

type mapConverter struct {
	typ         reflect.Type
	valueSig    Signature
	value       Converter
	outputNulls bool
}

func (c mapConverter) Serialize(v any) (any, error) {
	rv := reflect.ValueOf(v)
	// Go maps have no iteration order to preserve; sort keys so output is
	// deterministic.
	keys := make([]string, 0, rv.Len())
	byKey := make(map[string]reflect.Value, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := formatMapKey(iter.Key())
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		byKey[k] = iter.Value()
	}
	sort.Strings(keys)
	out := make(Doc, 0, len(keys))
	for _, k := range keys {
		ev := byKey[k].Interface()
		if isNull(ev) {
			if c.outputNulls {
				out = append(out, Entry{Key: k, Value: nil})
			}
			continue
		}
		node, err := c.value.Serialize(ev)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out = append(out, Entry{Key: k, Value: node})
	}
	return out, nil
}

func (c mapConverter) Deserialize(v any) (any, error) {
	doc, ok := v.(Doc)
	if !ok {
		return nil, mismatch("a mapping", v)
	}
	out := reflect.MakeMapWithSize(c.typ, len(doc))
	for _, entry := range doc {
		kv, err := parseMapKey(entry.Key, c.typ.Key())
		if err != nil {
			return nil, err
		}
		if entry.Value == nil {
			if !nullable(c.valueSig) {
				return nil, fmt.Errorf("key %q: %w", entry.Key, mismatch(c.valueSig.String(), nil))
			}
			out.SetMapIndex(kv, reflect.Zero(c.typ.Elem()))
			continue
		}
		ev, err := c.value.Deserialize(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", entry.Key, err)
		}
		out.SetMapIndex(kv, reflect.ValueOf(ev))
	}
	return out.Interface(), nil
}

func formatMapKey(rv reflect.Value) (string, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	case reflect.String:
		return rv.String(), nil
	default:
		return "", &UnsupportedTypeError{Type: rv.Type()}
	}
}

func parseMapKey(s string, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, keyMismatch(t, s)
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil || out.OverflowInt(i) {
			return reflect.Value{}, keyMismatch(t, s)
		}
		out.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil || out.OverflowUint(u) {
			return reflect.Value{}, keyMismatch(t, s)
		}
		out.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || out.OverflowFloat(f) {
			return reflect.Value{}, keyMismatch(t, s)
		}
		out.SetFloat(f)
	case reflect.String:
		out.SetString(s)
	default:
		return reflect.Value{}, &UnsupportedTypeError{Type: t}
	}
	return out, nil
}

func keyMismatch(t reflect.Type, s string) error {
	return &TypeMismatchError{Expected: fmt.Sprintf("a key of type %s", t), Actual: fmt.Sprintf("key %q", s)}
}

// configConverter delegates nested configuration types to the engine using
// the nested type's own descriptor.
type configConverter struct {
	engine *engine
	td     *TypeDescriptor
}

func (c configConverter) Serialize(v any) (any, error) {
	return c.engine.serialize(c.td, v)
}

func (c configConverter) Deserialize(v any) (any, error) {
	doc, ok := v.(Doc)
	if !ok {
		return nil, mismatch("a mapping", v)
	}
	defaults := reflect.Zero(c.td.Type).Interface()
	return c.engine.deserialize(c.td, doc, defaults)
}

// pointerConverter is the nullable wrapper around any other converter.
type pointerConverter struct {
	typ  reflect.Type
	elem Converter
}

func (c pointerConverter) Serialize(v any) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.IsNil() {
		return nil, nil
	}
	return c.elem.Serialize(rv.Elem().Interface())
}

func (c pointerConverter) Deserialize(v any) (any, error) {
	if v == nil {
		return reflect.Zero(c.typ).Interface(), nil
	}
	ev, err := c.elem.Deserialize(v)
	if err != nil {
		return nil, err
	}
	p := reflect.New(c.typ.Elem())
	p.Elem().Set(reflect.ValueOf(ev))
	return p.Interface(), nil
}
