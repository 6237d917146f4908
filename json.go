package configlib

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-json-experiment/json/jsontext"
)

// JSONCodec is an alternate text codec producing and consuming JSON. Token
// streaming keeps mapping key order intact in both directions, which
// encoding/json cannot do. JSON has no comment syntax, so entry comments and
// the header/footer settings are dropped on emit.
type JSONCodec struct{}

func (JSONCodec) Parse(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, err
	}
	// Exactly one top-level value: anything but EOF afterwards is trailing
	// content.
	switch _, err := dec.ReadToken(); {
	case err == nil:
		return nil, fmt.Errorf("unexpected content after top-level value")
	case errors.Is(err, io.EOF):
		return v, nil
	default:
		return nil, err
	}
}

func decodeJSONValue(dec *jsontext.Decoder) (any, error) {
	switch dec.PeekKind() {
	case '{':
		return decodeJSONObject(dec)
	case '[':
		return decodeJSONArray(dec)
	}
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, err
	}
	switch tok.Kind() {
	case 'n':
		return nil, nil
	case 't':
		return true, nil
	case 'f':
		return false, nil
	case '"':
		return tok.String(), nil
	case '0':
		lit := tok.String()
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return nil, fmt.Errorf("parse number %q: %w", lit, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unexpected JSON token kind %q", tok.Kind())
	}
}

func decodeJSONObject(dec *jsontext.Decoder) (Doc, error) {
	if _, err := dec.ReadToken(); err != nil { // '{'
		return nil, fmt.Errorf("read object open: %w", err)
	}
	out := Doc{}
	for dec.PeekKind() != '}' {
		tok, err := dec.ReadToken()
		if err != nil {
			return nil, fmt.Errorf("read object key: %w", err)
		}
		v, err := decodeJSONValue(dec)
		if err != nil {
			return nil, fmt.Errorf("read object value for key %q: %w", tok.String(), err)
		}
		out = append(out, Entry{Key: tok.String(), Value: v})
	}
	if _, err := dec.ReadToken(); err != nil { // '}'
		return nil, fmt.Errorf("read object close: %w", err)
	}
	return out, nil
}

func decodeJSONArray(dec *jsontext.Decoder) (Seq, error) {
	if _, err := dec.ReadToken(); err != nil { // '['
		return nil, fmt.Errorf("read array open: %w", err)
	}
	out := Seq{}
	for dec.PeekKind() != ']' {
		v, err := decodeJSONValue(dec)
		if err != nil {
			return nil, fmt.Errorf("read array element: %w", err)
		}
		out = append(out, v)
	}
	if _, err := dec.ReadToken(); err != nil { // ']'
		return nil, fmt.Errorf("read array close: %w", err)
	}
	return out, nil
}

func (JSONCodec) Emit(doc Doc, _ *Settings) ([]byte, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf, jsontext.WithIndent("  "))
	if err := encodeJSONValue(enc, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSONValue(enc *jsontext.Encoder, v any) error {
	switch t := v.(type) {
	case nil:
		return enc.WriteToken(jsontext.Null)
	case bool:
		return enc.WriteToken(jsontext.Bool(t))
	case int64:
		return enc.WriteToken(jsontext.Int(t))
	case float64:
		return enc.WriteToken(jsontext.Float(t))
	case string:
		return enc.WriteToken(jsontext.String(t))
	case Seq:
		if err := enc.WriteToken(jsontext.ArrayStart); err != nil {
			return err
		}
		for _, ev := range t {
			if err := encodeJSONValue(enc, ev); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.ArrayEnd)
	case Doc:
		if err := enc.WriteToken(jsontext.ObjectStart); err != nil {
			return err
		}
		for _, entry := range t {
			if err := enc.WriteToken(jsontext.String(entry.Key)); err != nil {
				return err
			}
			if err := encodeJSONValue(enc, entry.Value); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.ObjectEnd)
	default:
		return &SerializerOutputError{Value: v}
	}
}
