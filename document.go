package configlib

// Doc represents a configuration document, defined as an ordered collection of
// key-value pairs. Each pair is represented by an Entry. Key order is
// preserved exactly as encountered: it drives output field order and comment
// placement.
type Doc []Entry

// Seq represents a sequence, defined as a slice of values of any type.
type Seq []any

// Entry represents a single entry in a document. It consists of a string key,
// an associated value, and an optional comment rendered by the emitter as
// comment lines immediately preceding the key.
//
// Values are one of: nil (null), bool, int64, float64, string, Seq, or Doc.
type Entry struct {
	Key     string
	Value   any
	Comment string
}

// Get returns the value for key and whether the key is present. Lookup is
// case-sensitive.
func (d Doc) Get(key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present in the document.
func (d Doc) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Keys returns the document's keys in document order.
func (d Doc) Keys() []string {
	keys := make([]string, len(d))
	for i, e := range d {
		keys[i] = e.Key
	}
	return keys
}

// kindName names the runtime kind of a tree value for error messages.
func kindName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean scalar"
	case int64:
		return "integer scalar"
	case float64:
		return "float scalar"
	case string:
		return "string scalar"
	case Seq:
		return "sequence"
	case Doc:
		return "mapping"
	default:
		return "unknown value"
	}
}
