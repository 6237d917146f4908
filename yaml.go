package configlib

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Codec turns document text into a tree value and back. Parse returns nil
// for an empty or null document; Emit renders a top-level mapping together
// with the settings' header/footer and per-entry comments, as far as the
// format can represent them.
type Codec interface {
	Parse(data []byte) (any, error)
	Emit(doc Doc, s *Settings) ([]byte, error)
}

// YAMLCodec is the default text codec. Parsing preserves mapping key order;
// emitting renders entry comments as "#" lines immediately preceding the key
// and wraps the body with the header and footer comment blocks.
type YAMLCodec struct{}

func (YAMLCodec) Parse(data []byte) (any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if node.Kind == 0 {
		return nil, nil
	}
	return decodeYAML(&node, make(map[*yaml.Node]bool))
}

// decodeYAML walks a parsed node tree. Aliases are expanded by following the
// anchor; the resolving set guards against self-referential anchors, which
// yaml.v3 leaves intact when unmarshaling into a Node.
func decodeYAML(n *yaml.Node, resolving map[*yaml.Node]bool) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeYAML(n.Content[0], resolving)
	case yaml.AliasNode:
		if resolving[n.Alias] {
			return nil, fmt.Errorf("alias *%s refers to itself", n.Value)
		}
		resolving[n.Alias] = true
		v, err := decodeYAML(n.Alias, resolving)
		delete(resolving, n.Alias)
		return v, err
	case yaml.ScalarNode:
		return decodeYAMLScalar(n)
	case yaml.SequenceNode:
		out := make(Seq, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeYAML(c, resolving)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(Doc, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := decodeYAML(n.Content[i+1], resolving)
			if err != nil {
				return nil, err
			}
			out = append(out, Entry{Key: n.Content[i].Value, Value: v})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected YAML node kind %d", n.Kind)
	}
}

func decodeYAMLScalar(n *yaml.Node) (any, error) {
	switch n.Tag {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, err
		}
		return i, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return f, nil
	default:
		// Strings, timestamps, and anything else stay textual.
		return n.Value, nil
	}
}

func (YAMLCodec) Emit(doc Doc, s *Settings) ([]byte, error) {
	var buf bytes.Buffer
	if s.Header != "" {
		writeCommentBlock(&buf, s.Header)
		buf.WriteByte('\n')
	}
	if len(doc) == 0 {
		buf.WriteString("{}\n")
	} else {
		root, err := encodeYAML(doc)
		if err != nil {
			return nil, err
		}
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	}
	if s.Footer != "" {
		buf.WriteByte('\n')
		writeCommentBlock(&buf, s.Footer)
	}
	return buf.Bytes(), nil
}

func encodeYAML(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case Doc:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, entry := range t {
			key := &yaml.Node{}
			if err := key.Encode(entry.Key); err != nil {
				return nil, err
			}
			key.HeadComment = entry.Comment
			val, err := encodeYAML(entry.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, key, val)
		}
		return n, nil
	case Seq:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, ev := range t {
			c, err := encodeYAML(ev)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return n, nil
	}
}

func writeCommentBlock(buf *bytes.Buffer, text string) {
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			buf.WriteString("#\n")
			continue
		}
		buf.WriteString("# ")
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}
