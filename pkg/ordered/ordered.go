// Package ordered provides a string map that remembers declaration order.
// POC headers and query parameters are emitted on the wire in the order the
// author wrote them, which a Go map cannot guarantee.
package ordered

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"gopkg.in/yaml.v3"
)

// Pair is a single key/value entry.
type Pair struct {
	Key   string
	Value string
}

// Map is an ordered list of key/value pairs. Keys are case-sensitive as
// declared; Set replaces an existing key in place.
type Map []Pair

// FromPairs builds a Map from alternating key, value arguments.
// A trailing key without value is ignored.
func FromPairs(kv ...string) Map {
	m := make(Map, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m = m.Set(kv[i], kv[i+1])
	}
	return m
}

// Get returns the value for key (exact match).
func (m Map) Get(key string) (string, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// GetFold returns the value for key compared case-insensitively.
func (m Map) GetFold(key string) (string, bool) {
	for _, p := range m {
		if strings.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}

// HasFold reports whether key is present, ignoring case.
func (m Map) HasFold(key string) bool {
	_, ok := m.GetFold(key)
	return ok
}

// Set returns m with key set to value, keeping the original position when
// key already exists.
func (m Map) Set(key, value string) Map {
	for i := range m {
		if m[i].Key == key {
			m[i].Value = value
			return m
		}
	}
	return append(m, Pair{Key: key, Value: value})
}

// Keys returns keys in declaration order.
func (m Map) Keys() []string {
	keys := make([]string, len(m))
	for i, p := range m {
		keys[i] = p.Key
	}
	return keys
}

// Clone returns an independent copy.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	copy(out, m)
	return out
}

// UnmarshalYAML decodes a YAML mapping node, preserving key order.
// Scalar values of any type (numbers, booleans) are kept as their literal text.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*m = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping, got %s", node.Line, kindName(node.Kind))
	}
	out := make(Map, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value for %q must be a scalar", v.Line, k.Value)
		}
		value := v.Value
		if v.Tag == "!!null" {
			value = ""
		}
		out = out.Set(k.Value, value)
	}
	*m = out
	return nil
}

// MarshalYAML encodes m as a mapping node in declaration order.
func (m Map) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range m {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Value},
		)
	}
	return node, nil
}

// MarshalJSON encodes m as a JSON object in declaration order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return nil, err
	}
	for _, p := range m {
		if err := enc.WriteToken(jsontext.String(p.Key)); err != nil {
			return nil, err
		}
		if err := enc.WriteToken(jsontext.String(p.Value)); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteToken(jsontext.EndObject); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a JSON object, preserving key order.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	tok, err := dec.ReadToken()
	if err != nil {
		return err
	}
	if tok.Kind() == 'n' {
		*m = nil
		return nil
	}
	if tok.Kind() != '{' {
		return fmt.Errorf("ordered: expected JSON object, got %s", tok.Kind())
	}
	out := Map{}
	for dec.PeekKind() != '}' {
		k, err := dec.ReadToken()
		if err != nil {
			return err
		}
		var v string
		if err := json.UnmarshalDecode(dec, &v); err != nil {
			return fmt.Errorf("ordered: value for %q: %w", k.String(), err)
		}
		out = out.Set(k.String(), v)
	}
	*m = out
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.DocumentNode:
		return "document"
	default:
		return "mapping"
	}
}
