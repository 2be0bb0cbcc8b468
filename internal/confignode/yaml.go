package confignode

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	tagNull  = "!!null"
	tagInt   = "!!int"
	tagFloat = "!!float"
	tagBool  = "!!bool"
	tagStr   = "!!str"
)

// ErrNotObject is returned when a document root is not a mapping.
var ErrNotObject = errors.New("document root must be a mapping")

type yamlNode struct {
	root *yaml.Node
}

// ParseYAML parses a YAML or JSON document into a Node. An empty document is
// treated as an empty object.
func ParseYAML(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return emptyYAML(), nil
		}
		root = root.Content[0]
	}
	root = deref(root)

	switch {
	case root.Kind == 0 || isNull(root):
		return emptyYAML(), nil
	case root.Kind != yaml.MappingNode:
		return nil, ErrNotObject
	}
	return &yamlNode{root: root}, nil
}

// LoadYAMLFile reads and parses a YAML file.
func LoadYAMLFile(path string) (Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseYAML(data)
}

func emptyYAML() *yamlNode {
	return &yamlNode{root: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

func (n *yamlNode) HasPath(path string) bool {
	v, ok := n.lookup(path)
	return ok && !isNull(v)
}

func (n *yamlNode) GetInt(path string) (int, error) {
	const op = "GetInt"
	v, err := n.scalar(op, path)
	if err != nil {
		return 0, err
	}

	switch v.ShortTag() {
	case tagInt:
		var out int
		if err := v.Decode(&out); err != nil {
			return 0, mismatch(op, path, "%v", err)
		}
		return out, nil
	case tagFloat:
		var f float64
		if err := v.Decode(&f); err == nil {
			if out, ok := intFromFloat(f); ok {
				return out, nil
			}
		}
	case tagStr:
		if out, ok := intFromString(v.Value); ok {
			return out, nil
		}
	}
	return 0, mismatch(op, path, "%s value %q is not an integer", v.ShortTag(), v.Value)
}

func (n *yamlNode) GetString(path string) (string, error) {
	v, err := n.scalar("GetString", path)
	if err != nil {
		return "", err
	}
	return v.Value, nil
}

func (n *yamlNode) GetBool(path string) (bool, error) {
	const op = "GetBool"
	v, err := n.scalar(op, path)
	if err != nil {
		return false, err
	}

	switch v.ShortTag() {
	case tagBool:
		var out bool
		if err := v.Decode(&out); err == nil {
			return out, nil
		}
	case tagStr:
		if out, ok := boolFromString(v.Value); ok {
			return out, nil
		}
	}
	return false, mismatch(op, path, "%s value %q is not a boolean", v.ShortTag(), v.Value)
}

func (n *yamlNode) GetFloat(path string) (float64, error) {
	const op = "GetFloat"
	v, err := n.scalar(op, path)
	if err != nil {
		return 0, err
	}

	switch v.ShortTag() {
	case tagInt, tagFloat:
		var out float64
		if err := v.Decode(&out); err == nil {
			return out, nil
		}
	case tagStr:
		if out, ok := floatFromString(v.Value); ok {
			return out, nil
		}
	}
	return 0, mismatch(op, path, "%s value %q is not a number", v.ShortTag(), v.Value)
}

func (n *yamlNode) GetSubNode(path string) (Node, error) {
	const op = "GetSubNode"
	v, ok := n.lookup(path)
	if !ok || isNull(v) {
		return nil, notFound(op, path)
	}
	if v.Kind != yaml.MappingNode {
		return nil, mismatch(op, path, "expected an object, found %s", kindName(v))
	}
	return &yamlNode{root: v}, nil
}

func (n *yamlNode) scalar(op, path string) (*yaml.Node, error) {
	v, ok := n.lookup(path)
	if !ok || isNull(v) {
		return nil, notFound(op, path)
	}
	if v.Kind != yaml.ScalarNode {
		return nil, mismatch(op, path, "expected a scalar, found %s", kindName(v))
	}
	return v, nil
}

// lookup walks mapping nodes segment by segment. When a key repeats, the
// last occurrence wins.
func (n *yamlNode) lookup(path string) (*yaml.Node, bool) {
	cur := n.root
	for _, seg := range strings.Split(path, pathDelim) {
		if cur.Kind != yaml.MappingNode {
			return nil, false
		}
		var next *yaml.Node
		for i := 0; i+1 < len(cur.Content); i += 2 {
			if cur.Content[i].Value == seg {
				next = cur.Content[i+1]
			}
		}
		if next == nil {
			return nil, false
		}
		cur = deref(next)
	}
	return cur, true
}

func deref(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == tagNull
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "object"
	case yaml.SequenceNode:
		return "list"
	case yaml.ScalarNode:
		return "scalar"
	default:
		return "unknown"
	}
}
