package confignode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envLevelSep separates nesting levels in environment variable names, so
// PREFIX_ENDPOINT__INTERFACE__PORT addresses endpoint.interface.port.
const envLevelSep = "__"

// LayeredOptions describes the layers merged by LoadLayered, lowest
// precedence first: Defaults, the YAML file at Path, then environment
// variables starting with EnvPrefix. Empty layers are skipped.
type LayeredOptions struct {
	Defaults  map[string]any
	Path      string
	EnvPrefix string
}

type koanfNode struct {
	k *koanf.Koanf
}

// FromKoanf adapts a koanf instance. The instance must use "." as its key
// delimiter.
func FromKoanf(k *koanf.Koanf) Node {
	return &koanfNode{k: k}
}

// FromMap loads a nested in-memory tree, such as a decoded JSON object.
func FromMap(m map[string]any) (Node, error) {
	k := koanf.New(pathDelim)
	if err := k.Load(confmap.Provider(m, pathDelim), nil); err != nil {
		return nil, fmt.Errorf("load map: %w", err)
	}
	return FromKoanf(k), nil
}

// LoadLayered merges the configured layers into a single tree.
func LoadLayered(opts LayeredOptions) (Node, error) {
	k := koanf.New(pathDelim)

	if len(opts.Defaults) > 0 {
		if err := k.Load(confmap.Provider(opts.Defaults, pathDelim), nil); err != nil {
			return nil, fmt.Errorf("load defaults: %w", err)
		}
	}

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", opts.Path, err)
		}
	}

	if opts.EnvPrefix != "" {
		if err := k.Load(env.Provider(opts.EnvPrefix, pathDelim, envKeyMapper(opts.EnvPrefix)), nil); err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
	}

	return FromKoanf(k), nil
}

func envKeyMapper(prefix string) func(string) string {
	return func(name string) string {
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		return strings.ReplaceAll(key, envLevelSep, pathDelim)
	}
}

func (n *koanfNode) HasPath(path string) bool {
	return n.k.Exists(path) && n.k.Get(path) != nil
}

func (n *koanfNode) value(op, path string) (any, error) {
	if !n.k.Exists(path) {
		return nil, notFound(op, path)
	}
	raw := n.k.Get(path)
	if raw == nil {
		return nil, notFound(op, path)
	}
	return raw, nil
}

func (n *koanfNode) GetInt(path string) (int, error) {
	const op = "GetInt"
	raw, err := n.value(op, path)
	if err != nil {
		return 0, err
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		if v >= math.MinInt && v <= math.MaxInt {
			return int(v), nil
		}
	case uint64:
		if v <= math.MaxInt {
			return int(v), nil
		}
	case float64:
		if out, ok := intFromFloat(v); ok {
			return out, nil
		}
	case string:
		if out, ok := intFromString(v); ok {
			return out, nil
		}
	}
	return 0, mismatch(op, path, "%T value %v is not an integer", raw, raw)
}

func (n *koanfNode) GetString(path string) (string, error) {
	const op = "GetString"
	raw, err := n.value(op, path)
	if err != nil {
		return "", err
	}

	switch v := raw.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	return "", mismatch(op, path, "expected a scalar, found %T", raw)
}

func (n *koanfNode) GetBool(path string) (bool, error) {
	const op = "GetBool"
	raw, err := n.value(op, path)
	if err != nil {
		return false, err
	}

	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		if out, ok := boolFromString(v); ok {
			return out, nil
		}
	}
	return false, mismatch(op, path, "%T value %v is not a boolean", raw, raw)
}

func (n *koanfNode) GetFloat(path string) (float64, error) {
	const op = "GetFloat"
	raw, err := n.value(op, path)
	if err != nil {
		return 0, err
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		if out, ok := floatFromString(v); ok {
			return out, nil
		}
	}
	return 0, mismatch(op, path, "%T value %v is not a number", raw, raw)
}

func (n *koanfNode) GetSubNode(path string) (Node, error) {
	const op = "GetSubNode"
	raw, err := n.value(op, path)
	if err != nil {
		return nil, err
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, mismatch(op, path, "expected an object, found %T", raw)
	}
	return FromKoanf(n.k.Cut(path)), nil
}
