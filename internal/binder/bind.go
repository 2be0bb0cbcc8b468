package binder

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/eugenenazirov/cfgbind/internal/confignode"
)

// Bind constructs a T from node. On error the zero T is returned.
func Bind[T any](node confignode.Node) (T, error) {
	var out T
	if err := BindInto(node, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// BindInto binds node into the struct pointed to by target. The target is
// only written when the whole tree binds successfully.
func BindInto(node confignode.Node, target any) error {
	if node == nil {
		return ErrNilSource
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	s, err := SchemaOf(rv.Elem().Type())
	if err != nil {
		return err
	}

	fresh := reflect.New(s.Type).Elem()
	if err := bindStruct(node, s, fresh, ""); err != nil {
		return err
	}
	rv.Elem().Set(fresh)
	return nil
}

// bindStruct resolves every object field before any scalar of the same
// struct, each group in declaration order.
func bindStruct(node confignode.Node, s *Schema, dst reflect.Value, prefix string) error {
	for _, f := range s.Fields {
		if f.Kind != KindObject {
			continue
		}
		path := confignode.JoinPath(prefix, f.Key)
		sub, err := node.GetSubNode(f.Key)
		if err != nil {
			if errors.Is(err, confignode.ErrPathNotFound) {
				return &FieldError{Path: path, Err: fmt.Errorf("%w: %w", ErrMissingRequiredScope, err)}
			}
			return &FieldError{Path: path, Err: err}
		}
		if err := bindStruct(sub, f.Schema, dst.Field(f.index), path); err != nil {
			return err
		}
	}

	for _, f := range s.Fields {
		if f.Kind == KindObject {
			continue
		}
		if err := bindScalar(node, f, dst.Field(f.index), confignode.JoinPath(prefix, f.Key)); err != nil {
			return err
		}
	}
	return nil
}

func bindScalar(node confignode.Node, f Field, dst reflect.Value, path string) error {
	if !node.HasPath(f.Key) {
		switch {
		case f.Optional:
			dst.Set(reflect.Zero(dst.Type()))
		case f.Default != nil:
			dst.Set(reflect.ValueOf(f.Default).Convert(dst.Type()))
		default:
			return &FieldError{Path: path, Err: ErrMissingRequiredValue}
		}
		return nil
	}

	raw, err := readScalar(node, f.Kind, f.Key)
	if err != nil {
		return &FieldError{Path: path, Err: err}
	}

	v := reflect.ValueOf(raw)
	if f.Optional {
		dst.Addr().Interface().(optionalField).assign(v)
		return nil
	}
	dst.Set(v.Convert(dst.Type()))
	return nil
}

func readScalar(node confignode.Node, kind Kind, key string) (any, error) {
	switch kind {
	case KindInt:
		return node.GetInt(key)
	case KindInt64:
		v, err := node.GetInt(key)
		return int64(v), err
	case KindFloat:
		return node.GetFloat(key)
	case KindBool:
		return node.GetBool(key)
	case KindString:
		return node.GetString(key)
	case KindDuration:
		return readDuration(node, key)
	}
	return nil, fmt.Errorf("%w: unsupported kind %s", ErrInvalidSchema, kind)
}

// readDuration accepts Go duration syntax, or a bare integer read as
// milliseconds.
func readDuration(node confignode.Node, key string) (time.Duration, error) {
	raw, err := node.GetString(key)
	if err != nil {
		return 0, err
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	if ms, err := node.GetInt(key); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, &confignode.PathError{
		Op:   "GetDuration",
		Path: key,
		Err:  fmt.Errorf("%w: %q is not a duration", confignode.ErrTypeMismatch, raw),
	}
}
