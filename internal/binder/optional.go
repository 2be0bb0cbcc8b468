package binder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Optional holds a scalar that may be absent from the source. The zero value
// is None.
type Optional[T comparable] struct {
	value T
	set   bool
}

// Some returns an Optional holding v.
func Some[T comparable](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an empty Optional.
func None[T comparable]() Optional[T] {
	return Optional[T]{}
}

// Get returns the held value and whether one is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse returns the held value, or def when empty.
func (o Optional[T]) OrElse(def T) T {
	if o.set {
		return o.value
	}
	return def
}

// Equal reports whether both optionals are empty or both hold equal values.
func (o Optional[T]) Equal(other Optional[T]) bool {
	return o.set == other.set && o.value == other.value
}

func (o Optional[T]) String() string {
	if !o.set {
		return "null"
	}
	return fmt.Sprint(o.value)
}

// MarshalJSON encodes None as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as None.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

func (o Optional[T]) elemType() reflect.Type {
	return reflect.TypeFor[T]()
}

func (o Optional[T]) reflectValue() (reflect.Value, bool) {
	return reflect.ValueOf(o.value), o.set
}

func (o *Optional[T]) assign(v reflect.Value) {
	o.value = v.Convert(reflect.TypeFor[T]()).Interface().(T)
	o.set = true
}

// optionalField is implemented by *Optional[T] for every T.
type optionalField interface {
	elemType() reflect.Type
	reflectValue() (reflect.Value, bool)
	assign(v reflect.Value)
}

var optionalFieldType = reflect.TypeFor[optionalField]()
