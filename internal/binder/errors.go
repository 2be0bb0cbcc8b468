package binder

import (
	"errors"
	"strconv"
)

var (
	// ErrMissingRequiredScope is returned when a nested object field is absent from the source.
	ErrMissingRequiredScope = errors.New("missing required scope")
	// ErrMissingRequiredValue is returned when a scalar field with no default is absent from the source.
	ErrMissingRequiredValue = errors.New("missing required value")
	// ErrInvalidSchema is returned when struct tags describe an unsupported schema.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrInvalidTarget is returned when BindInto is not given a non-nil pointer to a struct.
	ErrInvalidTarget = errors.New("bind target must be a non-nil pointer to a struct")
	// ErrNilSource is returned when the source node is nil.
	ErrNilSource = errors.New("source node is nil")
)

// FieldError reports the full dotted path of the field that failed to bind.
type FieldError struct {
	Path string
	Err  error
}

func (e *FieldError) Error() string {
	return "bind " + strconv.Quote(e.Path) + ": " + e.Err.Error()
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
