package confignode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const pathDelim = "."

var (
	// ErrPathNotFound is returned when a path is absent or holds an explicit null.
	ErrPathNotFound = errors.New("path not found")
	// ErrTypeMismatch is returned when the value at a path cannot be read as the requested type.
	ErrTypeMismatch = errors.New("type mismatch")
)

// Node is a scope of a configuration tree addressed by dotted paths relative
// to the scope root.
type Node interface {
	HasPath(path string) bool
	GetInt(path string) (int, error)
	GetString(path string) (string, error)
	GetBool(path string) (bool, error)
	GetFloat(path string) (float64, error)
	GetSubNode(path string) (Node, error)
}

// PathError records the accessor and path that failed.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + strconv.Quote(e.Path) + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func notFound(op, path string) error {
	return &PathError{Op: op, Path: path, Err: ErrPathNotFound}
}

func mismatch(op, path, format string, args ...any) error {
	return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: "+format, append([]any{ErrTypeMismatch}, args...)...)}
}

// JoinPath joins non-empty path segments with the path delimiter.
func JoinPath(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, pathDelim)
}

func intFromString(raw string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

func intFromFloat(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f >= math.MaxInt || f < math.MinInt {
		return 0, false
	}
	return int(f), true
}

func boolFromString(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "on":
		return true, true
	case "false", "no", "off":
		return false, true
	}
	return false, false
}

func floatFromString(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
