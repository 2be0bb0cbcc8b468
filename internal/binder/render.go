package binder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

const renderIndent = "  "

// Lines renders a bound struct (or pointer to one) as ordered lines. Scalars
// render as "label = value", empty optionals as "label = null". An object
// field renders as "label:", its child lines indented one level deeper, and
// an empty line.
func Lines(v any) ([]string, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrInvalidTarget
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: cannot render %s", ErrInvalidSchema, rv.Kind())
	}

	s, err := SchemaOf(rv.Type())
	if err != nil {
		return nil, err
	}
	return appendLines(nil, s, rv, 0), nil
}

func appendLines(out []string, s *Schema, v reflect.Value, depth int) []string {
	pad := strings.Repeat(renderIndent, depth)
	for _, f := range s.Fields {
		fv := v.Field(f.index)
		if f.Kind == KindObject {
			out = append(out, pad+f.Label+":")
			out = appendLines(out, f.Schema, fv, depth+1)
			out = append(out, "")
			continue
		}
		out = append(out, pad+f.Label+" = "+formatField(f, fv))
	}
	return out
}

// Render joins the lines of v, prefixing every non-empty line with indent and
// terminating every line with a newline.
func Render(v any, indent string) (string, error) {
	lines, err := Lines(v)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, line := range lines {
		if line != "" {
			b.WriteString(indent)
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func formatField(f Field, v reflect.Value) string {
	if f.Optional {
		inner, ok := v.Interface().(interface {
			reflectValue() (reflect.Value, bool)
		}).reflectValue()
		if !ok {
			return "null"
		}
		v = inner
	}
	return formatScalar(f.Kind, v)
}

func formatScalar(kind Kind, v reflect.Value) string {
	switch kind {
	case KindDuration:
		return time.Duration(v.Int()).String()
	case KindInt, KindInt64:
		return strconv.FormatInt(v.Int(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindString:
		return v.String()
	}
	return fmt.Sprint(v.Interface())
}
