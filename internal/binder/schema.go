package binder

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eugenenazirov/cfgbind/internal/confignode"
)

const (
	tagName       = "cfg"
	optionLabel   = "label="
	optionDefault = "default="
)

// Kind classifies a schema field.
type Kind int

const (
	KindObject Kind = iota + 1
	KindInt
	KindInt64
	KindFloat
	KindBool
	KindString
	KindDuration
)

var kindNames = map[Kind]string{
	KindObject:   "object",
	KindInt:      "int",
	KindInt64:    "int64",
	KindFloat:    "float64",
	KindBool:     "bool",
	KindString:   "string",
	KindDuration: "duration",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

var durationType = reflect.TypeFor[time.Duration]()

// Field describes one tagged struct field.
type Field struct {
	Name     string
	Key      string
	Label    string
	Kind     Kind
	Optional bool
	// Default is the parsed default literal, nil when none is declared.
	Default any
	// Schema describes the nested struct of an object field.
	Schema *Schema

	index int
}

// Required reports whether absence of the field is an error.
func (f Field) Required() bool {
	return !f.Optional && f.Default == nil
}

// Schema is the compiled field table of a struct type, in declaration order.
type Schema struct {
	Type   reflect.Type
	Fields []Field
}

// Entry is a flattened view of a scalar field addressed by its full path.
type Entry struct {
	Path     string
	Kind     Kind
	Optional bool
	Required bool
	Default  any
}

// Entries lists every scalar field of the schema tree by full dotted path,
// in declaration order.
func (s *Schema) Entries() []Entry {
	var out []Entry
	s.walk("", func(path string, f Field) {
		out = append(out, Entry{
			Path:     path,
			Kind:     f.Kind,
			Optional: f.Optional,
			Required: f.Required(),
			Default:  f.Default,
		})
	})
	return out
}

func (s *Schema) walk(prefix string, fn func(path string, f Field)) {
	for _, f := range s.Fields {
		path := confignode.JoinPath(prefix, f.Key)
		if f.Kind == KindObject {
			f.Schema.walk(path, fn)
			continue
		}
		fn(path, f)
	}
}

type cacheEntry struct {
	schema *Schema
	err    error
}

var schemaCache sync.Map // reflect.Type -> cacheEntry

// SchemaOf compiles and caches the schema of a struct type.
func SchemaOf(t reflect.Type) (*Schema, error) {
	if cached, ok := schemaCache.Load(t); ok {
		entry := cached.(cacheEntry)
		return entry.schema, entry.err
	}

	s, err := compile(t)
	schemaCache.Store(t, cacheEntry{schema: s, err: err})
	return s, err
}

// MustSchema compiles the schema of T and panics on error. It is meant for
// package-level declarations of fixed schemas.
func MustSchema[T any]() *Schema {
	s, err := SchemaOf(reflect.TypeFor[T]())
	if err != nil {
		panic(err)
	}
	return s
}

func compile(t reflect.Type) (*Schema, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct", ErrInvalidSchema, t)
	}

	s := &Schema{Type: t}
	seen := make(map[string]struct{})

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup(tagName)
		if !ok || tag == "-" {
			continue
		}
		if !sf.IsExported() {
			return nil, fmt.Errorf("%w: %s.%s is tagged but unexported", ErrInvalidSchema, t, sf.Name)
		}

		f, err := compileField(sf, tag)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidSchema, t, sf.Name, err)
		}
		if _, dup := seen[f.Key]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate key %q", ErrInvalidSchema, t, f.Key)
		}
		seen[f.Key] = struct{}{}
		f.index = i

		if f.Kind == KindObject {
			child, err := SchemaOf(sf.Type)
			if err != nil {
				return nil, err
			}
			f.Schema = child
		}
		s.Fields = append(s.Fields, f)
	}

	return s, nil
}

func compileField(sf reflect.StructField, tag string) (Field, error) {
	parts := strings.Split(tag, ",")
	f := Field{Name: sf.Name, Key: strings.TrimSpace(parts[0])}
	if f.Key == "" || strings.Contains(f.Key, ".") {
		return Field{}, fmt.Errorf("invalid key %q", parts[0])
	}
	f.Label = f.Key

	var (
		defaultLit string
		hasDefault bool
	)
	for i := 1; i < len(parts); i++ {
		opt := parts[i]
		switch {
		case strings.HasPrefix(opt, optionLabel):
			f.Label = strings.TrimPrefix(opt, optionLabel)
		case strings.HasPrefix(opt, optionDefault):
			defaultLit = strings.TrimPrefix(strings.Join(parts[i:], ","), optionDefault)
			hasDefault = true
			i = len(parts)
		default:
			return Field{}, fmt.Errorf("unknown tag option %q", opt)
		}
	}

	typ := sf.Type
	if reflect.PointerTo(typ).Implements(optionalFieldType) {
		f.Optional = true
		typ = reflect.Zero(typ).Interface().(interface{ elemType() reflect.Type }).elemType()
	}

	kind, err := kindOf(typ)
	if err != nil {
		return Field{}, err
	}
	f.Kind = kind

	switch {
	case kind == KindObject && f.Optional:
		return Field{}, fmt.Errorf("optional objects are not supported")
	case kind == KindObject && hasDefault:
		return Field{}, fmt.Errorf("object fields cannot declare a default")
	case f.Optional && hasDefault:
		return Field{}, fmt.Errorf("optional fields cannot declare a default")
	}

	if hasDefault {
		def, err := parseLiteral(kind, defaultLit)
		if err != nil {
			return Field{}, fmt.Errorf("default %q: %v", defaultLit, err)
		}
		f.Default = def
	}
	return f, nil
}

func kindOf(t reflect.Type) (Kind, error) {
	if t == durationType {
		return KindDuration, nil
	}
	switch t.Kind() {
	case reflect.Struct:
		return KindObject, nil
	case reflect.Int:
		return KindInt, nil
	case reflect.Int64:
		return KindInt64, nil
	case reflect.Float64:
		return KindFloat, nil
	case reflect.Bool:
		return KindBool, nil
	case reflect.String:
		return KindString, nil
	}
	return 0, fmt.Errorf("unsupported type %s", t)
}

func parseLiteral(kind Kind, lit string) (any, error) {
	switch kind {
	case KindInt:
		return strconv.Atoi(lit)
	case KindInt64:
		return strconv.ParseInt(lit, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(lit, 64)
	case KindBool:
		return strconv.ParseBool(lit)
	case KindString:
		return lit, nil
	case KindDuration:
		return time.ParseDuration(lit)
	}
	return nil, fmt.Errorf("kind %s has no literal form", kind)
}
