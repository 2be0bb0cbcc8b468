// Package binder binds a confignode.Node into plain Go structs whose shape is
// declared with `cfg` struct tags, and renders bound values as indented text.
//
// A field tag has the form
//
//	cfg:"<key>[,label=<name>][,default=<literal>]"
//
// The key is the source path segment and the label is the name used when
// rendering (it defaults to the key). Nested structs are required scopes.
// Scalars of kind int, int64, float64, bool, string and time.Duration fall
// back to their default when the path is absent, and fail with
// ErrMissingRequiredValue when no default is declared. Optional[T] scalars
// resolve to None when absent. The default option consumes the rest of the
// tag, so it must come last and may contain commas.
package binder
