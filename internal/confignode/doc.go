// Package confignode defines the read-only view of a hierarchical
// configuration tree that the binder consumes, together with two concrete
// sources: a YAML document backed by yaml.v3 nodes and a layered koanf
// instance (defaults, file, environment).
package confignode
