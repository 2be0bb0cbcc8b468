// Package snapshot declares the endpoint configuration tree and constructs it
// from a configuration source.
package snapshot

import (
	"github.com/eugenenazirov/cfgbind/internal/binder"
	"github.com/eugenenazirov/cfgbind/internal/confignode"
)

// RootConfig is the top of the tree.
type RootConfig struct {
	Endpoint EndpointConfig `cfg:"endpoint" json:"endpoint"`
}

// EndpointConfig describes a single exposed endpoint.
type EndpointConfig struct {
	Interface InterfaceConfig         `cfg:"interface,label=interface_" json:"interface"`
	Name      binder.Optional[string] `cfg:"name" json:"name"`
	Path      string                  `cfg:"path,default=/" json:"path"`
	Serial    binder.Optional[int]    `cfg:"serial" json:"serial"`
	URL       string                  `cfg:"url,default=http://example.net" json:"url"`
}

// InterfaceConfig is the network interface an endpoint listens on.
type InterfaceConfig struct {
	Port int `cfg:"port,default=8080" json:"port"`
}

// Schema is the compiled field table shared by Construct and Render.
var Schema = binder.MustSchema[RootConfig]()

// Construct binds source into a RootConfig. A missing endpoint or
// endpoint.interface scope fails with binder.ErrMissingRequiredScope, and a
// value of the wrong type fails with confignode.ErrTypeMismatch.
func Construct(source confignode.Node) (RootConfig, error) {
	return binder.Bind[RootConfig](source)
}

// Render renders any record of the tree, prefixing each line with indent.
// Values outside the tree render as an empty string.
func Render(node any, indent string) string {
	out, err := binder.Render(node, indent)
	if err != nil {
		return ""
	}
	return out
}

func (c RootConfig) String() string      { return Render(c, "") }
func (c EndpointConfig) String() string  { return Render(c, "") }
func (c InterfaceConfig) String() string { return Render(c, "") }
