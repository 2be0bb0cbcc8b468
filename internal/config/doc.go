// Package config loads the service's own settings from multiple sources (YAML
// files, environment variables, CLI flags) with precedence: CLI flags > YAML
// config > Environment variables > Defaults. The bound endpoint tree lives in
// package snapshot; this package only says where to find it and how to serve it.
package config
