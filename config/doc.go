// Package config loads engine configuration from defaults, a YAML file
// and FLOWGRAPH_-prefixed environment variables, in that order of
// precedence.
package config
