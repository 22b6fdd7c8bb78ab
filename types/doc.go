// Package types defines the shared error taxonomy used across the
// flowgraph engine. Structural errors (parser, graph builder) surface at
// build time and prevent runs from starting; runtime errors are recorded
// per node and drive failure-path routing instead of escaping the engine.
package types
