// Package agent defines the unit-of-work interface the engine dispatches
// to, and the registry that maps agent-type names to factories.
//
// Built-in types (echo, input, branch, orchestrator) are registered
// before any custom type and are not overridable, keeping workflow
// semantics predictable across installations. External collaborators add
// their own types under the "custom:" naming convention via Register.
//
// Each agent decodes its own strongly-typed configuration from the
// node's opaque context blob at construction time; the engine never
// interprets agent configuration.
package agent
