// Package definition turns tabular workflow records into a typed,
// immutable intermediate representation.
//
// A workflow is declared as rows of named fields:
//
//	GraphName, Node, Edge, Context, AgentType, Success_Next, Failure_Next,
//	Input_Fields, Output_Field, Prompt, Description
//
// Rows sharing a GraphName form one WorkflowDefinition, preserving
// definition order. List fields (Input_Fields, Success_Next, Failure_Next)
// are '|'-delimited; segments are trimmed and empty segments dropped.
// Context is an opaque JSON object interpreted only by the target agent.
// Edge and Description are free-form annotation and pass through untouched.
//
// Parsing is a pure function from rows to in-memory structure: no side
// effects, and a definition is never mutated after Parse returns.
package definition
