package agent

import (
	"context"
	"fmt"

	"github.com/BaSui01/flowgraph/definition"
	"github.com/BaSui01/flowgraph/types"
)

// EchoAgent renders the node's prompt template against the projected
// state and returns it. With no prompt configured it passes the
// projection through unchanged.
type EchoAgent struct {
	prompt string
}

// NewEchoAgent builds the echo built-in.
func NewEchoAgent(spec *definition.NodeSpec) (Agent, error) {
	return &EchoAgent{prompt: spec.Prompt}, nil
}

// Run implements Agent.
func (a *EchoAgent) Run(_ context.Context, input map[string]any) (*Result, error) {
	if a.prompt == "" {
		return &Result{Output: input}, nil
	}
	return &Result{Output: RenderPrompt(a.prompt, input)}, nil
}

// inputConfig is the typed view of the input agent's context blob.
type inputConfig struct {
	// Defaults fills declared fields absent from state.
	Defaults map[string]any `json:"defaults"`
}

// InputAgent collects the node's declared input fields into a single
// value. Declared fields missing from both state and the configured
// defaults fail the node with MISSING_FIELD.
type InputAgent struct {
	fields []string
	cfg    inputConfig
}

// NewInputAgent builds the input-collection built-in.
func NewInputAgent(spec *definition.NodeSpec) (Agent, error) {
	a := &InputAgent{fields: spec.InputFields}
	if err := decodeConfig(spec.Context, &a.cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Run implements Agent.
func (a *InputAgent) Run(_ context.Context, input map[string]any) (*Result, error) {
	collected := make(map[string]any, len(a.fields))
	for _, field := range a.fields {
		if field == definition.Wildcard {
			for k, v := range input {
				collected[k] = v
			}
			continue
		}
		if v, ok := input[field]; ok {
			collected[field] = v
			continue
		}
		if v, ok := a.cfg.Defaults[field]; ok {
			collected[field] = v
			continue
		}
		return nil, types.NewError(types.ErrMissingField,
			fmt.Sprintf("required input field %q not present", field)).WithField(field)
	}
	return &Result{Output: collected}, nil
}

// branchConfig is the typed view of the branch agent's context blob.
type branchConfig struct {
	// Field is the state field to test.
	Field string `json:"field"`
	// Equals passes the branch when the field's string form matches.
	Equals string `json:"equals"`
	// NotEmpty passes the branch when the field is present and non-empty.
	NotEmpty bool `json:"not_empty"`
}

// BranchAgent evaluates a condition over the projected state. A false
// condition is reported as a node failure, which routes the run down the
// node's failure path. That is the tabular format's way of expressing
// if/else.
type BranchAgent struct {
	cfg branchConfig
}

// NewBranchAgent builds the conditional-branch built-in.
func NewBranchAgent(spec *definition.NodeSpec) (Agent, error) {
	a := &BranchAgent{}
	if err := decodeConfig(spec.Context, &a.cfg); err != nil {
		return nil, err
	}
	if a.cfg.Field == "" {
		return nil, fmt.Errorf("branch agent for node %q requires a %q context key", spec.Name, "field")
	}
	return a, nil
}

// Run implements Agent.
func (a *BranchAgent) Run(_ context.Context, input map[string]any) (*Result, error) {
	value, present := input[a.cfg.Field]

	if a.cfg.NotEmpty {
		if present && fmt.Sprintf("%v", value) != "" {
			return &Result{Output: value}, nil
		}
		return nil, fmt.Errorf("branch condition not met: field %q is empty", a.cfg.Field)
	}

	if !present {
		return nil, types.NewError(types.ErrMissingField,
			fmt.Sprintf("branch field %q not present in state", a.cfg.Field)).WithField(a.cfg.Field)
	}
	if fmt.Sprintf("%v", value) == a.cfg.Equals {
		return &Result{Output: value}, nil
	}
	return nil, fmt.Errorf("branch condition not met: field %q = %v, want %q",
		a.cfg.Field, value, a.cfg.Equals)
}
