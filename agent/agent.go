package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/flowgraph/definition"
)

// Result is the outcome of a successful agent invocation.
type Result struct {
	// Output is the value written to the node's output field, when one
	// is declared.
	Output any

	// Target is set only by routing agents that select the next node at
	// run time. The engine validates it against the graph and lets it
	// override the node's static success path.
	Target string
}

// Agent is a single unit of work bound to one node. Run receives the
// state projection declared by the node's input fields; a non-nil error
// marks the node as failed and routes via the failure path.
//
// Run may block on I/O. Implementations must honor ctx cancellation for
// bounded shutdown, but the engine itself only checks cancellation at
// node boundaries.
type Agent interface {
	Run(ctx context.Context, input map[string]any) (*Result, error)
}

// Factory builds an agent instance for one node. Factories receive the
// full NodeSpec so agents can decode their context configuration and
// prompt template once, at construction time.
type Factory func(spec *definition.NodeSpec) (Agent, error)

// Func adapts a plain function to the Agent interface.
type Func func(ctx context.Context, input map[string]any) (*Result, error)

// Run implements Agent.
func (f Func) Run(ctx context.Context, input map[string]any) (*Result, error) {
	return f(ctx, input)
}

// RenderPrompt resolves {field_name} placeholders in a prompt template
// against the given state projection. Unknown placeholders are left
// untouched so downstream agents can layer their own resolution.
func RenderPrompt(template string, input map[string]any) string {
	if template == "" || len(input) == 0 {
		return template
	}
	out := template
	for field, value := range input {
		out = strings.ReplaceAll(out, "{"+field+"}", fmt.Sprintf("%v", value))
	}
	return out
}

// decodeConfig maps a node's opaque context blob onto an agent-owned
// configuration struct via a JSON round trip.
func decodeConfig(ctx map[string]any, target any) error {
	if len(ctx) == 0 {
		return nil
	}
	raw, err := json.Marshal(ctx)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode context: %w", err)
	}
	return nil
}
