package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/BaSui01/flowgraph/types"
)

// Built-in agent type names.
const (
	TypeEcho         = "echo"
	TypeInput        = "input"
	TypeBranch       = "branch"
	TypeOrchestrator = "orchestrator"
)

// Registry maps agent-type names to factories. Built-ins are registered
// at construction and cannot be replaced; custom registrations of an
// existing name are rejected so workflow semantics stay predictable.
type Registry struct {
	factories map[string]Factory
	builtins  map[string]bool
	// mu protects the factories map against concurrent Register (write)
	// and Resolve (read) calls.
	mu sync.RWMutex
}

// NewRegistry creates a registry with all built-in types registered.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]Factory),
		builtins:  make(map[string]bool),
	}
	r.registerBuiltins()
	return r
}

// Register adds a custom agent type. Registering a name that already
// exists, built-in or custom, fails with DUPLICATE_AGENT_TYPE.
func (r *Registry) Register(typeName string, factory Factory) error {
	if typeName == "" {
		return types.NewError(types.ErrDuplicateAgentType, "agent type name must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory for agent type %q must not be nil", typeName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.builtins[typeName] {
		return types.NewError(types.ErrDuplicateAgentType,
			fmt.Sprintf("agent type %q is built in and not overridable", typeName))
	}
	if _, exists := r.factories[typeName]; exists {
		return types.NewError(types.ErrDuplicateAgentType,
			fmt.Sprintf("agent type %q already registered", typeName))
	}

	r.factories[typeName] = factory
	return nil
}

// Resolve returns the factory for a type name, or UNKNOWN_AGENT_TYPE.
func (r *Registry) Resolve(typeName string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[typeName]
	if !ok {
		return nil, types.NewError(types.ErrUnknownAgentType,
			fmt.Sprintf("no agent registered for type %q", typeName))
	}
	return factory, nil
}

// Types returns all registered type names, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsBuiltin reports whether a type name is one of the built-ins.
func (r *Registry) IsBuiltin(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.builtins[typeName]
}

// registerBuiltins wires the built-in types. Runs before any custom
// registration can happen, so built-ins always win name conflicts.
func (r *Registry) registerBuiltins() {
	for name, factory := range map[string]Factory{
		TypeEcho:         NewEchoAgent,
		TypeInput:        NewInputAgent,
		TypeBranch:       NewBranchAgent,
		TypeOrchestrator: NewOrchestratorAgent,
	} {
		r.factories[name] = factory
		r.builtins[name] = true
	}
}
