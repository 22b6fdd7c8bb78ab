package definition

// Wildcard in Input_Fields requests the entire state instead of a
// field projection.
const Wildcard = "*"

// CustomPrefix namespaces agent types supplied by external collaborators
// (e.g. "custom:crm_lookup"). The prefix is a naming convention only; the
// dispatch registry treats type names as opaque strings.
const CustomPrefix = "custom:"

// NodeSpec is one row of a workflow definition: a unit of work bound to
// one agent type, with its routing and state wiring. Identity is
// (GraphName, Name), unique within a graph.
type NodeSpec struct {
	GraphName string
	Name      string
	AgentType string

	// SuccessNext and FailureNext hold zero or more target node names.
	// Multi-target lists are reserved for orchestrator-style single
	// selection; an empty list means the node is terminal on that path.
	SuccessNext []string
	FailureNext []string

	// InputFields lists the state fields the node requires, in order.
	// A single Wildcard entry requests the full state.
	InputFields []string

	// OutputField names the state field the node's result is written to.
	// Empty means the node produces no durable output.
	OutputField string

	// Context is an opaque configuration blob decoded by the dispatched
	// agent at construction time, never by the engine.
	Context map[string]any

	// Prompt is an opaque template with {field_name} placeholders the
	// agent resolves against the projected state.
	Prompt string

	// Edge and Description are accepted but not interpreted.
	Edge        string
	Description string
}

// WantsFullState reports whether the node requested the entire state via
// the wildcard input field.
func (n *NodeSpec) WantsFullState() bool {
	for _, f := range n.InputFields {
		if f == Wildcard {
			return true
		}
	}
	return false
}

// IsCustom reports whether the agent type uses the external namespace.
func (n *NodeSpec) IsCustom() bool {
	return len(n.AgentType) > len(CustomPrefix) && n.AgentType[:len(CustomPrefix)] == CustomPrefix
}

// WorkflowDefinition is an ordered collection of NodeSpec records sharing
// a graph name. Immutable once parsed.
type WorkflowDefinition struct {
	GraphName string
	Nodes     []*NodeSpec
}

// Node returns the first node with the given name, or nil.
func (d *WorkflowDefinition) Node(name string) *NodeSpec {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// NodeNames returns all node names in definition order.
func (d *WorkflowDefinition) NodeNames() []string {
	names := make([]string, len(d.Nodes))
	for i, n := range d.Nodes {
		names[i] = n.Name
	}
	return names
}
