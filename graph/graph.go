package graph

import (
	"github.com/BaSui01/flowgraph/definition"
)

// WarningCode classifies non-fatal findings surfaced by the builder.
type WarningCode string

const (
	// WarnUnconditionalCycle flags a cycle in which every node has a
	// single successor and no failure path, so the cycle has no exit.
	WarnUnconditionalCycle WarningCode = "UNCONDITIONAL_CYCLE"
)

// Warning is a non-fatal validation finding. The graph still builds.
type Warning struct {
	Code  WarningCode
	Nodes []string
}

// Graph is a validated workflow graph with adjacency by node name.
type Graph struct {
	name     string
	nodes    map[string]*definition.NodeSpec
	order    []string
	entry    string
	warnings []Warning
}

// Name returns the graph name.
func (g *Graph) Name() string {
	return g.name
}

// Entry returns the entry node name.
func (g *Graph) Entry() string {
	return g.entry
}

// Node retrieves a node spec by name.
func (g *Graph) Node(name string) (*definition.NodeSpec, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// HasNode reports whether a node exists in the graph.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// NodeNames returns all node names in definition order.
func (g *Graph) NodeNames() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Successors returns every node name reachable from the given node in one
// step, success targets first, then failure targets.
func (g *Graph) Successors(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(n.SuccessNext)+len(n.FailureNext))
	out = append(out, n.SuccessNext...)
	out = append(out, n.FailureNext...)
	return out
}

// Warnings returns the non-fatal findings recorded at build time.
func (g *Graph) Warnings() []Warning {
	out := make([]Warning, len(g.warnings))
	copy(out, g.warnings)
	return out
}

// HasWarning reports whether a warning with the given code was recorded.
func (g *Graph) HasWarning(code WarningCode) bool {
	for _, w := range g.warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Export re-emits the graph as definition rows in definition order, so a
// validated graph can be written back to a tabular document.
func (g *Graph) Export() []definition.Row {
	rows := make([]definition.Row, 0, len(g.order))
	for _, name := range g.order {
		n := g.nodes[name]
		rows = append(rows, definition.Row{
			GraphName:   n.GraphName,
			Node:        n.Name,
			Edge:        n.Edge,
			Context:     n.Context,
			AgentType:   n.AgentType,
			SuccessNext: joinList(n.SuccessNext),
			FailureNext: joinList(n.FailureNext),
			InputFields: joinList(n.InputFields),
			OutputField: n.OutputField,
			Prompt:      n.Prompt,
			Description: n.Description,
		})
	}
	return rows
}

func joinList(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += definition.ListDelimiter
		}
		out += item
	}
	return out
}
