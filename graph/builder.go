package graph

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/definition"
	"github.com/BaSui01/flowgraph/types"
)

// Builder validates a workflow definition and produces an immutable
// Graph. Building the same definition twice yields structurally identical
// graphs: every validation step iterates in definition order, never map
// order.
type Builder struct {
	def    *definition.WorkflowDefinition
	entry  string
	logger *zap.Logger
}

// NewBuilder creates a builder for one workflow definition.
func NewBuilder(def *definition.WorkflowDefinition) *Builder {
	return &Builder{
		def:    def,
		logger: zap.NewNop(),
	}
}

// WithLogger sets a custom logger.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger.With(zap.String("component", "graph_builder"))
	return b
}

// WithEntry explicitly designates the entry node, overriding in-degree
// based detection.
func (b *Builder) WithEntry(node string) *Builder {
	b.entry = node
	return b
}

// Build validates the definition and returns the graph, or the first
// structural error encountered. Structural errors prevent any run from
// starting; they are surfaced here and never recovered.
func (b *Builder) Build() (*Graph, error) {
	if b.def == nil || len(b.def.Nodes) == 0 {
		return nil, types.NewError(types.ErrMalformedDefinition, "definition has no nodes")
	}

	g := &Graph{
		name:  b.def.GraphName,
		nodes: make(map[string]*definition.NodeSpec, len(b.def.Nodes)),
		order: make([]string, 0, len(b.def.Nodes)),
	}

	for _, n := range b.def.Nodes {
		if _, exists := g.nodes[n.Name]; exists {
			return nil, types.NewError(types.ErrDuplicateNode,
				fmt.Sprintf("node %q defined more than once", n.Name)).
				WithGraph(g.name).WithNode(n.Name)
		}
		g.nodes[n.Name] = n
		g.order = append(g.order, n.Name)
	}

	if err := b.checkReferences(g); err != nil {
		return nil, err
	}

	entry, err := b.resolveEntry(g)
	if err != nil {
		return nil, err
	}
	g.entry = entry

	if err := b.checkReachability(g); err != nil {
		return nil, err
	}

	b.detectUnconditionalCycles(g)

	b.logger.Info("graph built",
		zap.String("graph", g.name),
		zap.Int("nodes", g.Len()),
		zap.String("entry", g.entry),
		zap.Int("warnings", len(g.warnings)),
	)

	return g, nil
}

// checkReferences verifies every success/failure target resolves to a
// node in the same graph. Edges are never silently dropped.
func (b *Builder) checkReferences(g *Graph) error {
	for _, name := range g.order {
		n := g.nodes[name]
		for _, list := range [][]string{n.SuccessNext, n.FailureNext} {
			for _, target := range list {
				if !g.HasNode(target) {
					return types.NewError(types.ErrDanglingReference,
						fmt.Sprintf("node %q references undefined node %q", name, target)).
						WithGraph(g.name).WithNode(name)
				}
			}
		}
	}
	return nil
}

// resolveEntry determines the entry point: the explicit designation when
// set, otherwise the single node nothing else points to, scanned in
// definition order. When every node has incoming edges, as in a fully
// cyclic graph, the first definition-order node is the entry.
func (b *Builder) resolveEntry(g *Graph) (string, error) {
	if b.entry != "" {
		if !g.HasNode(b.entry) {
			return "", types.NewError(types.ErrNoEntryPoint,
				fmt.Sprintf("designated entry %q is not defined", b.entry)).
				WithGraph(g.name).WithNode(b.entry)
		}
		return b.entry, nil
	}

	inDegree := make(map[string]int, len(g.order))
	for _, name := range g.order {
		for _, target := range g.Successors(name) {
			inDegree[target]++
		}
	}

	var candidates []string
	for _, name := range g.order {
		if inDegree[name] == 0 {
			candidates = append(candidates, name)
		}
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		entry := g.order[0]
		b.logger.Info("every node has incoming edges, using first row as entry",
			zap.String("graph", g.name),
			zap.String("entry", entry))
		return entry, nil
	default:
		return "", types.NewError(types.ErrNoEntryPoint,
			fmt.Sprintf("multiple entry candidates %v; designate an entry explicitly", candidates)).
			WithGraph(g.name)
	}
}

// checkReachability verifies every node is reachable from the entry.
func (b *Builder) checkReachability(g *Graph) error {
	reachable := make(map[string]bool, len(g.order))
	b.markReachable(g, g.entry, reachable)

	var orphaned []string
	for _, name := range g.order {
		if !reachable[name] {
			orphaned = append(orphaned, name)
		}
	}
	if len(orphaned) > 0 {
		return types.NewError(types.ErrUnreachableNode,
			fmt.Sprintf("nodes not reachable from entry %q: %v", g.entry, orphaned)).
			WithGraph(g.name).WithNode(orphaned[0])
	}
	return nil
}

func (b *Builder) markReachable(g *Graph, name string, reachable map[string]bool) {
	if reachable[name] {
		return
	}
	reachable[name] = true
	for _, target := range g.Successors(name) {
		b.markReachable(g, target, reachable)
	}
}

// detectUnconditionalCycles finds cycles in which every member has a
// single successor and no failure path. Such a cycle can never terminate,
// so it is flagged. Cycles as such are permitted (feedback loops are a
// supported pattern), so the build still succeeds.
func (b *Builder) detectUnconditionalCycles(g *Graph) {
	for _, comp := range b.stronglyConnected(g) {
		if len(comp) == 1 && !b.selfLoop(g, comp[0]) {
			continue
		}

		inComp := make(map[string]bool, len(comp))
		for _, name := range comp {
			inComp[name] = true
		}

		unconditional := true
		for _, name := range comp {
			n := g.nodes[name]
			if len(n.SuccessNext) != 1 || len(n.FailureNext) != 0 || !inComp[n.SuccessNext[0]] {
				unconditional = false
				break
			}
		}
		if unconditional {
			g.warnings = append(g.warnings, Warning{
				Code:  WarnUnconditionalCycle,
				Nodes: comp,
			})
			b.logger.Warn("cycle without conditional exit can never terminate",
				zap.String("graph", g.name),
				zap.Strings("nodes", comp),
			)
		}
	}
}

func (b *Builder) selfLoop(g *Graph, name string) bool {
	for _, target := range g.Successors(name) {
		if target == name {
			return true
		}
	}
	return false
}

// stronglyConnected returns the graph's strongly connected components
// (Tarjan), visiting nodes in definition order so output is
// deterministic. Component node lists follow definition order as well.
func (b *Builder) stronglyConnected(g *Graph) [][]string {
	index := make(map[string]int, len(g.order))
	lowlink := make(map[string]int, len(g.order))
	onStack := make(map[string]bool, len(g.order))
	var stack []string
	var components [][]string
	next := 0

	var strongconnect func(name string)
	strongconnect = func(name string) {
		index[name] = next
		lowlink[name] = next
		next++
		stack = append(stack, name)
		onStack[name] = true

		for _, target := range g.Successors(name) {
			if _, visited := index[target]; !visited {
				strongconnect(target)
				if lowlink[target] < lowlink[name] {
					lowlink[name] = lowlink[target]
				}
			} else if onStack[target] && index[target] < lowlink[name] {
				lowlink[name] = index[target]
			}
		}

		if lowlink[name] == index[name] {
			var comp []string
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				comp = append(comp, top)
				if top == name {
					break
				}
			}
			components = append(components, b.inDefinitionOrder(g, comp))
		}
	}

	for _, name := range g.order {
		if _, visited := index[name]; !visited {
			strongconnect(name)
		}
	}
	return components
}

func (b *Builder) inDefinitionOrder(g *Graph, names []string) []string {
	member := make(map[string]bool, len(names))
	for _, n := range names {
		member[n] = true
	}
	out := make([]string, 0, len(names))
	for _, n := range g.order {
		if member[n] {
			out = append(out, n)
		}
	}
	return out
}
