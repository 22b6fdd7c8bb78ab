// Package flowgraph provides a top-level convenience entry point for
// loading and running tabular workflow definitions with minimal
// boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/flowgraph"
//
//	graphs, err := flowgraph.Load("workflows/support.csv")
//	result, err := flowgraph.Run(ctx, "workflows/support.csv", "support",
//	    map[string]any{"ticket": "my invoice is wrong"})
//
// This is a thin wrapper over the definition, graph and engine packages;
// anything beyond a one-shot run (custom agents, trackers, metrics,
// sessions) should use those packages directly.
package flowgraph

import (
	"context"
	"fmt"

	"github.com/BaSui01/flowgraph/agent"
	"github.com/BaSui01/flowgraph/definition"
	"github.com/BaSui01/flowgraph/engine"
	"github.com/BaSui01/flowgraph/graph"
)

// Load parses a workflow document and builds every graph it defines.
func Load(path string) ([]*graph.Graph, error) {
	defs, err := definition.LoadFile(path)
	if err != nil {
		return nil, err
	}
	graphs := make([]*graph.Graph, 0, len(defs))
	for _, def := range defs {
		g, err := graph.NewBuilder(def).Build()
		if err != nil {
			return nil, err
		}
		graphs = append(graphs, g)
	}
	return graphs, nil
}

// LoadOne parses a workflow document that must define exactly one graph.
func LoadOne(path string) (*graph.Graph, error) {
	graphs, err := Load(path)
	if err != nil {
		return nil, err
	}
	if len(graphs) != 1 {
		return nil, fmt.Errorf("expected exactly one graph in %s, got %d", path, len(graphs))
	}
	return graphs[0], nil
}

// Run executes one graph from a workflow document against the built-in
// agent registry and returns the sealed run result.
func Run(ctx context.Context, path, graphName string, initial map[string]any) (*engine.RunResult, error) {
	graphs, err := Load(path)
	if err != nil {
		return nil, err
	}
	for _, g := range graphs {
		if g.Name() == graphName {
			return engine.NewEngine(agent.NewRegistry()).Execute(ctx, g, initial)
		}
	}
	return nil, fmt.Errorf("graph %q not defined in %s", graphName, path)
}
