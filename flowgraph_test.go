package flowgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowgraph/tracker"
)

const supportCSV = `graph_name,node,agent_type,success_next,failure_next,input_fields,output_field,prompt,context
support,classify,echo,route,,ticket,category,billing,
support,route,orchestrator,handle_billing|fallback,,category,,,"{""routes"": {""billing"": ""handle_billing""}, ""default"": ""fallback""}"
support,handle_billing,echo,,,*,reply,handled billing case,
support,fallback,echo,,,*,reply,escalated to a human,
`

func writeWorkflow(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "support.csv")
	require.NoError(t, os.WriteFile(path, []byte(supportCSV), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	graphs, err := Load(writeWorkflow(t))
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	assert.Equal(t, "support", graphs[0].Name())
	assert.Equal(t, "classify", graphs[0].Entry())
	assert.Equal(t, 4, graphs[0].Len())
}

func TestLoadOne(t *testing.T) {
	g, err := LoadOne(writeWorkflow(t))
	require.NoError(t, err)
	assert.Equal(t, "support", g.Name())
}

func TestRun(t *testing.T) {
	path := writeWorkflow(t)

	result, err := Run(context.Background(), path, "support",
		map[string]any{"ticket": "my invoice is wrong"})
	require.NoError(t, err)

	assert.Equal(t, tracker.StatusCompleted, result.Record.Status)
	assert.Equal(t, []string{"classify", "route", "handle_billing"}, result.Record.Walk())
	assert.Equal(t, "handled billing case", result.State["reply"])
}

func TestRunUnknownGraph(t *testing.T) {
	_, err := Run(context.Background(), writeWorkflow(t), "missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not defined")
}
