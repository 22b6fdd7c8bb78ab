package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/flowgraph/agent"
	"github.com/BaSui01/flowgraph/definition"
	"github.com/BaSui01/flowgraph/engine"
	"github.com/BaSui01/flowgraph/graph"
	"github.com/BaSui01/flowgraph/tracker"
)

func newRunner(t *testing.T) *Runner {
	t.Helper()

	def, err := definition.ParseOne([]definition.Row{
		{GraphName: "greet", Node: "hello", AgentType: "echo",
			InputFields: "name", Prompt: "hi {name}", OutputField: "msg"},
	})
	require.NoError(t, err)
	g, err := graph.NewBuilder(def).Build()
	require.NoError(t, err)

	svc := engine.NewService(engine.NewEngine(agent.NewRegistry()))
	require.NoError(t, svc.Register(g))
	return NewRunner(svc, NewMemStore())
}

func TestRunnerPersistsStateAcrossRuns(t *testing.T) {
	ctx := context.Background()
	runner := newRunner(t)
	sid := NewSessionID()
	require.NotEmpty(t, sid)

	first, err := runner.Run(ctx, sid, "greet", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusCompleted, first.Status())
	assert.Equal(t, "hi Ada", first.State["msg"])

	// Second run gives no name; the stored session supplies it.
	second, err := runner.Run(ctx, sid, "greet", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi Ada", second.State["msg"])
}

func TestRunnerInputOverridesStoredState(t *testing.T) {
	ctx := context.Background()
	runner := newRunner(t)
	sid := NewSessionID()

	_, err := runner.Run(ctx, sid, "greet", map[string]any{"name": "Ada"})
	require.NoError(t, err)

	second, err := runner.Run(ctx, sid, "greet", map[string]any{"name": "Bo"})
	require.NoError(t, err)
	assert.Equal(t, "hi Bo", second.State["msg"])
}

func TestRunnerSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	runner := newRunner(t)

	_, err := runner.Run(ctx, "s1", "greet", map[string]any{"name": "Ada"})
	require.NoError(t, err)

	// A different session has no stored name, so the placeholder survives.
	other, err := runner.Run(ctx, "s2", "greet", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi {name}", other.State["msg"])
}

func TestRunnerEnd(t *testing.T) {
	ctx := context.Background()
	runner := newRunner(t)
	sid := NewSessionID()

	_, err := runner.Run(ctx, sid, "greet", map[string]any{"name": "Ada"})
	require.NoError(t, err)
	require.NoError(t, runner.End(ctx, sid))

	// After End the session is gone and the name must come from input.
	res, err := runner.Run(ctx, sid, "greet", nil)
	require.NoError(t, err)
	assert.Equal(t, "hi {name}", res.State["msg"])
}

func TestRunnerRequiresSessionID(t *testing.T) {
	runner := newRunner(t)
	_, err := runner.Run(context.Background(), "", "greet", nil)
	require.Error(t, err)
}

func TestRunnerUnknownGraph(t *testing.T) {
	runner := newRunner(t)
	_, err := runner.Run(context.Background(), NewSessionID(), "missing", nil)
	require.Error(t, err)
}
