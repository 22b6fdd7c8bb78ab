package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// One collector per process: promauto registers against the default
// registry, so every exercise shares this instance.
var collector = NewCollector("flowgraph_test", zap.NewNop())

func TestCollectorRecords(t *testing.T) {
	collector.RecordRun("support", "completed", 120*time.Millisecond)
	collector.RecordRun("support", "failed", 80*time.Millisecond)
	collector.RecordNodeExecution("support", "echo", "success", 10*time.Millisecond)
	collector.RecordNodeExecution("support", "orchestrator", "failure", 5*time.Millisecond)
	collector.RecordRouteDecision("support", "NodeA")
	collector.RecordSessionHit("memory")
	collector.RecordSessionMiss("redis")

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	for _, want := range []string{
		"flowgraph_test_runs_total",
		"flowgraph_test_run_duration_seconds",
		"flowgraph_test_node_executions_total",
		"flowgraph_test_node_execution_duration_seconds",
		"flowgraph_test_route_decisions_total",
		"flowgraph_test_session_hits_total",
		"flowgraph_test_session_misses_total",
	} {
		assert.True(t, names[want], want)
	}
}
