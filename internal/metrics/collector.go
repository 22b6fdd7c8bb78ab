package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the engine's Prometheus metrics.
type Collector struct {
	// Run metrics
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	// Node metrics
	nodeExecutionsTotal *prometheus.CounterVec
	nodeDuration        *prometheus.HistogramVec

	// Dynamic routing metrics
	routeDecisions *prometheus.CounterVec

	// Session store metrics
	sessionHits   *prometheus.CounterVec
	sessionMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a collector registering under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of workflow runs",
		},
		[]string{"graph", "status"},
	)

	c.runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Workflow run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"graph"},
	)

	c.nodeExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_executions_total",
			Help:      "Total number of node executions",
		},
		[]string{"graph", "agent_type", "status"},
	)

	c.nodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_execution_duration_seconds",
			Help:      "Node execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"graph", "agent_type"},
	)

	c.routeDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_decisions_total",
			Help:      "Total number of dynamic routing decisions",
		},
		[]string{"graph", "target"},
	)

	c.sessionHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_hits_total",
			Help:      "Total number of session store hits",
		},
		[]string{"store"},
	)

	c.sessionMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_misses_total",
			Help:      "Total number of session store misses",
		},
		[]string{"store"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordRun records a completed workflow run.
func (c *Collector) RecordRun(graph, status string, duration time.Duration) {
	c.runsTotal.WithLabelValues(graph, status).Inc()
	c.runDuration.WithLabelValues(graph).Observe(duration.Seconds())
}

// RecordNodeExecution records one node execution.
func (c *Collector) RecordNodeExecution(graph, agentType, status string, duration time.Duration) {
	c.nodeExecutionsTotal.WithLabelValues(graph, agentType, status).Inc()
	c.nodeDuration.WithLabelValues(graph, agentType).Observe(duration.Seconds())
}

// RecordRouteDecision records a dynamic routing decision.
func (c *Collector) RecordRouteDecision(graph, target string) {
	c.routeDecisions.WithLabelValues(graph, target).Inc()
}

// RecordSessionHit records a session store hit.
func (c *Collector) RecordSessionHit(store string) {
	c.sessionHits.WithLabelValues(store).Inc()
}

// RecordSessionMiss records a session store miss.
func (c *Collector) RecordSessionMiss(store string) {
	c.sessionMisses.WithLabelValues(store).Inc()
}
