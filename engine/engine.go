package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/flowgraph/agent"
	"github.com/BaSui01/flowgraph/definition"
	"github.com/BaSui01/flowgraph/graph"
	"github.com/BaSui01/flowgraph/internal/metrics"
	"github.com/BaSui01/flowgraph/state"
	"github.com/BaSui01/flowgraph/tracker"
)

// RunResult is the outcome of one run: the sealed record and the final
// state snapshot. A failed run is a valid result, not an error; Execute
// returns a non-nil error only when the run could not start at all.
type RunResult struct {
	Record *tracker.RunRecord
	State  map[string]any
}

// Status returns the terminal status of the run.
func (r *RunResult) Status() tracker.Status {
	return r.Record.Status
}

// Engine executes graphs against an agent registry.
type Engine struct {
	registry *agent.Registry
	tracker  tracker.Tracker
	logger   *zap.Logger
	metrics  *metrics.Collector
	limiter  *rate.Limiter
	tracer   trace.Tracer
}

// NewEngine creates an engine over the given registry, recording runs in
// an in-memory tracker until WithTracker swaps it out.
func NewEngine(registry *agent.Registry) *Engine {
	return &Engine{
		registry: registry,
		tracker:  tracker.NewMemory(),
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the engine logger.
func (e *Engine) WithLogger(logger *zap.Logger) *Engine {
	if logger != nil {
		e.logger = logger.With(zap.String("component", "engine"))
	}
	return e
}

// WithTracker sets the tracker run histories are mirrored to.
func (e *Engine) WithTracker(t tracker.Tracker) *Engine {
	if t != nil {
		e.tracker = t
	}
	return e
}

// WithMetrics enables Prometheus metrics for runs and node executions.
func (e *Engine) WithMetrics(c *metrics.Collector) *Engine {
	e.metrics = c
	return e
}

// WithRateLimit throttles node dispatch across all runs of this engine.
func (e *Engine) WithRateLimit(limiter *rate.Limiter) *Engine {
	e.limiter = limiter
	return e
}

// WithTracer enables OpenTelemetry spans per run and per node.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer
	return e
}

// Tracker returns the tracker the engine mirrors run histories to.
func (e *Engine) Tracker() tracker.Tracker {
	return e.tracker
}

// Execute runs the graph from its entry node with the given initial
// state. The returned record is sealed with one of the terminal statuses;
// node failures route via failure edges and never surface as an error
// from Execute itself.
func (e *Engine) Execute(ctx context.Context, g *graph.Graph, initial map[string]any) (*RunResult, error) {
	if g == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}
	if g.Entry() == "" {
		return nil, fmt.Errorf("graph %q has no entry node", g.Name())
	}

	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "flowgraph.run",
			trace.WithAttributes(attribute.String("graph", g.Name())))
		defer span.End()
	}

	runID, err := e.tracker.StartRun(ctx, g.Name())
	mirror := err == nil
	if err != nil {
		runID = uuid.NewString()
		e.logger.Error("tracker rejected run start, continuing unmirrored",
			zap.String("graph", g.Name()), zap.Error(err))
	}

	rec := &tracker.RunRecord{
		RunID:     runID,
		GraphName: g.Name(),
		Status:    tracker.StatusRunning,
		StartedAt: time.Now(),
	}
	st := state.New(initial)

	e.logger.Info("run started",
		zap.String("run_id", runID),
		zap.String("graph", g.Name()),
		zap.String("entry", g.Entry()),
	)

	status, finalNode, runErr := e.walk(ctx, g, st, rec, mirror)
	e.seal(ctx, rec, status, finalNode, runErr, mirror)

	e.logger.Info("run finished",
		zap.String("run_id", runID),
		zap.String("graph", g.Name()),
		zap.String("status", string(status)),
		zap.String("final_node", finalNode),
		zap.Int("steps", len(rec.Steps)),
	)

	return &RunResult{Record: rec, State: st.Snapshot()}, nil
}

// walk drives the node loop and returns the terminal status, the last
// node reached and the error that ended the run (nil when completed).
func (e *Engine) walk(ctx context.Context, g *graph.Graph, st *state.State, rec *tracker.RunRecord, mirror bool) (tracker.Status, string, error) {
	current := g.Entry()
	finalNode := ""

	for current != "" {
		// Cancellation is checked at node boundaries only; an in-flight
		// agent finishes and its outcome is recorded before the run stops.
		select {
		case <-ctx.Done():
			return tracker.StatusAborted, finalNode, ctx.Err()
		default:
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return tracker.StatusAborted, finalNode, err
			}
		}

		node, ok := g.Node(current)
		if !ok {
			// Unreachable after a successful build; guards corrupted graphs.
			return tracker.StatusFailed, finalNode,
				fmt.Errorf("node %q not found in graph %q", current, g.Name())
		}
		finalNode = current

		step, result, runErr := e.runNode(ctx, g, node, st)
		rec.Steps = append(rec.Steps, step)
		if mirror {
			if err := e.tracker.RecordStep(ctx, rec.RunID, step); err != nil {
				e.logger.Error("tracker rejected step",
					zap.String("run_id", rec.RunID),
					zap.String("node", node.Name),
					zap.Error(err))
			}
		}
		if e.metrics != nil {
			status := "success"
			if runErr != nil {
				status = "failure"
			}
			e.metrics.RecordNodeExecution(g.Name(), node.AgentType, status, step.Duration)
		}

		if runErr != nil {
			if len(node.FailureNext) == 0 {
				return tracker.StatusFailed, current, runErr
			}
			current = node.FailureNext[0]
			continue
		}

		if node.OutputField != "" && result != nil {
			st.Set(node.OutputField, result.Output)
		}

		if result != nil && result.Target != "" {
			if !g.HasNode(result.Target) {
				err := invalidTarget(g.Name(), node.Name, result.Target)
				return tracker.StatusFailed, current, err
			}
			if e.metrics != nil {
				e.metrics.RecordRouteDecision(g.Name(), result.Target)
			}
			e.logger.Debug("dynamic route selected",
				zap.String("run_id", rec.RunID),
				zap.String("node", node.Name),
				zap.String("target", result.Target))
			current = result.Target
			continue
		}

		if len(node.SuccessNext) == 0 {
			return tracker.StatusCompleted, current, nil
		}
		current = node.SuccessNext[0]
	}

	return tracker.StatusCompleted, finalNode, nil
}

// runNode dispatches one node and captures its outcome as a step record.
// Panics inside agents are converted to execution errors so a misbehaving
// agent fails its node instead of the process.
func (e *Engine) runNode(ctx context.Context, g *graph.Graph, node *definition.NodeSpec, st *state.State) (tracker.StepRecord, *agent.Result, error) {
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.Start(ctx, "flowgraph.node",
			trace.WithAttributes(
				attribute.String("graph", g.Name()),
				attribute.String("node", node.Name),
				attribute.String("agent_type", node.AgentType),
			))
		defer span.End()
	}

	started := time.Now()
	result, err := e.dispatch(ctx, node, st)
	ended := time.Now()

	step := tracker.StepRecord{
		Node:      node.Name,
		AgentType: node.AgentType,
		StartedAt: started,
		EndedAt:   ended,
		Duration:  ended.Sub(started),
		Success:   err == nil,
	}
	if err != nil {
		step.Error = err.Error()
		step.ErrorCode = errorCode(err)
		e.logger.Warn("node failed",
			zap.String("graph", g.Name()),
			zap.String("node", node.Name),
			zap.String("agent_type", node.AgentType),
			zap.Error(err))
		if e.tracer != nil {
			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	return step, result, err
}

// dispatch resolves, builds and runs the agent for one node.
func (e *Engine) dispatch(ctx context.Context, node *definition.NodeSpec, st *state.State) (result *agent.Result, err error) {
	factory, err := e.registry.Resolve(node.AgentType)
	if err != nil {
		return nil, err
	}

	a, err := factory(node)
	if err != nil {
		return nil, wrapExecution(node, fmt.Errorf("construct agent: %w", err))
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = wrapExecution(node, fmt.Errorf("agent panicked: %v", r))
		}
	}()

	result, err = a.Run(ctx, st.Project(node.InputFields))
	if err != nil {
		return nil, wrapExecution(node, err)
	}
	return result, nil
}

// seal closes the run record and mirrors the terminal status.
func (e *Engine) seal(ctx context.Context, rec *tracker.RunRecord, status tracker.Status, finalNode string, runErr error, mirror bool) {
	rec.Status = status
	rec.FinalNode = finalNode
	rec.EndedAt = time.Now()
	rec.Duration = rec.EndedAt.Sub(rec.StartedAt)
	if runErr != nil {
		rec.Error = runErr.Error()
	}

	if mirror {
		if err := e.tracker.Seal(ctx, rec.RunID, status, finalNode, rec.Error); err != nil {
			e.logger.Error("tracker rejected seal",
				zap.String("run_id", rec.RunID),
				zap.Error(err))
		}
	}
	if e.metrics != nil {
		e.metrics.RecordRun(rec.GraphName, string(status), rec.Duration)
	}
}
