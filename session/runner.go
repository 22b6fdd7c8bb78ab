package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/engine"
	"github.com/BaSui01/flowgraph/internal/metrics"
)

// Runner executes graphs within sessions. State saved by the previous run
// of a session is loaded and merged under the fresh input, and the final
// state of each run is saved back.
type Runner struct {
	service *engine.Service
	store   Store
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewRunner creates a runner over the given service and store.
func NewRunner(service *engine.Service, store Store) *Runner {
	return &Runner{
		service: service,
		store:   store,
		logger:  zap.NewNop(),
	}
}

// WithLogger sets the runner logger.
func (r *Runner) WithLogger(logger *zap.Logger) *Runner {
	if logger != nil {
		r.logger = logger.With(zap.String("component", "session_runner"))
	}
	return r
}

// WithMetrics enables session hit and miss counters.
func (r *Runner) WithMetrics(c *metrics.Collector) *Runner {
	r.metrics = c
	return r
}

// NewSessionID mints a fresh session id.
func NewSessionID() string {
	return uuid.NewString()
}

// Run executes the named graph inside a session. Input fields overwrite
// stored session fields of the same name. The session is saved with the
// run's final state regardless of the run's terminal status.
func (r *Runner) Run(ctx context.Context, sessionID, graphName string, input map[string]any) (*engine.RunResult, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id must not be empty")
	}

	initial := make(map[string]any)
	stored, err := r.store.Load(ctx, sessionID)
	switch {
	case err == nil:
		for k, v := range stored.State {
			initial[k] = v
		}
		if r.metrics != nil {
			r.metrics.RecordSessionHit(storeName(r.store))
		}
	case errors.Is(err, ErrNotFound):
		if r.metrics != nil {
			r.metrics.RecordSessionMiss(storeName(r.store))
		}
	default:
		return nil, fmt.Errorf("load session %q: %w", sessionID, err)
	}
	for k, v := range input {
		initial[k] = v
	}

	result, err := r.service.Execute(ctx, graphName, initial)
	if err != nil {
		return nil, err
	}

	if err := r.store.Save(ctx, &Session{
		ID:        sessionID,
		GraphName: graphName,
		State:     result.State,
		UpdatedAt: time.Now(),
	}); err != nil {
		// The run itself succeeded; persistence trouble is surfaced in the
		// log, not the result.
		r.logger.Error("session save failed",
			zap.String("session_id", sessionID),
			zap.String("graph", graphName),
			zap.Error(err))
	}

	return result, nil
}

// End deletes a session.
func (r *Runner) End(ctx context.Context, sessionID string) error {
	return r.store.Delete(ctx, sessionID)
}

func storeName(s Store) string {
	switch s.(type) {
	case *RedisStore:
		return "redis"
	case *MemStore:
		return "memory"
	default:
		return "custom"
	}
}
