package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker records run histories. Implementations are append-only: a
// sealed run rejects further writes.
type Tracker interface {
	// StartRun opens a new history for a run of the named graph and
	// returns its run id.
	StartRun(ctx context.Context, graphName string) (string, error)

	// RecordStep appends one node outcome to an open run.
	RecordStep(ctx context.Context, runID string, step StepRecord) error

	// Seal marks the run terminal with its final status, the last node
	// reached and the last error message (empty on success).
	Seal(ctx context.Context, runID string, status Status, finalNode, errMsg string) error

	// History returns the ordered record for a run id.
	History(ctx context.Context, runID string) (*RunRecord, error)
}

// Noop is a Tracker that records nothing. The engine must behave
// identically when wired with it.
type Noop struct{}

// StartRun implements Tracker.
func (Noop) StartRun(context.Context, string) (string, error) {
	return uuid.NewString(), nil
}

// RecordStep implements Tracker.
func (Noop) RecordStep(context.Context, string, StepRecord) error { return nil }

// Seal implements Tracker.
func (Noop) Seal(context.Context, string, Status, string, string) error { return nil }

// History implements Tracker.
func (Noop) History(_ context.Context, runID string) (*RunRecord, error) {
	return nil, fmt.Errorf("run %q not found", runID)
}

// Memory is the in-process Tracker used by default and in tests.
type Memory struct {
	runs map[string]*RunRecord
	mu   sync.RWMutex
}

// NewMemory creates an empty in-memory tracker.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]*RunRecord)}
}

// StartRun implements Tracker.
func (m *Memory) StartRun(_ context.Context, graphName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.runs[id] = &RunRecord{
		RunID:     id,
		GraphName: graphName,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	return id, nil
}

// RecordStep implements Tracker.
func (m *Memory) RecordStep(_ context.Context, runID string, step StepRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %q not found", runID)
	}
	if run.Status.Terminal() {
		return fmt.Errorf("run %q is sealed", runID)
	}
	run.Steps = append(run.Steps, step)
	return nil
}

// Seal implements Tracker.
func (m *Memory) Seal(_ context.Context, runID string, status Status, finalNode, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %q not found", runID)
	}
	if run.Status.Terminal() {
		return fmt.Errorf("run %q is already sealed", runID)
	}
	run.Status = status
	run.FinalNode = finalNode
	run.Error = errMsg
	run.EndedAt = time.Now()
	run.Duration = run.EndedAt.Sub(run.StartedAt)
	return nil
}

// History implements Tracker.
func (m *Memory) History(_ context.Context, runID string) (*RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %q not found", runID)
	}
	return run.Clone(), nil
}

// ListByGraph returns all runs of a graph, oldest first.
func (m *Memory) ListByGraph(_ context.Context, graphName string) ([]*RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*RunRecord
	for _, run := range m.runs {
		if run.GraphName == graphName {
			out = append(out, run.Clone())
		}
	}
	sortRuns(out)
	return out, nil
}

// ListByStatus returns all runs with the given status, oldest first.
func (m *Memory) ListByStatus(_ context.Context, status Status) ([]*RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*RunRecord
	for _, run := range m.runs {
		if run.Status == status {
			out = append(out, run.Clone())
		}
	}
	sortRuns(out)
	return out, nil
}

// ListByTimeRange returns runs started within [start, end], oldest first.
func (m *Memory) ListByTimeRange(_ context.Context, start, end time.Time) ([]*RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*RunRecord
	for _, run := range m.runs {
		if !run.StartedAt.Before(start) && !run.StartedAt.After(end) {
			out = append(out, run.Clone())
		}
	}
	sortRuns(out)
	return out, nil
}

func sortRuns(runs []*RunRecord) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].RunID < runs[j].RunID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
}
