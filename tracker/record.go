package tracker

import (
	"time"

	"github.com/BaSui01/flowgraph/types"
)

// Status is the lifecycle state of a run.
type Status string

const (
	// StatusPending marks a run created but not started.
	StatusPending Status = "pending"
	// StatusRunning marks a run with a node executing.
	StatusRunning Status = "running"
	// StatusCompleted marks a run that reached a terminal node with success.
	StatusCompleted Status = "completed"
	// StatusFailed marks a run that ended via a failure path or an
	// unhandled error.
	StatusFailed Status = "failed"
	// StatusAborted marks a run ended by cancellation.
	StatusAborted Status = "aborted"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAborted
}

// StepRecord is the outcome of one node execution within a run.
type StepRecord struct {
	Node      string          `json:"node"`
	AgentType string          `json:"agent_type"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Duration  time.Duration   `json:"duration"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	ErrorCode types.ErrorCode `json:"error_code,omitempty"`
}

// RunRecord is the complete, ordered execution history of one run. It is
// created at run start, appended to per node, and sealed when the run
// ends; a sealed record is read-only.
type RunRecord struct {
	RunID     string       `json:"run_id"`
	GraphName string       `json:"graph_name"`
	Status    Status       `json:"status"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	FinalNode string       `json:"final_node,omitempty"`
	Error     string       `json:"error,omitempty"`
	Steps     []StepRecord `json:"steps"`
}

// LastStep returns the most recent step, or nil for an empty history.
func (r *RunRecord) LastStep() *StepRecord {
	if len(r.Steps) == 0 {
		return nil
	}
	return &r.Steps[len(r.Steps)-1]
}

// Walk returns the ordered node names the run visited.
func (r *RunRecord) Walk() []string {
	out := make([]string, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.Node
	}
	return out
}

// Clone returns a deep copy, so stored histories cannot be mutated
// through returned references.
func (r *RunRecord) Clone() *RunRecord {
	out := *r
	out.Steps = make([]StepRecord, len(r.Steps))
	copy(out.Steps, r.Steps)
	return &out
}
