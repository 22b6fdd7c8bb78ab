package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/flowgraph/types"
)

// runRow is the runs table model.
type runRow struct {
	RunID     string `gorm:"primaryKey;size:36"`
	GraphName string `gorm:"index;size:255;not null"`
	Status    string `gorm:"index;size:16;not null"`
	StartedAt time.Time
	EndedAt   *time.Time
	FinalNode string `gorm:"size:255"`
	Error     string
}

func (runRow) TableName() string { return "flowgraph_runs" }

// stepRow is the run_steps table model.
type stepRow struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"index;size:36;not null"`
	Seq        int    `gorm:"not null"`
	Node       string `gorm:"size:255;not null"`
	AgentType  string `gorm:"size:255;not null"`
	StartedAt  time.Time
	EndedAt    time.Time
	DurationMs int64
	Success    bool
	Error      string
	ErrorCode  string `gorm:"size:64"`
}

func (stepRow) TableName() string { return "flowgraph_run_steps" }

// OpenDatabase opens a GORM handle for the given driver. Supported
// drivers: sqlite (pure Go), postgres, mysql.
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// DB is a Tracker persisting run histories through GORM.
type DB struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewDB creates a database tracker and migrates its schema. For
// migration-managed deployments use internal/migration and pass
// AutoMigrate-free handles via NewDBWithoutMigration.
func NewDB(db *gorm.DB, logger *zap.Logger) (*DB, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.AutoMigrate(&runRow{}, &stepRow{}); err != nil {
		return nil, fmt.Errorf("migrate tracker schema: %w", err)
	}
	return NewDBWithoutMigration(db, logger), nil
}

// NewDBWithoutMigration creates a database tracker assuming the schema
// already exists.
func NewDBWithoutMigration(db *gorm.DB, logger *zap.Logger) *DB {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{
		db:     db,
		logger: logger.With(zap.String("component", "db_tracker")),
	}
}

// StartRun implements Tracker.
func (t *DB) StartRun(ctx context.Context, graphName string) (string, error) {
	id := uuid.NewString()
	row := runRow{
		RunID:     id,
		GraphName: graphName,
		Status:    string(StatusRunning),
		StartedAt: time.Now(),
	}
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordStep implements Tracker.
func (t *DB) RecordStep(ctx context.Context, runID string, step StepRecord) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var run runRow
		if err := tx.First(&run, "run_id = ?", runID).Error; err != nil {
			return fmt.Errorf("load run %q: %w", runID, err)
		}
		if Status(run.Status).Terminal() {
			return fmt.Errorf("run %q is sealed", runID)
		}

		var seq int64
		if err := tx.Model(&stepRow{}).Where("run_id = ?", runID).Count(&seq).Error; err != nil {
			return fmt.Errorf("count steps: %w", err)
		}

		row := stepRow{
			RunID:      runID,
			Seq:        int(seq) + 1,
			Node:       step.Node,
			AgentType:  step.AgentType,
			StartedAt:  step.StartedAt,
			EndedAt:    step.EndedAt,
			DurationMs: step.Duration.Milliseconds(),
			Success:    step.Success,
			Error:      step.Error,
			ErrorCode:  string(step.ErrorCode),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert step: %w", err)
		}
		return nil
	})
}

// Seal implements Tracker.
func (t *DB) Seal(ctx context.Context, runID string, status Status, finalNode, errMsg string) error {
	now := time.Now()
	res := t.db.WithContext(ctx).Model(&runRow{}).
		Where("run_id = ? AND status NOT IN ?", runID, []string{
			string(StatusCompleted), string(StatusFailed), string(StatusAborted),
		}).
		Updates(map[string]any{
			"status":     string(status),
			"final_node": finalNode,
			"error":      errMsg,
			"ended_at":   now,
		})
	if res.Error != nil {
		return fmt.Errorf("seal run %q: %w", runID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %q not found or already sealed", runID)
	}
	return nil
}

// History implements Tracker.
func (t *DB) History(ctx context.Context, runID string) (*RunRecord, error) {
	var run runRow
	if err := t.db.WithContext(ctx).First(&run, "run_id = ?", runID).Error; err != nil {
		return nil, fmt.Errorf("load run %q: %w", runID, err)
	}

	var steps []stepRow
	if err := t.db.WithContext(ctx).
		Where("run_id = ?", runID).Order("seq ASC").Find(&steps).Error; err != nil {
		return nil, fmt.Errorf("load steps for run %q: %w", runID, err)
	}

	return toRecord(run, steps), nil
}

// ListByGraph returns all runs of a graph, oldest first, without steps.
func (t *DB) ListByGraph(ctx context.Context, graphName string) ([]*RunRecord, error) {
	var rows []runRow
	if err := t.db.WithContext(ctx).
		Where("graph_name = ?", graphName).
		Order("started_at ASC, run_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list runs for graph %q: %w", graphName, err)
	}

	out := make([]*RunRecord, len(rows))
	for i, row := range rows {
		out[i] = toRecord(row, nil)
	}
	return out, nil
}

func toRecord(run runRow, steps []stepRow) *RunRecord {
	rec := &RunRecord{
		RunID:     run.RunID,
		GraphName: run.GraphName,
		Status:    Status(run.Status),
		StartedAt: run.StartedAt,
		FinalNode: run.FinalNode,
		Error:     run.Error,
	}
	if run.EndedAt != nil {
		rec.EndedAt = *run.EndedAt
		rec.Duration = rec.EndedAt.Sub(rec.StartedAt)
	}
	for _, s := range steps {
		rec.Steps = append(rec.Steps, StepRecord{
			Node:      s.Node,
			AgentType: s.AgentType,
			StartedAt: s.StartedAt,
			EndedAt:   s.EndedAt,
			Duration:  time.Duration(s.DurationMs) * time.Millisecond,
			Success:   s.Success,
			Error:     s.Error,
			ErrorCode: types.ErrorCode(s.ErrorCode),
		})
	}
	return rec
}
