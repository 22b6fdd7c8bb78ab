package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/BaSui01/flowgraph/types"
)

// mongoRun is the document layout for one run: steps are embedded so a
// history reads with a single round trip.
type mongoRun struct {
	RunID     string      `bson:"run_id"`
	GraphName string      `bson:"graph_name"`
	Status    string      `bson:"status"`
	StartedAt time.Time   `bson:"started_at"`
	EndedAt   *time.Time  `bson:"ended_at,omitempty"`
	FinalNode string      `bson:"final_node,omitempty"`
	Error     string      `bson:"error,omitempty"`
	Steps     []mongoStep `bson:"steps"`
}

type mongoStep struct {
	Node       string    `bson:"node"`
	AgentType  string    `bson:"agent_type"`
	StartedAt  time.Time `bson:"started_at"`
	EndedAt    time.Time `bson:"ended_at"`
	DurationMs int64     `bson:"duration_ms"`
	Success    bool      `bson:"success"`
	Error      string    `bson:"error,omitempty"`
	ErrorCode  string    `bson:"error_code,omitempty"`
}

// Mongo is a Tracker persisting run histories in a MongoDB collection.
type Mongo struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongo creates a MongoDB tracker over the given collection.
func NewMongo(coll *mongo.Collection, logger *zap.Logger) *Mongo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mongo{
		coll:   coll,
		logger: logger.With(zap.String("component", "mongo_tracker")),
	}
}

// ConnectMongo dials a MongoDB deployment and returns the tracker
// collection handle along with a close function.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Collection, func(context.Context) error, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	return client.Database(database).Collection("flowgraph_runs"), client.Disconnect, nil
}

// StartRun implements Tracker.
func (t *Mongo) StartRun(ctx context.Context, graphName string) (string, error) {
	id := uuid.NewString()
	doc := mongoRun{
		RunID:     id,
		GraphName: graphName,
		Status:    string(StatusRunning),
		StartedAt: time.Now(),
		Steps:     []mongoStep{},
	}
	if _, err := t.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordStep implements Tracker.
func (t *Mongo) RecordStep(ctx context.Context, runID string, step StepRecord) error {
	res, err := t.coll.UpdateOne(ctx,
		bson.M{"run_id": runID, "status": string(StatusRunning)},
		bson.M{"$push": bson.M{"steps": toMongoStep(step)}},
	)
	if err != nil {
		return fmt.Errorf("append step: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("run %q not found or sealed", runID)
	}
	return nil
}

// Seal implements Tracker.
func (t *Mongo) Seal(ctx context.Context, runID string, status Status, finalNode, errMsg string) error {
	now := time.Now()
	res, err := t.coll.UpdateOne(ctx,
		bson.M{"run_id": runID, "status": string(StatusRunning)},
		bson.M{"$set": bson.M{
			"status":     string(status),
			"final_node": finalNode,
			"error":      errMsg,
			"ended_at":   now,
		}},
	)
	if err != nil {
		return fmt.Errorf("seal run %q: %w", runID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("run %q not found or already sealed", runID)
	}
	return nil
}

// History implements Tracker.
func (t *Mongo) History(ctx context.Context, runID string) (*RunRecord, error) {
	var doc mongoRun
	if err := t.coll.FindOne(ctx, bson.M{"run_id": runID}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("load run %q: %w", runID, err)
	}
	return doc.toRecord(), nil
}

// ListByGraph returns all runs of a graph, oldest first.
func (t *Mongo) ListByGraph(ctx context.Context, graphName string) ([]*RunRecord, error) {
	cursor, err := t.coll.Find(ctx,
		bson.M{"graph_name": graphName},
		options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list runs for graph %q: %w", graphName, err)
	}

	var docs []mongoRun
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode runs: %w", err)
	}

	out := make([]*RunRecord, len(docs))
	for i := range docs {
		out[i] = docs[i].toRecord()
	}
	return out, nil
}

func toMongoStep(step StepRecord) mongoStep {
	return mongoStep{
		Node:       step.Node,
		AgentType:  step.AgentType,
		StartedAt:  step.StartedAt,
		EndedAt:    step.EndedAt,
		DurationMs: step.Duration.Milliseconds(),
		Success:    step.Success,
		Error:      step.Error,
		ErrorCode:  string(step.ErrorCode),
	}
}

func (d *mongoRun) toRecord() *RunRecord {
	rec := &RunRecord{
		RunID:     d.RunID,
		GraphName: d.GraphName,
		Status:    Status(d.Status),
		StartedAt: d.StartedAt,
		FinalNode: d.FinalNode,
		Error:     d.Error,
	}
	if d.EndedAt != nil {
		rec.EndedAt = *d.EndedAt
		rec.Duration = rec.EndedAt.Sub(rec.StartedAt)
	}
	for _, s := range d.Steps {
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
