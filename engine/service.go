package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/BaSui01/flowgraph/graph"
)

// Service holds built graphs by name and executes them on a shared
// engine. Each run is independent; runs of the same graph never share
// state.
type Service struct {
	engine *Engine
	logger *zap.Logger

	graphs map[string]*graph.Graph
	mu     sync.RWMutex
}

// NewService creates a service around the given engine.
func NewService(engine *Engine) *Service {
	return &Service{
		engine: engine,
		logger: zap.NewNop(),
		graphs: make(map[string]*graph.Graph),
	}
}

// WithLogger sets the service logger.
func (s *Service) WithLogger(logger *zap.Logger) *Service {
	if logger != nil {
		s.logger = logger.With(zap.String("component", "service"))
	}
	return s
}

// Register adds a built graph under its own name.
func (s *Service) Register(g *graph.Graph) error {
	if g == nil {
		return fmt.Errorf("graph cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.graphs[g.Name()]; exists {
		return fmt.Errorf("graph %q already registered", g.Name())
	}
	s.graphs[g.Name()] = g

	s.logger.Info("graph registered",
		zap.String("graph", g.Name()),
		zap.Int("nodes", g.Len()))
	return nil
}

// Graph returns a registered graph by name.
func (s *Service) Graph(name string) (*graph.Graph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[name]
	return g, ok
}

// GraphNames returns all registered graph names, sorted.
func (s *Service) GraphNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.graphs))
	for name := range s.graphs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Execute runs a registered graph by name.
func (s *Service) Execute(ctx context.Context, graphName string, initial map[string]any) (*RunResult, error) {
	g, ok := s.Graph(graphName)
	if !ok {
		return nil, fmt.Errorf("graph %q not registered", graphName)
	}
	return s.engine.Execute(ctx, g, initial)
}

// ExecuteBatch runs one graph once per input, at most concurrency runs in
// flight at a time (0 means one per CPU). Results are positionally
// aligned with inputs. The batch stops early only when a run cannot start
// at all; node failures are carried in the individual results.
func (s *Service) ExecuteBatch(ctx context.Context, graphName string, inputs []map[string]any, concurrency int) ([]*RunResult, error) {
	g, ok := s.Graph(graphName)
	if !ok {
		return nil, fmt.Errorf("graph %q not registered", graphName)
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	results := make([]*RunResult, len(inputs))
	sem := semaphore.NewWeighted(int64(concurrency))
	grp, ctx := errgroup.WithContext(ctx)

	var acquireErr error
	for i, input := range inputs {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Submission stopped early; the slots past i stay nil and the
			// caller must see an error, not a silently short batch.
			acquireErr = err
			break
		}
		grp.Go(func() error {
			defer sem.Release(1)
			res, err := s.engine.Execute(ctx, g, input)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return results, fmt.Errorf("batch run of graph %q: %w", graphName, err)
	}
	if acquireErr != nil {
		return results, fmt.Errorf("batch run of graph %q interrupted: %w", graphName, acquireErr)
	}
	return results, nil
}
