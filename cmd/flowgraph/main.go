// Command flowgraph loads tabular workflow definitions, validates them
// and runs them from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/flowgraph/agent"
	"github.com/BaSui01/flowgraph/config"
	"github.com/BaSui01/flowgraph/definition"
	"github.com/BaSui01/flowgraph/engine"
	"github.com/BaSui01/flowgraph/graph"
	"github.com/BaSui01/flowgraph/internal/metrics"
	"github.com/BaSui01/flowgraph/internal/telemetry"
	"github.com/BaSui01/flowgraph/session"
	"github.com/BaSui01/flowgraph/tracker"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runWorkflow(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		fmt.Printf("flowgraph %s (built %s)\n", Version, BuildTime)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`flowgraph - tabular workflow execution engine

Usage:
  flowgraph run      --workflow <file> --graph <name> [--input <json>] [options]
  flowgraph validate --workflow <file>
  flowgraph migrate  <up|down|drop|version> [options]
  flowgraph version

Run options:
  --config   <path>  Configuration file (YAML)
  --workflow <path>  Workflow definition document (.csv, .yaml)
  --graph    <name>  Graph to execute
  --input    <json>  Initial state as a JSON object
  --session  <id>    Session id; state persists across runs of the id
  --timeout  <dur>   Run timeout, e.g. 30s (default: none)`)
}

func runWorkflow(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file")
	workflowPath := fs.String("workflow", "", "workflow definition document")
	graphName := fs.String("graph", "", "graph to execute")
	inputJSON := fs.String("input", "{}", "initial state as JSON")
	sessionID := fs.String("session", "", "session id")
	timeout := fs.Duration("timeout", 0, "run timeout")
	fs.Parse(args)

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	logger, err := config.BuildLogger(cfg.Log)
	if err != nil {
		fatal("build logger: %v", err)
	}
	defer logger.Sync()

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("telemetry init failed", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	var initial map[string]any
	if err := json.Unmarshal([]byte(*inputJSON), &initial); err != nil {
		fatal("parse --input: %v", err)
	}

	svc, err := buildService(cfg, logger, providers)
	if err != nil {
		fatal("%v", err)
	}

	paths := append([]string{}, cfg.Workflows...)
	if *workflowPath != "" {
		paths = append(paths, *workflowPath)
	}
	if len(paths) == 0 {
		fatal("no workflow documents given; use --workflow or the config workflows list")
	}
	if err := registerWorkflows(svc, logger, paths); err != nil {
		fatal("%v", err)
	}
	if *graphName == "" {
		fatal("--graph is required; registered graphs: %v", svc.GraphNames())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	var result *engine.RunResult
	if *sessionID != "" {
		store, closeStore, err := buildSessionStore(cfg)
		if err != nil {
			fatal("%v", err)
		}
		defer closeStore()
		runner := session.NewRunner(svc, store).WithLogger(logger)
		result, err = runner.Run(ctx, *sessionID, *graphName, initial)
		if err != nil {
			fatal("run: %v", err)
		}
	} else {
		result, err = svc.Execute(ctx, *graphName, initial)
		if err != nil {
			fatal("run: %v", err)
		}
	}

	printResult(result)
	if result.Status() != tracker.StatusCompleted {
		os.Exit(1)
	}
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	workflowPath := fs.String("workflow", "", "workflow definition document")
	fs.Parse(args)

	if *workflowPath == "" {
		fatal("--workflow is required")
	}

	defs, err := definition.LoadFile(*workflowPath)
	if err != nil {
		fatal("parse %s: %v", *workflowPath, err)
	}

	failed := false
	for _, def := range defs {
		g, err := graph.NewBuilder(def).Build()
		if err != nil {
			failed = true
			fmt.Printf("graph %q: INVALID: %v\n", def.GraphName, err)
			continue
		}
		fmt.Printf("graph %q: ok (%d nodes, entry %q)\n", g.Name(), g.Len(), g.Entry())
		for _, w := range g.Warnings() {
			fmt.Printf("  warning %s: nodes %v\n", w.Code, w.Nodes)
		}
	}
	if failed {
		os.Exit(1)
	}
}

// buildService wires tracker, metrics, rate limiting and tracing into an
// engine service from configuration.
func buildService(cfg *config.Config, logger *zap.Logger, providers *telemetry.Providers) (*engine.Service, error) {
	tr, err := buildTracker(cfg, logger)
	if err != nil {
		return nil, err
	}

	eng := engine.NewEngine(agent.NewRegistry()).
		WithLogger(logger).
		WithTracker(tr).
		WithTracer(providers.Tracer("flowgraph"))

	if cfg.Engine.MetricsNamespace != "" {
		eng.WithMetrics(metrics.NewCollector(cfg.Engine.MetricsNamespace, logger))
	}
	if cfg.Engine.RateLimit > 0 {
		eng.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.Engine.RateLimit), cfg.Engine.RateBurst))
	}

	return engine.NewService(eng).WithLogger(logger), nil
}

func buildTracker(cfg *config.Config, logger *zap.Logger) (tracker.Tracker, error) {
	switch cfg.Tracker.Backend {
	case "", "memory":
		return tracker.NewMemory(), nil
	case "none":
		return tracker.Noop{}, nil
	case "database":
		db, err := tracker.OpenDatabase(cfg.Database.Driver, cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("open tracker database: %w", err)
		}
		return tracker.NewDB(db, logger)
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		coll, _, err := tracker.ConnectMongo(ctx, cfg.Tracker.MongoURI, cfg.Tracker.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("connect tracker mongo: %w", err)
		}
		return tracker.NewMongo(coll, logger), nil
	default:
		return nil, fmt.Errorf("unsupported tracker backend: %q", cfg.Tracker.Backend)
	}
}

func buildSessionStore(cfg *config.Config) (session.Store, func(), error) {
	if cfg.Redis.Addr == "" {
		return session.NewMemStore(), func() {}, nil
	}
	client := newRedisClient(cfg.Redis)
	store := session.NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.Redis.SessionTTL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect session redis: %w", err)
	}
	return store, func() { client.Close() }, nil
}

func registerWorkflows(svc *engine.Service, logger *zap.Logger, paths []string) error {
	for _, path := range paths {
		defs, err := definition.LoadFile(path)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for _, def := range defs {
			g, err := graph.NewBuilder(def).WithLogger(logger).Build()
			if err != nil {
				return fmt.Errorf("build graph %q from %s: %w", def.GraphName, path, err)
			}
			if err := svc.Register(g); err != nil {
				return err
			}
		}
	}
	return nil
}

func printResult(result *engine.RunResult) {
	rec := result.Record
	fmt.Printf("run %s: %s (graph %s, %d steps, %s)\n",
		rec.RunID, rec.Status, rec.GraphName, len(rec.Steps), rec.Duration.Round(time.Millisecond))
	for _, step := range rec.Steps {
		mark := "ok"
		if !step.Success {
			mark = "FAILED"
		}
		fmt.Printf("  %-30s %-20s %-6s %s\n",
			step.Node, step.AgentType, mark, step.Duration.Round(time.Millisecond))
		if step.Error != "" {
			fmt.Printf("    %s\n", step.Error)
		}
	}
	if rec.Error != "" {
		fmt.Printf("error: %s\n", rec.Error)
	}
	if out, err := json.MarshalIndent(result.State, "", "  "); err == nil {
		fmt.Printf("final state:\n%s\n", out)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
