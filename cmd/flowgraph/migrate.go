package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/BaSui01/flowgraph/config"
	"github.com/BaSui01/flowgraph/internal/migration"
)

func runMigrate(args []string) {
	if len(args) < 1 {
		printMigrateUsage()
		os.Exit(1)
	}
	subcommand := args[0]

	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file")
	fs.Parse(args[1:])

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		fatal("load config: %v", err)
	}

	m, err := migration.NewFromConfig(cfg.Database)
	if err != nil {
		fatal("create migrator: %v", err)
	}
	defer m.Close()

	switch subcommand {
	case "up":
		if err := m.Up(); err != nil {
			fatal("%v", err)
		}
		fmt.Println("migrations applied")
	case "down":
		if err := m.Down(); err != nil {
			fatal("%v", err)
		}
		fmt.Println("last migration rolled back")
	case "drop":
		if err := m.Drop(); err != nil {
			fatal("%v", err)
		}
		fmt.Println("all migrations rolled back")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			fatal("%v", err)
		}
		fmt.Printf("schema version %d (dirty: %v)\n", version, dirty)
	case "help", "-h", "--help":
		printMigrateUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown migrate subcommand: %s\n", subcommand)
		printMigrateUsage()
		os.Exit(1)
	}
}

func printMigrateUsage() {
	fmt.Println(`Run-history schema migrations

Usage:
  flowgraph migrate <up|down|drop|version> [--config <path>]`)
}
