// Package main is the entry point for the Credstore schema migration tool.
// It applies versioned migrations to the configured SQLite or PostgreSQL
// database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/venlock/credstore/internal/config"
	"github.com/venlock/credstore/internal/repository/postgres"
	"github.com/venlock/credstore/internal/repository/sqlite"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Credstore Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		run(func(ctx context.Context, db migrator) error {
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			version, err := db.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Schema at version %d\n", version)
			return nil
		})

	case "status":
		run(func(ctx context.Context, db migrator) error {
			version, err := db.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Current schema version: %d\n", version)
			return nil
		})

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// migrator is the subset of the database handle the tool needs; both the
// SQLite and PostgreSQL handles satisfy it.
type migrator interface {
	Migrate(ctx context.Context) error
	Version(ctx context.Context) (int, error)
	Close() error
}

func run(fn func(ctx context.Context, db migrator) error) {
	ctx := context.Background()
	cfg := config.MustLoad(os.Getenv("CREDSTORE_CONFIG"))
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	var db migrator
	var err error

	if cfg.Database.IsEmbedded() {
		dbCfg := sqlite.DefaultConfig(cfg.Database.Path)
		dbCfg.JournalMode = cfg.Database.JournalMode
		dbCfg.BusyTimeout = cfg.Database.BusyTimeout
		dbCfg.CacheSize = cfg.Database.CacheSize
		dbCfg.SynchronousMode = cfg.Database.SynchronousMode
		db, err = sqlite.NewDB(ctx, dbCfg, logger)
	} else {
		db, err = postgres.NewDB(ctx, cfg.Database, logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := fn(ctx, db); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Credstore Migration Tool

Usage:
  credstore-migrate <command>

Commands:
  up          Apply all pending migrations
  status      Show the current schema version
  version     Print version information
  help        Show this help message

Environment Variables:
  CREDSTORE_CONFIG    Path to the YAML config file (optional)

Examples:
  credstore-migrate up
  credstore-migrate status`)
}
