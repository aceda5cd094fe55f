// Package main is the entry point for the Credstore admin CLI.
// This tool provides administrative commands for managing access keys,
// identities, roles and the secret vault.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/venlock/credstore/internal/config"
	"github.com/venlock/credstore/internal/domain"
	"github.com/venlock/credstore/internal/metrics"
	"github.com/venlock/credstore/internal/pkg/crypto"
	"github.com/venlock/credstore/internal/repository"
	"github.com/venlock/credstore/internal/repository/postgres"
	"github.com/venlock/credstore/internal/repository/sqlite"
	"github.com/venlock/credstore/internal/service"
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
		fmt.Printf("Credstore Admin CLI\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "key":
		runKey(os.Args[2:])

	case "identity":
		runIdentity(os.Args[2:])

	case "role":
		runRole(os.Args[2:])

	case "vault":
		runVault(os.Args[2:])

	case "masterkey":
		runMasterKey(os.Args[2:])

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// app holds the wired dependencies for one CLI invocation.
type app struct {
	cfg        *config.Config
	logger     zerolog.Logger
	repos      *repository.Repositories
	keys       *service.AccessKeyManager
	identities *service.IdentityService
	close      func()
}

// newApp loads configuration, connects to the configured store and wires the
// services. The config file path comes from CREDSTORE_CONFIG when set.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.MustLoad(os.Getenv("CREDSTORE_CONFIG"))
	logger := newLogger(cfg.Logging)

	var repos *repository.Repositories
	var closeDB func()

	if cfg.Database.IsEmbedded() {
		dbCfg := sqlite.DefaultConfig(cfg.Database.Path)
		dbCfg.JournalMode = cfg.Database.JournalMode
		dbCfg.BusyTimeout = cfg.Database.BusyTimeout
		dbCfg.CacheSize = cfg.Database.CacheSize
		dbCfg.SynchronousMode = cfg.Database.SynchronousMode

		db, err := sqlite.NewDB(ctx, dbCfg, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		repos = sqlite.NewRepositories(db)
		closeDB = func() { db.Close() }
	} else {
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		repos = postgres.NewRepositories(db)
		closeDB = func() { db.Close() }
	}

	m := metrics.New(prometheus.NewRegistry())

	return &app{
		cfg:        cfg,
		logger:     logger,
		repos:      repos,
		keys:       service.NewAccessKeyManager(repos.AccessKeys, repos.UsageLog, m, logger),
		identities: service.NewIdentityService(repos.Identities, logger),
		close:      closeDB,
	}, nil
}

// newLogger builds the root logger from configuration.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(level).With().Timestamp().Logger()
}

func runKey(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: credstore-admin key <create|list|revoke|usage> [arguments]")
		os.Exit(1)
	}

	ctx := context.Background()

	switch args[0] {
	case "create":
		fs := flag.NewFlagSet("key create", flag.ExitOnError)
		name := fs.String("name", "", "Key name (required)")
		createdBy := fs.String("created-by", "admin-cli", "Issuing operator")
		permissions := fs.String("permissions", "full", "Permission level: full, readonly, chat_only")
		expiresInDays := fs.Int("expires-in-days", expiresNever, "Days until expiry (omit for no expiry; zero or negative issues an already-expired key)")
		testMode := fs.Bool("test", false, "Issue a test-mode key")
		fs.Parse(args[1:])

		a := mustApp(ctx)
		defer a.close()

		input := service.CreateKeyInput{
			Name:          *name,
			CreatedBy:     *createdBy,
			Permissions:   domain.Permission(*permissions),
			ExpiresInDays: expiryFromFlag(*expiresInDays),
			TestMode:      *testMode,
		}

		out, err := a.keys.CreateKey(ctx, input)
		if err != nil {
			fatalf("failed to create key: %v", err)
		}

		fmt.Printf("ID:          %s\n", out.ID)
		fmt.Printf("Name:        %s\n", out.Name)
		fmt.Printf("Permissions: %s\n", out.Permissions)
		if out.ExpiresAt != nil {
			fmt.Printf("Expires:     %s\n", out.ExpiresAt.Format(time.RFC3339))
		}
		fmt.Printf("Key:         %s\n", out.Key)
		fmt.Println("\nStore this key now. It cannot be recovered later.")

	case "list":
		a := mustApp(ctx)
		defer a.close()

		keys, err := a.keys.ListKeys(ctx)
		if err != nil {
			fatalf("failed to list keys: %v", err)
		}

		fmt.Printf("%-36s  %-20s  %-15s  %-9s  %-6s\n", "ID", "NAME", "PREFIX", "PERMS", "ACTIVE")
		for _, k := range keys {
			fmt.Printf("%-36s  %-20s  %-15s  %-9s  %-6t\n",
				k.ID, k.Name, k.DisplayPrefix, k.Permissions, k.Active)
		}

	case "revoke":
		fs := flag.NewFlagSet("key revoke", flag.ExitOnError)
		id := fs.String("id", "", "Key ID (required)")
		fs.Parse(args[1:])
		if *id == "" {
			fatalf("key revoke requires -id")
		}

		a := mustApp(ctx)
		defer a.close()

		if err := a.keys.RevokeKey(ctx, *id); err != nil {
			fatalf("failed to revoke key: %v", err)
		}
		fmt.Printf("Key %s revoked\n", *id)

	case "usage":
		fs := flag.NewFlagSet("key usage", flag.ExitOnError)
		id := fs.String("id", "", "Key ID (required)")
		limit := fs.Int("limit", 50, "Maximum events to show")
		fs.Parse(args[1:])
		if *id == "" {
			fatalf("key usage requires -id")
		}

		a := mustApp(ctx)
		defer a.close()

		events, err := a.keys.GetKeyUsage(ctx, *id, *limit)
		if err != nil {
			fatalf("failed to get key usage: %v", err)
		}

		fmt.Printf("%-25s  %-7s  %-30s  %-6s  %s\n", "TIMESTAMP", "METHOD", "ENDPOINT", "STATUS", "CALLER")
		for _, e := range events {
			fmt.Printf("%-25s  %-7s  %-30s  %-6d  %s\n",
				e.Timestamp.Format(time.RFC3339), e.Method, e.Endpoint, e.Status, e.CallerAddr)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown key command: %s\n", args[0])
		os.Exit(1)
	}
}

func runIdentity(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: credstore-admin identity <register> [arguments]")
		os.Exit(1)
	}

	ctx := context.Background()

	switch args[0] {
	case "register":
		fs := flag.NewFlagSet("identity register", flag.ExitOnError)
		username := fs.String("username", "", "Username (required)")
		fs.Parse(args[1:])
		if *username == "" {
			fatalf("identity register requires -username")
		}

		a := mustApp(ctx)
		defer a.close()

		identity, err := a.identities.Register(ctx, *username)
		if err != nil {
			fatalf("failed to register identity: %v", err)
		}
		fmt.Printf("Registered %s with role %s\n", identity.Username, identity.Role)

	default:
		fmt.Fprintf(os.Stderr, "Unknown identity command: %s\n", args[0])
		os.Exit(1)
	}
}

func runRole(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: credstore-admin role <get|set> [arguments]")
		os.Exit(1)
	}

	ctx := context.Background()

	switch args[0] {
	case "get":
		fs := flag.NewFlagSet("role get", flag.ExitOnError)
		username := fs.String("username", "", "Username (required)")
		fs.Parse(args[1:])
		if *username == "" {
			fatalf("role get requires -username")
		}

		a := mustApp(ctx)
		defer a.close()

		role, err := a.identities.GetRole(ctx, *username)
		if err != nil {
			fatalf("failed to get role: %v", err)
		}
		fmt.Printf("%s: %s\n", *username, role)

	case "set":
		fs := flag.NewFlagSet("role set", flag.ExitOnError)
		actor := fs.String("actor", "", "Acting admin username (required)")
		username := fs.String("username", "", "Target username (required)")
		role := fs.String("role", "", "New role: user, admin, readonly (required)")
		fs.Parse(args[1:])
		if *actor == "" || *username == "" || *role == "" {
			fatalf("role set requires -actor, -username and -role")
		}

		a := mustApp(ctx)
		defer a.close()

		if err := a.identities.SetRole(ctx, *actor, *username, domain.Role(*role)); err != nil {
			fatalf("failed to set role: %v", err)
		}
		fmt.Printf("Role of %s set to %s\n", *username, *role)

	default:
		fmt.Fprintf(os.Stderr, "Unknown role command: %s\n", args[0])
		os.Exit(1)
	}
}

func runVault(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: credstore-admin vault <encrypt|decrypt> <value>")
		os.Exit(1)
	}

	cfg := config.MustLoad(os.Getenv("CREDSTORE_CONFIG"))
	logger := newLogger(cfg.Logging)

	vault, err := newVault(cfg, logger)
	if err != nil {
		fatalf("failed to initialize vault: %v", err)
	}

	switch args[0] {
	case "encrypt":
		out, err := vault.EncryptString(args[1])
		if err != nil {
			fatalf("encryption failed: %v", err)
		}
		fmt.Println(out)

	case "decrypt":
		out, err := vault.DecryptString(args[1])
		if err != nil {
			fatalf("decryption failed: %v", err)
		}
		fmt.Println(out)

	default:
		fmt.Fprintf(os.Stderr, "Unknown vault command: %s\n", args[0])
		os.Exit(1)
	}
}

// newVault resolves the master key and constructs the configured AEAD vault.
func newVault(cfg *config.Config, logger zerolog.Logger) (*crypto.SecretVault, error) {
	provider := crypto.NewMasterKeyProvider(cfg.MasterKey.Key, cfg.MasterKey.File, logger)
	masterKey, err := provider.Resolve()
	if err != nil {
		return nil, err
	}

	var enc *crypto.Encryptor
	switch cfg.MasterKey.Cipher {
	case "chacha20-poly1305":
		enc, err = crypto.NewChaCha20Poly1305Encryptor(masterKey)
	default:
		enc, err = crypto.NewAESGCMEncryptor(masterKey)
	}
	if err != nil {
		return nil, err
	}

	return crypto.NewSecretVault(enc), nil
}

func runMasterKey(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: credstore-admin masterkey <generate>")
		os.Exit(1)
	}

	switch args[0] {
	case "generate":
		key, err := crypto.GenerateMasterKey()
		if err != nil {
			fatalf("failed to generate master key: %v", err)
		}
		fmt.Println(key)

	default:
		fmt.Fprintf(os.Stderr, "Unknown masterkey command: %s\n", args[0])
		os.Exit(1)
	}
}

// expiresNever marks the -expires-in-days flag as unset. Zero is a legal
// value (it issues an already-expired key), so absence needs its own sentinel.
const expiresNever = math.MinInt

// expiryFromFlag converts the flag value to the optional expiry window.
func expiryFromFlag(days int) *int {
	if days == expiresNever {
		return nil
	}
	return &days
}

func mustApp(ctx context.Context) *app {
	a, err := newApp(ctx)
	if err != nil {
		fatalf("initialization failed: %v", err)
	}
	return a
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printUsage() {
	fmt.Println(`Credstore Admin CLI

Usage:
  credstore-admin <command> [arguments]

Commands:
  key         Manage access keys (create, list, revoke, usage)
  identity    Register operator identities
  role        Inspect and change identity roles (get, set)
  vault       Encrypt or decrypt a secret with the master key
  masterkey   Generate a new hex-encoded master key
  version     Print version information
  help        Show this help message

Environment Variables:
  CREDSTORE_CONFIG    Path to the YAML config file (optional)

Examples:
  credstore-admin key create -name ci-deploy -permissions readonly
  credstore-admin key revoke -id <uuid>
  credstore-admin key usage -id <uuid> -limit 20
  credstore-admin identity register -username alice
  credstore-admin role set -actor alice -username bob -role readonly
  credstore-admin vault encrypt "database password"
  credstore-admin masterkey generate

Use "credstore-admin <command> --help" for more information about a command.`)
}
