package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/reqtab/internal/config"
	"github.com/hpungsan/reqtab/internal/db"
	"github.com/hpungsan/reqtab/internal/executor"
	"github.com/hpungsan/reqtab/internal/logging"
	"github.com/hpungsan/reqtab/internal/mcp"
	"github.com/hpungsan/reqtab/internal/tabs"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"tabs": true, "show": true, "open": true, "new": true, "close": true,
	"switch": true, "next": true, "prev": true, "dup": true, "pin": true, "move": true,
	"close-all": true, "close-others": true, "close-unpinned": true,
	"edit": true, "save": true, "revert": true, "run": true,
	"request": true, "collection": true, "session": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
                 _        _
   _ __ ___  __ _| |_ __ _| |__
  | '__/ _ \/ _' | __/ _' | '_ \
  | | |  __/ (_| | || (_| | |_) |
  |_|  \___|\__, |\__\__,_|_.__/
               |_|

  Request tabs for HTTP work

  Usage: reqtab <command> [options]
         reqtab --help

  MCP server mode requires piped input.`)
}

func main() {
	os.Exit(run())
}

func run() int {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return 0
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	cliMode := isCLIMode()
	if !cliMode && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'reqtab --help' for usage.\n")
		return 1
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		return 1
	}
	baseDir := filepath.Join(homeDir, config.DirName)

	cwd, _ := os.Getwd()
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		return 1
	}

	log := logging.FromSettings(cfg.LogLevel, cfg.LogFormat)
	component := "mcp"
	if cliMode {
		component = "cli"
	}
	ctx := logging.WithComponent(logging.WithContext(context.Background(), log), component)

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		return 1
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	sess := newSession(ctx, &log, database, cfg)
	defer func() {
		if err := sess.tabs.Close(ctx); err != nil {
			log.Error().Err(err).Msg("failed to save session on exit")
		}
	}()

	if cliMode {
		app := newCLIApp(sess)
		if err := app.RunContext(ctx, os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	warnUnknownDisabled(&log, cfg)
	if err := mcp.Run(database, cfg, sess.tabs, sess.exec, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// newSession restores the tab session and builds the request executor.
func newSession(ctx context.Context, log *zerolog.Logger, database *sql.DB, cfg *config.Config) *session {
	m := tabs.New(tabs.Options{
		Capacity: cfg.MaxTabs,
		Store:    db.NewKVStore(database),
		Debounce: time.Duration(cfg.SaveDebounceMs) * time.Millisecond,
		Logger:   log,
	})
	if n := m.RestoreSession(ctx); n > 0 {
		log.Debug().Int("tabs", n).Msg("session restored")
	}

	exec := executor.New(executor.Options{
		RateLimitRPS:   cfg.ExecRateLimitRPS,
		DefaultTimeout: time.Duration(cfg.DefaultTimeoutMs) * time.Millisecond,
		Logger:         log,
	})
	return &session{db: database, cfg: cfg, tabs: m, exec: exec}
}

// warnUnknownDisabled logs disabled tool and type names that match nothing.
func warnUnknownDisabled(log *zerolog.Logger, cfg *config.Config) {
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn().Strs("types", unknown).Strs("known", mcp.KnownTypes).Msg("unknown types in disabled_types")
	}
}
