package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jward/tracklint"
	"github.com/jward/tracklint/internal/config"
)

// Exit codes.
const (
	exitOK       = 0
	exitFindings = 1
	exitError    = 2
)

// errFindings is returned by commands that reported findings, so main
// exits 1 without printing anything else.
var errFindings = errors.New("findings reported")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI with args and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errFindings):
		return exitFindings
	default:
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return exitError
	}
}

// cli holds the state shared by all commands of one invocation.
type cli struct {
	cfgFile string
	verbose bool

	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
	// repoRoot anchors the config file lookup and relative --db paths.
	repoRoot string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	root := &cobra.Command{
		Use:   "tracklint",
		Short: "Reactivity-flow linter for signal-based UI code",
		Long: `tracklint finds reactivity mistakes in JavaScript and TypeScript code
written against a fine-grained reactive UI framework: signals read outside
tracked scopes, props and stores mutated in place, signals used as values
without being called, and async functions passed where tracking is
synchronous.

Settings come from .tracklint.yaml (or --config), TRACKLINT_* environment
variables and flags, in increasing order of precedence.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		// No Run: prints help by default.
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default: .tracklint.{yaml,json,toml} at the repo root)")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "log pipeline progress to stderr")
	pf.String(config.KeyDB, config.DefaultDB, "findings cache path, relative to the repo root")
	pf.String(config.KeyFormat, "text", "output format: text|json")

	root.AddCommand(c.newLintCmd())
	root.AddCommand(c.newFindingsCmd())
	root.AddCommand(c.newSummaryCmd())
	root.AddCommand(c.newFilesCmd())
	root.AddCommand(c.newRulesCmd())
	return root
}

// boundKeys are the config keys that may also be set by a flag.
var boundKeys = []string{
	config.KeyCustomHooks,
	config.KeyExclude,
	config.KeyChecks,
	config.KeyFormat,
	config.KeyDB,
	config.KeyNoCache,
	config.KeyParallel,
	config.KeyScript,
	config.KeyColor,
}

// setup builds the logger and loads the configuration, with flags of the
// running command taking precedence over the environment and the file.
func (c *cli) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	c.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	c.repoRoot = findRepoRoot(cwd)

	for _, key := range boundKeys {
		if f := cmd.Flags().Lookup(key); f != nil {
			if err := c.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding --%s: %w", key, err)
			}
		}
	}

	cfg, err := config.Load(c.v, c.cfgFile, c.repoRoot)
	if err != nil {
		return err
	}
	if err := cfg.ApplyScript(cmd.Context(), c.logger); err != nil {
		return err
	}
	if cfg.File != "" {
		c.logger.Debug("using config file", "path", cfg.File)
	}
	c.cfg = cfg
	return nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// dbPath returns the findings cache path from the configuration.
func (c *cli) dbPath() string {
	if filepath.IsAbs(c.cfg.DB) {
		return c.cfg.DB
	}
	return filepath.Join(c.repoRoot, c.cfg.DB)
}

// openEngine creates an Engine with the effective configuration.
func (c *cli) openEngine() (*tracklint.Engine, error) {
	e, err := tracklint.New(c.dbPath(),
		tracklint.WithConfig(c.cfg),
		tracklint.WithLogger(c.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return e, nil
}

// openExisting opens the findings cache for queries; it must exist.
func (c *cli) openExisting() (*tracklint.Engine, error) {
	path := c.dbPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'tracklint lint' first)", path)
	}
	return c.openEngine()
}
