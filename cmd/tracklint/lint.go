package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/tracklint"
	"github.com/jward/tracklint/internal/config"
	"github.com/jward/tracklint/internal/diag"
)

func (c *cli) newLintCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "lint [paths...]",
		Short: "Lint files and directories",
		Long: `Lint JavaScript and TypeScript files (.js .jsx .mjs .cjs .ts .tsx .mts .cts).
Directories are searched recursively; inside a git repository ignored files
are skipped. With no paths, lints the current directory.

Findings are cached per file content, so unchanged files are not analyzed
again until the analysis settings change.

Exit codes:
  0  No problems found
  1  One or more problems were reported
  2  Bad invocation (invalid flags or config, unreadable files)

To suppress a finding, add a comment:
  // tracklint-disable-next-line untracked-read
  console.log(count()); // tracklint-disable-line`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLint(cmd, args, fix)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&fix, "fix", false, "apply suggested fixes to the files")
	f.StringSlice(config.KeyCustomHooks, nil, "additional hook names whose function arguments are tracked")
	f.StringSlice(config.KeyExclude, nil, "glob patterns of files to skip, relative to each linted directory")
	f.StringSlice(config.KeyChecks, nil, "report only these kinds (default: all, see 'tracklint rules')")
	f.Bool(config.KeyNoCache, false, "analyze every file even if unchanged")
	f.Bool(config.KeyParallel, true, "analyze files in parallel")
	f.String(config.KeyScript, "", "Risor script extending the configuration")
	f.Bool(config.KeyColor, false, "color text output")
	return cmd
}

func (c *cli) runLint(cmd *cobra.Command, args []string, fix bool) error {
	start := time.Now()
	engine, err := c.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	paths, err := expandArgs(engine, args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rep, err := engine.LintFiles(ctx, paths)
	if err != nil {
		return fmt.Errorf("linting: %w", err)
	}

	if fix {
		res, err := engine.Fix(rep.Diagnostics)
		if err != nil {
			return err
		}
		if res.Fixed > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Fixed %d problem(s) in %d file(s)\n", res.Fixed, len(res.Files))
			// Report what is left.
			if rep, err = engine.LintFiles(ctx, paths); err != nil {
				return fmt.Errorf("linting: %w", err)
			}
		}
	}

	c.logger.Info("lint complete",
		"files", rep.Files,
		"cached", rep.Cached,
		"findings", len(rep.Diagnostics),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	if err := c.outputDiagnostics(cmd, "lint", rep.Diagnostics); err != nil {
		return err
	}
	if len(rep.Diagnostics) > 0 {
		return errFindings
	}
	return nil
}

// expandArgs turns path arguments into the list of files to lint.
func expandArgs(engine *tracklint.Engine, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", arg)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		files, err := engine.ListFiles(arg)
		if err != nil {
			return nil, err
		}
		paths = append(paths, files...)
	}
	return paths, nil
}

// outputDiagnostics writes diags in the configured format.
func (c *cli) outputDiagnostics(cmd *cobra.Command, command string, diags []diag.Diagnostic) error {
	if c.cfg.Format == "json" {
		if diags == nil {
			diags = []diag.Diagnostic{}
		}
		n := len(diags)
		return outputJSON(cmd.OutOrStdout(), CLIResult{Command: command, Results: diags, TotalCount: &n})
	}
	if c.cfg.Color {
		diag.FormatTextColor(cmd.OutOrStdout(), diags)
	} else {
		diag.FormatText(cmd.OutOrStdout(), diags)
	}
	return nil
}
