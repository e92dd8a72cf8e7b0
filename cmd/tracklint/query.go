package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jward/tracklint/internal/diag"
)

func (c *cli) newFindingsCmd() *cobra.Command {
	var kinds []string
	cmd := &cobra.Command{
		Use:   "findings [file]",
		Short: "Show cached findings",
		Long: `Show the findings recorded by the last lint run, without analyzing
anything. With a file, shows that file's findings; otherwise all findings,
optionally restricted to some kinds.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter []diag.Kind
			for _, name := range kinds {
				k, ok := diag.ParseKind(name)
				if !ok {
					return fmt.Errorf("unknown kind %q", name)
				}
				filter = append(filter, k)
			}

			engine, err := c.openExisting()
			if err != nil {
				return err
			}
			defer engine.Close()

			q := engine.Query()
			var diags []diag.Diagnostic
			if len(args) == 1 {
				diags, err = q.Findings(args[0])
				if err != nil {
					return err
				}
				diags = filterKinds(diags, filter)
			} else {
				diags, err = q.FindingsByKind(filter...)
				if err != nil {
					return err
				}
			}
			return c.outputDiagnostics(cmd, "findings", diags)
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "only findings of these kinds")
	return cmd
}

func filterKinds(diags []diag.Diagnostic, kinds []diag.Kind) []diag.Diagnostic {
	if len(kinds) == 0 {
		return diags
	}
	var out []diag.Diagnostic
	for _, d := range diags {
		for _, k := range kinds {
			if d.Kind == k {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func (c *cli) newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count cached findings per kind and per file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.openExisting()
			if err != nil {
				return err
			}
			defer engine.Close()

			s, err := engine.Query().Summary()
			if err != nil {
				return err
			}
			summary := CLISummary{
				Files:    s.Files,
				Findings: s.Findings,
				ByKind:   make([]CLIKindCount, 0, len(s.ByKind)),
				ByFile:   make([]CLIFileCount, 0, len(s.ByFile)),
			}
			for _, kc := range s.ByKind {
				summary.ByKind = append(summary.ByKind, CLIKindCount{Kind: kc.Kind, Count: kc.Count})
			}
			for _, fc := range s.ByFile {
				summary.ByFile = append(summary.ByFile, CLIFileCount{Path: fc.Path, Count: fc.Count})
			}
			return c.outputResult(cmd, CLIResult{Command: "summary", Results: summary})
		},
	}
}

func (c *cli) newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List the files in the findings cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := c.openExisting()
			if err != nil {
				return err
			}
			defer engine.Close()

			files, err := engine.Query().Files()
			if err != nil {
				return err
			}
			out := make([]CLIFile, 0, len(files))
			for _, f := range files {
				cf := CLIFile{ID: f.ID, Path: f.Path, Dialect: f.Dialect, Current: f.Hash != ""}
				if !f.LastLinted.IsZero() {
					cf.LastLinted = f.LastLinted.Format("2006-01-02 15:04:05")
				}
				out = append(out, cf)
			}
			n := len(out)
			return c.outputResult(cmd, CLIResult{Command: "files", Results: out, TotalCount: &n})
		},
	}
}

func (c *cli) newRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the kinds of findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := diag.Rules()
			out := make([]CLIRule, 0, len(rules))
			for _, r := range rules {
				out = append(out, CLIRule{Kind: string(r.Kind), Doc: r.Doc})
			}
			return c.outputResult(cmd, CLIResult{Command: "rules", Results: out})
		},
	}
}
