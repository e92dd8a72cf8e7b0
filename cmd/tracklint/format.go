package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
)

// ruleDocWidth wraps rule descriptions in text output.
const ruleDocWidth = 60

// outputJSON writes result as indented JSON.
func outputJSON(w io.Writer, result CLIResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResult writes result in the configured format.
func (c *cli) outputResult(cmd *cobra.Command, result CLIResult) error {
	if c.cfg.Format == "json" {
		return outputJSON(cmd.OutOrStdout(), result)
	}
	return outputResultText(cmd.OutOrStdout(), result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIRule:
		formatRulesText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// formatRulesText lists kinds with their wrapped descriptions.
func formatRulesText(w io.Writer, rules []CLIRule) {
	for _, r := range rules {
		fmt.Fprintln(w, r.Kind)
		fmt.Fprintln(w, indent.String(wordwrap.String(r.Doc, ruleDocWidth), 4))
	}
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tDIALECT\tLAST LINTED")
	for _, f := range files {
		linted := f.LastLinted
		if !f.Current {
			linted = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", f.ID, f.Path, f.Dialect, linted)
	}
	tw.Flush()
}

// formatSummaryText formats CLISummary as readable text.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintln(w, "Findings Summary")
	fmt.Fprintln(w, "================")
	fmt.Fprintf(w, "Files: %d\n", s.Files)
	fmt.Fprintf(w, "Findings: %d\n", s.Findings)

	if len(s.ByKind) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tCOUNT")
		for _, kc := range s.ByKind {
			fmt.Fprintf(tw, "%s\t%d\n", kc.Kind, kc.Count)
		}
		tw.Flush()
	}

	if len(s.ByFile) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tCOUNT")
		for _, fc := range s.ByFile {
			fmt.Fprintf(tw, "%s\t%d\n", fc.Path, fc.Count)
		}
		tw.Flush()
	}
}
