package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/openfroyo/channels/pkg/manager"
)

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// styler colors words when the output is a terminal.
type styler struct {
	out *termenv.Output
}

func newStyler(w io.Writer) styler {
	return styler{out: termenv.NewOutput(w)}
}

func (s styler) color(text, color string) string {
	return s.out.String(text).Foreground(s.out.Color(color)).String()
}

// state renders an enabled flag.
func (s styler) state(enabled bool) string {
	if enabled {
		return s.color("enabled", "2")
	}
	return s.color("disabled", "8")
}

// status renders an operation or step status.
func (s styler) status(status string) string {
	switch status {
	case "completed", "applied":
		return s.color(status, "2")
	case "denied", "noop":
		return s.color(status, "3")
	case "failed":
		return s.color(status, "1")
	default:
		return status
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}

// printResult writes the outcome of a plan, enable, disable or component operation.
func printResult(cmd *cobra.Command, res *manager.Result) error {
	if jsonOutput {
		return printJSON(cmd, res)
	}

	w := cmd.OutOrStdout()
	target := res.Channel
	if res.Component != "" {
		target = res.Channel + "/" + res.Component
	}

	if res.Noop {
		fmt.Fprintf(w, "%s is already %sd\n", target, res.Action)
		return nil
	}

	if len(res.Plan) > 0 {
		fmt.Fprintf(w, "Plan to %s %s:\n", res.Action, target)
		for i, step := range res.Plan {
			fmt.Fprintf(w, "  %d. %s\n", i+1, step)
		}
	}

	switch {
	case res.DryRun:
		fmt.Fprintln(w, "Dry run: no changes made")
	case len(res.Plan) > 0:
		fmt.Fprintf(w, "Applied %d of %d steps\n", len(res.Applied), len(res.Plan))
	case len(res.Applied) > 0:
		fmt.Fprintf(w, "%sd %s\n", capitalize(string(res.Action)), target)
	}

	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}

	if res.OperationID != "" {
		fmt.Fprintf(w, "Operation: %s\n", res.OperationID)
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
