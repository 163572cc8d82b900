package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/channels/pkg/channels"
	"github.com/openfroyo/channels/pkg/manager"
	"github.com/openfroyo/channels/pkg/stores"
)

var historyStatuses = []stores.OperationStatus{
	stores.OperationStatusRunning,
	stores.OperationStatusCompleted,
	stores.OperationStatusNoop,
	stores.OperationStatusPlanned,
	stores.OperationStatusDenied,
	stores.OperationStatusFailed,
}

func newHistoryCommand() *cobra.Command {
	var (
		channel string
		status  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history [operation-id]",
		Short: "Show recorded channel operations",
		Long: `Show recorded channel operations, newest first. With an operation ID,
show that operation with its applied steps and events.`,
		Example: `  # Last operations
  froyo-channels history

  # Failed operations on one channel
  froyo-channels history --channel semplice-current --status failed

  # One operation in detail
  froyo-channels history 0b6f3c1e-5d0a-4a57-9a4e-0d1f2b6c7a88`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			filter := manager.HistoryFilter{Channel: channel, Limit: limit}
			if status != "" {
				filter.Status, err = parseStatus(status)
				if err != nil {
					return err
				}
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			if len(args) == 1 {
				rec, err := a.svc.Operation(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printOperation(cmd, rec)
			}

			ops, err := a.svc.History(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, ops)
			}

			st := newStyler(cmd.OutOrStdout())
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tSTARTED\tACTION\tTARGET\tSTATUS")
			for _, op := range ops {
				action := op.Action
				if op.DryRun {
					action += " (plan)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					op.ID, op.StartedAt.Local().Format(time.DateTime), action, target(op), st.status(string(op.Status)))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "only show operations on this channel")
	cmd.Flags().StringVar(&status, "status", "", "only show operations with this status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of operations (0 for all)")

	return cmd
}

func parseStatus(s string) (stores.OperationStatus, error) {
	for _, status := range historyStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", channels.NewValidationError(fmt.Sprintf("unknown status %q", s))
}

func target(op *stores.Operation) string {
	if op.Component != "" {
		return op.Channel + "/" + op.Component
	}
	return op.Channel
}

func printOperation(cmd *cobra.Command, rec *manager.OperationRecord) error {
	if jsonOutput {
		return printJSON(cmd, rec)
	}

	w := cmd.OutOrStdout()
	st := newStyler(w)
	op := rec.Operation

	tw := newTable(w)
	fmt.Fprintf(tw, "Operation:\t%s\n", op.ID)
	fmt.Fprintf(tw, "Action:\t%s %s\n", op.Action, target(op))
	fmt.Fprintf(tw, "Status:\t%s\n", st.status(string(op.Status)))
	fmt.Fprintf(tw, "Dry run:\t%s\n", yesNo(op.DryRun))
	fmt.Fprintf(tw, "Started:\t%s\n", op.StartedAt.Local().Format(time.DateTime))
	if op.CompletedAt != nil {
		fmt.Fprintf(tw, "Duration:\t%s\n", op.CompletedAt.Sub(op.StartedAt).Round(time.Millisecond))
	}
	if op.Error != nil {
		fmt.Fprintf(tw, "Error:\t%s\n", *op.Error)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rec.Steps) > 0 {
		fmt.Fprintln(w)
		tw = newTable(w)
		fmt.Fprintln(tw, "#\tSTEP\tSTATUS")
		for _, s := range rec.Steps {
			fmt.Fprintf(tw, "%d\t%s %s\t%s\n", s.Position+1, s.Action, s.Channel, st.status(string(s.Status)))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(rec.Events) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Events:")
		for _, e := range rec.Events {
			fmt.Fprintf(w, "  %s [%s] %s\n", e.Timestamp.Local().Format(time.DateTime), e.Level, e.Message)
		}
	}
	return nil
}
