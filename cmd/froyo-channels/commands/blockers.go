package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/channels/pkg/channels"
)

func newBlockersCommand() *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "blockers <channel>",
		Short: "Show what prevents a channel change",
		Long: `Show the relations that currently prevent enabling or disabling a
channel. A channel with no blockers can be changed without touching any
other channel.`,
		Example: `  # Why can't semplice-jessie be enabled?
  froyo-channels blockers semplice-jessie

  # What depends on debian-sid?
  froyo-channels blockers --action disable debian-sid`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			act, err := channels.ParseAction(action)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			blockers, err := a.svc.Blockers(cmd.Context(), args[0], act)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, blockers)
			}

			w := cmd.OutOrStdout()
			if len(blockers) == 0 {
				fmt.Fprintf(w, "Nothing blocks %s %s\n", act, args[0])
				return nil
			}

			tw := newTable(w)
			fmt.Fprintln(tw, "KIND\tREQUIRER\tTARGET")
			for _, b := range blockers {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Kind, b.Requirer, b.Target)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&action, "action", "a", string(channels.ActionEnable), "action to check (enable or disable)")

	return cmd
}
