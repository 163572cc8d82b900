package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	var enabledOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List channels",
		Long:  `List every channel in the catalog with its current state.`,
		Example: `  # List all channels
  froyo-channels list

  # List enabled channels as JSON
  froyo-channels list --enabled --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			list, err := a.svc.List(cmd.Context())
			if err != nil {
				return err
			}

			if enabledOnly {
				filtered := list[:0]
				for _, ch := range list {
					if ch.Enabled {
						filtered = append(filtered, ch)
					}
				}
				list = filtered
			}

			if jsonOutput {
				return printJSON(cmd, list)
			}

			st := newStyler(cmd.OutOrStdout())
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tTITLE\tPROVIDES\tSTATE")
			for _, ch := range list {
				name := ch.Name
				if ch.Essential {
					name += " *"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, ch.Title, joinOrDash(ch.Provides), st.state(ch.Enabled))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only list enabled channels")

	return cmd
}
