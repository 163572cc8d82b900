package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <channel>",
		Short: "Show a channel",
		Long: `Show the definition and state of a channel: its components and the
sources entries backing them, and the relations the resolver derives from
its dependencies, conflicts and provided names.`,
		Example: `  froyo-channels show semplice-current`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			info, err := a.svc.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd, info)
			}

			w := cmd.OutOrStdout()
			st := newStyler(w)

			tw := newTable(w)
			fmt.Fprintf(tw, "Name:\t%s\n", info.Name)
			fmt.Fprintf(tw, "Title:\t%s\n", info.Title)
			if info.Description != "" {
				fmt.Fprintf(tw, "Description:\t%s\n", info.Description)
			}
			fmt.Fprintf(tw, "State:\t%s\n", st.state(info.Enabled))
			fmt.Fprintf(tw, "Essential:\t%s\n", yesNo(info.Essential))
			fmt.Fprintf(tw, "Enableable:\t%s\n", yesNo(info.Enableable))
			fmt.Fprintf(tw, "Depends:\t%s\n", joinOrDash(info.Depends))
			fmt.Fprintf(tw, "Conflicts:\t%s\n", joinOrDash(info.Conflicts))
			fmt.Fprintf(tw, "Provides:\t%s\n", joinOrDash(info.Provides))
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(w)
			tw = newTable(w)
			fmt.Fprintln(tw, "COMPONENT\tCODENAME\tPROPOSED\tSTATE")
			for _, c := range info.Components {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Codename, yesNo(c.Proposed), st.state(c.Enabled))
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			for _, c := range info.Components {
				for _, e := range c.Entries {
					fmt.Fprintf(w, "  %s: %s\n", c.Name, e)
				}
			}

			if len(info.Relations) > 0 {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "Relations:")
				for _, rel := range info.Relations {
					fmt.Fprintf(w, "  %s\n", rel)
				}
			}
			return nil
		},
	}

	return cmd
}
