package commands

import (
	"github.com/spf13/cobra"

	"github.com/openfroyo/channels/pkg/channels"
	"github.com/openfroyo/channels/pkg/manager"
)

func newComponentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "component",
		Short: "Enable or disable a channel component",
		Long: `Enable or disable a single component (repository) of a channel, such as
its proposed-updates repository. Only proposed components can be disabled
on their own; the rest follow the channel.`,
	}

	cmd.AddCommand(newComponentChangeCommand(channels.ActionEnable))
	cmd.AddCommand(newComponentChangeCommand(channels.ActionDisable))

	return cmd
}

func newComponentChangeCommand(action channels.Action) *cobra.Command {
	return &cobra.Command{
		Use:     string(action) + " <channel> <component>",
		Short:   capitalize(string(action)) + " a channel component",
		Example: "  froyo-channels component " + string(action) + " semplice-current proposed",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			var res *manager.Result
			if action == channels.ActionEnable {
				res, err = a.svc.EnableComponent(cmd.Context(), args[0], args[1])
			} else {
				res, err = a.svc.DisableComponent(cmd.Context(), args[0], args[1])
			}
			if err != nil {
				return err
			}
			return printResult(cmd, res)
		},
	}
}
