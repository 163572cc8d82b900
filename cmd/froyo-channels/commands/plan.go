package commands

import (
	"github.com/spf13/cobra"

	"github.com/openfroyo/channels/pkg/channels"
)

func newPlanCommand() *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "plan <channel>",
		Short: "Show the steps a channel change requires",
		Long: `Resolve enabling or disabling a channel into an ordered plan and check it
against policy without changing the apt sources.

The plan lists every other channel that must be enabled or disabled first.
The requested change is always the last step.`,
		Example: `  # Plan enabling a channel
  froyo-channels plan semplice-jessie

  # Plan disabling a channel as JSON
  froyo-channels plan --action disable semplice-current --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			act, err := channels.ParseAction(action)
			if err != nil {
				return err
			}
			return runPlan(cmd, args[0], act)
		},
	}

	cmd.Flags().StringVarP(&action, "action", "a", string(channels.ActionEnable), "action to plan (enable or disable)")

	return cmd
}

// runPlan resolves and authorizes a change without applying it.
func runPlan(cmd *cobra.Command, channel string, action channels.Action) (err error) {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a, &err)

	res, err := a.svc.Plan(cmd.Context(), channel, action)
	if res != nil && (err == nil || len(res.Plan) > 0) {
		if perr := printResult(cmd, res); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}
