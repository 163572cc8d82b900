package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/channels/pkg/channels"
	"github.com/openfroyo/channels/pkg/manager"
)

func newEnableCommand() *cobra.Command {
	return newChangeCommand(channels.ActionEnable,
		"Enable a channel",
		`Enable a channel together with every change its dependencies, conflicts
and provided names require. The plan is checked against policy before any
sources entry is touched.`,
		`  # Enable a channel
  froyo-channels enable semplice-jessie

  # Show what would change
  froyo-channels enable --dry-run semplice-jessie`)
}

func newDisableCommand() *cobra.Command {
	return newChangeCommand(channels.ActionDisable,
		"Disable a channel",
		`Disable a channel together with every channel that depends on it.
Essential channels are protected by policy.`,
		`  # Disable a channel
  froyo-channels disable semplice-current

  # Show what would change
  froyo-channels disable --dry-run debian-sid`)
}

func newChangeCommand(action channels.Action, short, long, example string) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:     string(action) + " <channel>",
		Short:   short,
		Long:    long,
		Example: example,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if dryRun {
				return runPlan(cmd, args[0], action)
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			log.Debug().Str("channel", args[0]).Str("action", string(action)).Msg("Changing channel")

			var res *manager.Result
			if action == channels.ActionEnable {
				res, err = a.svc.Enable(cmd.Context(), args[0])
			} else {
				res, err = a.svc.Disable(cmd.Context(), args[0])
			}
			if res != nil && (err == nil || len(res.Plan) > 0) {
				if perr := printResult(cmd, res); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the plan without applying it")

	return cmd
}
