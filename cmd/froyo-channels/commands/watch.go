package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the catalog and policies on change and serve metrics",
		Long: `Watch the catalog and policy directories and reload them when files
change. When metrics.listen_address is set, Prometheus metrics are served
over HTTP until the command is interrupted.`,
		Example: `  froyo-channels watch --config /etc/froyo-channels/config.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a, &err)

			ctx := cmd.Context()
			if err := a.svc.Watch(ctx); err != nil {
				return err
			}

			log.Info().
				Str("catalog", a.cfg.CatalogDir).
				Str("policies", a.cfg.PolicyDir).
				Msg("Watching for changes")

			if err := a.tel.ServeMetrics(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			return nil
		},
	}

	return cmd
}
