package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/channels/pkg/catalog"
	"github.com/openfroyo/channels/pkg/policy"
	"github.com/openfroyo/channels/pkg/registry"
	"github.com/openfroyo/channels/pkg/sources"
)

// validation is the summary printed by validate.
type validation struct {
	CatalogDir string   `json:"catalog_dir"`
	Channels   int      `json:"channels"`
	Providers  int      `json:"providers"`
	Essential  []string `json:"essential"`
	Policies   []string `json:"policies"`
	Entries    int      `json:"entries"`
	Enabled    []string `json:"enabled"`
}

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [catalog-dir]",
		Short: "Validate the channel catalog, policies and sources",
		Long: `Validate the configuration and everything it points to.

This command checks:
  - Channel and provider definitions (YAML or CUE)
  - Dependency, conflict and provider references between channels
  - Rego policies in the policy directory
  - The apt sources and the channels they enable`,
		Example: `  # Validate the configured catalog
  froyo-channels validate

  # Validate a catalog under development
  froyo-channels validate ./channels`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.CatalogDir = args[0]
			}

			tel, err := newTelemetry(cmd, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if serr := tel.Shutdown(context.Background()); serr != nil && err == nil {
					err = serr
				}
			}()
			logger := tel.Logger.Logger

			log.Debug().Str("catalog", cfg.CatalogDir).Msg("Validating catalog")

			cat, err := catalog.NewLoader(logger).Load(cfg.CatalogDir)
			if err != nil {
				return err
			}

			engine, err := policy.NewEngine(logger)
			if err != nil {
				return err
			}
			if err := engine.SetCatalog(cat); err != nil {
				return err
			}
			if cfg.PolicyDir != "" {
				if err := engine.LoadPolicies(cmd.Context(), []string{cfg.PolicyDir}); err != nil {
					return err
				}
			}

			list, err := sources.Load(cfg.AptRoot)
			if err != nil {
				return fmt.Errorf("failed to load sources: %w", err)
			}
			reg, err := registry.New(cat, list, cfg.ListsDir, logger)
			if err != nil {
				return err
			}

			summary := validation{
				CatalogDir: cfg.CatalogDir,
				Channels:   len(cat.Channels),
				Providers:  len(cat.Providers),
				Essential:  cat.Essential(),
				Entries:    len(list.Entries()),
				Enabled:    reg.Enabled(),
			}
			for _, p := range engine.ListPolicies() {
				summary.Policies = append(summary.Policies, p.Name)
			}

			if jsonOutput {
				return printJSON(cmd, summary)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Catalog %s is valid\n", summary.CatalogDir)
			tw := newTable(w)
			fmt.Fprintf(tw, "  Channels:\t%d\n", summary.Channels)
			fmt.Fprintf(tw, "  Providers:\t%d\n", summary.Providers)
			fmt.Fprintf(tw, "  Essential:\t%s\n", joinOrDash(summary.Essential))
			fmt.Fprintf(tw, "  Policies:\t%s\n", joinOrDash(summary.Policies))
			fmt.Fprintf(tw, "  Sources entries:\t%d\n", summary.Entries)
			fmt.Fprintf(tw, "  Enabled channels:\t%s\n", joinOrDash(summary.Enabled))
			return tw.Flush()
		},
	}

	return cmd
}
