package commands

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/channels/pkg/config"
	"github.com/openfroyo/channels/pkg/manager"
	"github.com/openfroyo/channels/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

// app is the configuration, telemetry and service of one command run.
type app struct {
	cfg *config.Config
	tel *telemetry.Telemetry
	svc *manager.Service
}

// loadConfig reads the configuration selected by the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newTelemetry builds telemetry for cfg. Logs written to the standard error
// stream go to the command's error writer.
func newTelemetry(cmd *cobra.Command, cfg *config.Config) (*telemetry.Telemetry, error) {
	switch cfg.Telemetry.Logging.Output {
	case "", "stderr":
		logger, err := telemetry.NewLoggerTo(cmd.ErrOrStderr(), cfg.Telemetry.Logging)
		if err != nil {
			return nil, err
		}
		return telemetry.NewTelemetryWithLogger(&cfg.Telemetry, logger)
	default:
		return telemetry.NewTelemetry(&cfg.Telemetry)
	}
}

// openApp loads the configuration and opens the channel service.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	tel, err := newTelemetry(cmd, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := manager.Open(cmd.Context(), cfg, tel)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}

	return &app{cfg: cfg, tel: tel, svc: svc}, nil
}

// Close closes the service and flushes telemetry.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(a.svc.Close(), a.tel.Shutdown(ctx))
}

// closeApp closes a and keeps the first error.
func closeApp(a *app, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}
