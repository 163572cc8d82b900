package telemetry_test

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/openfroyo/channels/pkg/telemetry"
)

// ExampleNewTelemetry shows a telemetry bundle with metrics enabled and tracing off.
func ExampleNewTelemetry() {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Output = "stderr"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	_, span := tel.Tracer.StartOperationSpan(context.Background(), "enable", "debian-sid")
	telemetry.RecordSuccess(span)
	span.End()

	tel.Metrics.RecordResolution("enable", telemetry.ResultSuccess, 2)
	fmt.Println(tel.Metrics.Enabled())
	// Output: true
}

// ExampleNewLoggerTo shows a JSON logger tagged with a component.
func ExampleNewLoggerTo() {
	var buf bytes.Buffer
	logger, err := telemetry.NewLoggerTo(&buf, telemetry.LoggingConfig{Level: "info", Format: "json"})
	if err != nil {
		panic(err)
	}

	log := logger.Component("resolver")
	log.Info().Str("channel", "debian-sid").Msg("Resolved")
	log.Debug().Msg("dropped")

	fmt.Println(strings.Contains(buf.String(), `"component":"resolver"`))
	fmt.Println(strings.Count(buf.String(), "\n"))
	// Output:
	// true
	// 1
}
