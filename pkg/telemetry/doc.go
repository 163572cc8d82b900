// Package telemetry wires logging, tracing and metrics for channel operations.
//
// Logging uses zerolog. Tracing uses OpenTelemetry with an OTLP gRPC, stdout or
// no-op exporter. Metrics use a private Prometheus registry that long-running
// commands expose over HTTP and one-shot commands write to a textfile.
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx, span := tel.Tracer.StartOperationSpan(ctx, "enable", "debian-sid")
//	defer span.End()
//	tel.Metrics.RecordResolution("enable", telemetry.ResultSuccess, 2)
//
// A disabled Metrics or Tracer accepts every call and records nothing.
package telemetry
