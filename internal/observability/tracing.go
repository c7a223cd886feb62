// Package observability exports Genkit traces over OTLP HTTP.
//
// Tracing is opt-in: it activates only when a collector endpoint is
// configured. The collector (Datadog Agent, otel-collector, Jaeger)
// handles authentication and forwarding, so no credentials live in this
// process.
package observability

import (
	"context"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/policyhub/askhr/internal/log"
)

// ServiceName is the service name attached to exported spans.
const ServiceName = "askhr"

// Config for OTLP trace export.
type Config struct {
	// Endpoint is the collector's OTLP HTTP host:port. Empty disables
	// tracing entirely.
	Endpoint string
	// Environment tags spans with the deployment environment.
	Environment string
}

// Setup registers an OTLP exporter with Genkit's TracerProvider.
// Returns a shutdown function that flushes pending spans; the function
// is always non-nil and safe to call.
//
// Exporter construction failures disable tracing with a warning rather
// than failing startup; answering questions does not depend on traces
// leaving the process.
func Setup(ctx context.Context, cfg Config, logger log.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop
	}

	// Genkit's TracerProvider reads service identity from OTEL env vars.
	// Called once during startup, before any goroutines are spawned.
	_ = os.Setenv("OTEL_SERVICE_NAME", ServiceName)
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(), // collector runs on localhost or inside the pod
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return noop
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled",
		"endpoint", cfg.Endpoint,
		"service", ServiceName,
		"environment", cfg.Environment)

	return tracing.TracerProvider().Shutdown
}
