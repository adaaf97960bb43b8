package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
)

// Exporter names accepted by TracingConfig.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// ErrInvalidTracingConfig is returned by InitTracing for an unusable config.
var ErrInvalidTracingConfig = errors.New("invalid tracing config")

// TracingConfig selects where simulation spans go. Run spans come from the
// engine; RPC spans from the server's stats handler and interceptors.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // none | stdout | otlp
	Endpoint    string // host:port of the OTLP gRPC collector
	SampleRatio float64

	// Output receives stdout-exporter spans; defaults to os.Stdout.
	Output io.Writer
}

// TracingConfigFromEnv reads FLIGHTSIM_TRACING_ENABLED,
// FLIGHTSIM_TRACING_EXPORTER, FLIGHTSIM_TRACING_SERVICE_NAME (else
// OTEL_SERVICE_NAME), FLIGHTSIM_TRACING_SAMPLE_RATIO and
// FLIGHTSIM_OTLP_ENDPOINT (else OTEL_EXPORTER_OTLP_ENDPOINT).
func TracingConfigFromEnv() TracingConfig {
	cfg := TracingConfig{
		Enabled:     envBool("FLIGHTSIM_TRACING_ENABLED"),
		Exporter:    strings.ToLower(firstEnv("FLIGHTSIM_TRACING_EXPORTER")),
		ServiceName: firstEnv("FLIGHTSIM_TRACING_SERVICE_NAME", "OTEL_SERVICE_NAME"),
		Endpoint:    firstEnv("FLIGHTSIM_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"),
		SampleRatio: 1,
	}
	if raw := os.Getenv("FLIGHTSIM_TRACING_SAMPLE_RATIO"); raw != "" {
		if r, err := strconv.ParseFloat(raw, 64); err == nil && r >= 0 && r <= 1 {
			cfg.SampleRatio = r
		}
	}
	return cfg.withDefaults()
}

func (c TracingConfig) withDefaults() TracingConfig {
	if c.Exporter == "" {
		c.Exporter = ExporterStdout
	}
	if c.ServiceName == "" {
		c.ServiceName = "flightsim"
	}
	if c.Exporter == ExporterOTLP && c.Endpoint == "" {
		c.Endpoint = "localhost:4317"
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	return c
}

// Validate reports the first unusable setting of an enabled config.
func (c TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch strings.ToLower(c.Exporter) {
	case "", ExporterNone, ExporterStdout, ExporterOTLP, "otlpgrpc":
	default:
		return fmt.Errorf("%w: unsupported exporter %q", ErrInvalidTracingConfig, c.Exporter)
	}
	if !(c.SampleRatio >= 0 && c.SampleRatio <= 1) {
		return fmt.Errorf("%w: sample ratio %v outside [0, 1]", ErrInvalidTracingConfig, c.SampleRatio)
	}
	return nil
}

// InitTracing installs the global tracer provider and propagators described
// by cfg and returns the function that flushes pending spans. A disabled
// config (or the none exporter) installs a noop provider.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !cfg.Enabled || cfg.Exporter == ExporterNone {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug(ctx, "tracing disabled")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", "rocketsim"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.Float64("sample_ratio", cfg.SampleRatio),
	)
	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case ExporterOTLP, "otlpgrpc":
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	default:
		return stdouttrace.New(
			stdouttrace.WithWriter(cfg.Output),
			stdouttrace.WithoutTimestamps(),
		)
	}
}

// ShutdownWithTimeout flushes spans through shutdown within five seconds.
// Failures are logged, not returned.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}
