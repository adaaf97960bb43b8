package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("FLIGHTSIM_TRACING_ENABLED", "TRUE")
	t.Setenv("FLIGHTSIM_TRACING_EXPORTER", "OTLP")
	t.Setenv("FLIGHTSIM_TRACING_SERVICE_NAME", "")
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("FLIGHTSIM_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("FLIGHTSIM_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != ExporterOTLP || cfg.ServiceName != "flightsim" {
		t.Fatalf("TracingConfigFromEnv() = %+v", cfg)
	}
	if cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" {
		t.Fatalf("ratio/endpoint = %v/%q, want 0.25/collector:4317", cfg.SampleRatio, cfg.Endpoint)
	}

	t.Setenv("FLIGHTSIM_TRACING_SAMPLE_RATIO", "7")
	if got := TracingConfigFromEnv().SampleRatio; got != 1 {
		t.Fatalf("out-of-range ratio = %v, want default 1", got)
	}
}

func TestTracingConfigFallsBackToOTelVariables(t *testing.T) {
	t.Setenv("FLIGHTSIM_TRACING_SERVICE_NAME", "")
	t.Setenv("OTEL_SERVICE_NAME", "mc-worker")
	t.Setenv("FLIGHTSIM_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("FLIGHTSIM_TRACING_EXPORTER", "")

	cfg := TracingConfigFromEnv()
	if cfg.ServiceName != "mc-worker" || cfg.Endpoint != "otel:4317" || cfg.Exporter != ExporterStdout {
		t.Fatalf("TracingConfigFromEnv() = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  TracingConfig
		ok   bool
	}{
		{"disabled ignores everything", TracingConfig{Exporter: "zipkin", SampleRatio: 9}, true},
		{"stdout", TracingConfig{Enabled: true, Exporter: ExporterStdout, SampleRatio: 1}, true},
		{"unknown exporter", TracingConfig{Enabled: true, Exporter: "zipkin", SampleRatio: 1}, false},
		{"ratio above one", TracingConfig{Enabled: true, Exporter: ExporterOTLP, SampleRatio: 1.5}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: Validate() = %v, want nil", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidTracingConfig) {
			t.Fatalf("%s: Validate() = %v, want ErrInvalidTracingConfig", tc.name, err)
		}
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingStdoutExportsRunSpans(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		Exporter:    ExporterStdout,
		SampleRatio: 1,
		Output:      &out,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	defer InitTracing(context.Background(), TracingConfig{}, nil)

	_, span := otel.Tracer("test").Start(context.Background(), "core.Simulate")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(out.String(), "core.Simulate") {
		t.Fatalf("exported spans missing core.Simulate: %q", out.String())
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin", SampleRatio: 1}, nil)
	if !errors.Is(err, ErrInvalidTracingConfig) {
		t.Fatalf("InitTracing(zipkin) error = %v, want ErrInvalidTracingConfig", err)
	}
}

func TestShutdownWithTimeoutSwallowsErrors(t *testing.T) {
	called := false
	ShutdownWithTimeout(context.Background(), func(ctx context.Context) error {
		called = true
		if _, ok := ctx.Deadline(); !ok {
			t.Fatalf("shutdown context has no deadline")
		}
		return errors.New("flush failed")
	}, nil)
	if !called {
		t.Fatalf("shutdown function not called")
	}
	ShutdownWithTimeout(context.Background(), nil, nil)
}
