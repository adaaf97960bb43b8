// Package observability holds the Prometheus metrics and OpenTelemetry
// tracing setup of the simulator.
package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/rocket-flight-simulator/core"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

const namespace = "flightsim"

// SimulationCollector bundles Prometheus metrics for the flight engine and
// its RPC surface. It implements core.MetricsRecorder. A nil collector
// records nothing.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	Runs        *prometheus.CounterVec
	RunDuration prometheus.Histogram
	Steps       prometheus.Counter
	Bisection   prometheus.Histogram
	Events      *prometheus.CounterVec
	StoredRuns  prometheus.Gauge

	RPCRequests  *prometheus.CounterVec
	RPCDurations *prometheus.HistogramVec
}

var _ core.MetricsRecorder = (*SimulationCollector)(nil)

// NewSimulationCollector registers the metrics with reg, or with the default
// registry when reg is nil. Registering twice against one registry reuses
// the metrics registered first.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &SimulationCollector{gatherer: prometheus.DefaultGatherer}
	if g, ok := reg.(prometheus.Gatherer); ok {
		c.gatherer = g
	}

	var err error
	if c.Runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Finished simulation runs by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if c.RunDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock time spent integrating one run.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 11),
	})); err != nil {
		return nil, err
	}
	if c.Steps, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "integration_steps_total",
		Help:      "Runge-Kutta steps taken across all runs.",
	})); err != nil {
		return nil, err
	}
	if c.Bisection, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bisection_iterations",
		Help:      "Bisection iterations needed to locate one event crossing.",
		Buckets:   prometheus.LinearBuckets(0, 5, 11),
	})); err != nil {
		return nil, err
	}
	if c.Events, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Flight events recorded by type.",
	}, []string{"type"})); err != nil {
		return nil, err
	}
	if c.StoredRuns, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stored_runs",
		Help:      "Runs currently held in the result store.",
	})); err != nil {
		return nil, err
	}
	if c.RPCRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Handled RPCs by service, method and gRPC status code.",
	}, []string{"service", "method", "code"})); err != nil {
		return nil, err
	}
	if c.RPCDurations, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rpc_request_duration_seconds",
		Help:      "RPC latency by service and method.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 10),
	}, []string{"service", "method"})); err != nil {
		return nil, err
	}
	return c, nil
}

// ObserveRun records one finished run.
func (c *SimulationCollector) ObserveRun(outcome core.Outcome, d time.Duration, steps int) {
	if c == nil {
		return
	}
	c.Runs.WithLabelValues(string(outcome)).Inc()
	c.RunDuration.Observe(d.Seconds())
	c.Steps.Add(float64(steps))
}

// ObserveBisection records the iterations of one event search.
func (c *SimulationCollector) ObserveBisection(iterations int) {
	if c == nil {
		return
	}
	c.Bisection.Observe(float64(iterations))
}

// ObserveEvent counts one flight event.
func (c *SimulationCollector) ObserveEvent(t model.EventType) {
	if c == nil {
		return
	}
	c.Events.WithLabelValues(t.String()).Inc()
}

// SetStoredRuns updates the stored-runs gauge.
func (c *SimulationCollector) SetStoredRuns(n int) {
	if c == nil {
		return
	}
	c.StoredRuns.Set(float64(n))
}

// UnaryServerInterceptor counts every unary RPC by status code and times it.
func (c *SimulationCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if c == nil {
			return handler(ctx, req)
		}
		var fullMethod string
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)

		timer := prometheus.NewTimer(c.RPCDurations.WithLabelValues(service, method))
		resp, err := handler(ctx, req)
		timer.ObserveDuration()
		c.RPCRequests.WithLabelValues(service, method, status.Code(err).String()).Inc()
		return resp, err
	}
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *SimulationCollector) Handler() http.Handler {
	if c == nil || c.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// SplitMethod turns "/pkg.Service/Method" into ("Service", "Method").
// Missing parts come back as "unknown".
func SplitMethod(fullMethod string) (service, method string) {
	service, method = "unknown", "unknown"
	dir, name := path.Split(strings.Trim(fullMethod, "/"))
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" || name == "" {
		return service, method
	}
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[i+1:]
	}
	if i := strings.LastIndex(dir, "."); i >= 0 && i+1 < len(dir) {
		dir = dir[i+1:]
	}
	if dir != "" {
		service = dir
	}
	return service, name
}

// register adds col to reg. When an equal collector is already registered
// it is returned instead, provided it has the same type.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	err := reg.Register(col)
	if err == nil {
		return col, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
		err = fmt.Errorf("metric registered with a different type: %w", err)
	}
	var zero T
	return zero, err
}
