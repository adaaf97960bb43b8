// Package rpc exposes the flight engine as the rocketsim.v1 gRPC service.
//
// Messages are plain Go structs carried with a JSON codec; the service
// descriptor is declared by hand in service.go.
package rpc

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/rocket-flight-simulator/core"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/observability"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/sample"
	"github.com/signalsfoundry/rocket-flight-simulator/kb"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

var samples = map[string]func() *model.Rocket{
	"single":    sample.SingleStage,
	"two-stage": sample.TwoStage,
}

// Server implements SimulationServer backed by an engine and a run store.
type Server struct {
	engine *core.Engine
	store  *kb.Store
	log    logging.Logger
}

var _ SimulationServer = (*Server)(nil)

// NewServer wires the service to an engine and a store.
func NewServer(engine *core.Engine, store *kb.Store, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{engine: engine, store: store, log: log}
}

func (s *Server) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

// Simulate runs one flight and stores the result. Numeric failures are
// reported in the run rather than as an RPC error.
func (s *Server) Simulate(ctx context.Context, in *SimulateRequest) (*Run, error) {
	if in == nil {
		return nil, ToStatusError(fmt.Errorf("%w: request is required", ErrInvalidRequest))
	}
	rocket, opts, err := s.parse(ctx, in)
	if err != nil {
		return nil, ToStatusError(err)
	}

	res, err := s.engine.Simulate(ctx, rocket, opts)
	if res == nil {
		return nil, ToStatusError(err)
	}
	if _, perr := s.store.Put(res); perr != nil {
		return nil, ToStatusError(perr)
	}
	s.logger(ctx).Info(ctx, "run stored",
		logging.String("rocket", res.Rocket),
		logging.String("outcome", string(res.Outcome)),
	)
	if res.Outcome == core.OutcomeIncomplete {
		return nil, ToStatusError(err)
	}
	return RunFromResult(res, in.IncludeData), nil
}

func (s *Server) parse(ctx context.Context, in *SimulateRequest) (*model.Rocket, model.Options, error) {
	_, span := startChildSpan(ctx, "rpc.parseRequest", attribute.String("sample", in.Sample))
	defer span.End()

	opts := model.DefaultOptions()
	if in.Options != nil {
		opts = in.Options.Options()
	}

	switch {
	case in.Rocket != nil && len(in.Rocket.Stages) > 0:
		r, err := in.Rocket.Rocket()
		if err != nil {
			span.RecordError(err)
			return nil, opts, err
		}
		return r, opts, nil
	case in.Sample != "":
		build, ok := samples[strings.ToLower(in.Sample)]
		if !ok {
			return nil, opts, fmt.Errorf("%w: unknown sample rocket %q", ErrInvalidRequest, in.Sample)
		}
		return build(), opts, nil
	default:
		return nil, opts, fmt.Errorf("%w: rocket or sample is required", ErrInvalidRequest)
	}
}

// GetRun returns a stored run.
func (s *Server) GetRun(ctx context.Context, in *GetRunRequest) (*Run, error) {
	if in == nil || in.ID == "" {
		return nil, ToStatusError(fmt.Errorf("%w: id is required", ErrInvalidRequest))
	}
	res, err := s.store.Get(in.ID)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return RunFromResult(res, in.IncludeData), nil
}

// ListRuns lists stored runs, oldest first.
func (s *Server) ListRuns(ctx context.Context, _ *ListRunsRequest) (*ListRunsResponse, error) {
	recs := s.store.List()
	out := &ListRunsResponse{Runs: make([]RunRecord, len(recs))}
	for i, r := range recs {
		out.Runs[i] = recordFromStore(r)
	}
	return out, nil
}

// NewGRPCServer builds a gRPC server with the stats handler and interceptor
// chain the service runs behind. A nil collector skips RPC metrics and a nil
// limiter disables throttling.
func NewGRPCServer(log logging.Logger, collector *observability.SimulationCollector, limiter *PeerLimiter, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			collector.UnaryServerInterceptor(),
			limiter.UnaryServerInterceptor(),
			RunIDUnaryServerInterceptor(log),
			TracingUnaryServerInterceptor(),
		),
	}
	return grpc.NewServer(append(base, opts...)...)
}
