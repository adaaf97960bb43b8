package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/rocket-flight-simulator/core"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/observability"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/replay"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/rpc"
	"github.com/signalsfoundry/rocket-flight-simulator/kb"
)

// Config holds the server settings.
type Config struct {
	ListenAddress string
	HTTPAddress   string
	StoreCapacity int

	// SimulateRate limits Simulate calls per client host per second; zero
	// disables the limit.
	SimulateRate  float64
	SimulateBurst int
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.ListenAddress, "grpc-addr", ":50051", "TCP address the gRPC server listens on")
	flag.StringVar(&cfg.HTTPAddress, "http-addr", ":9090", "HTTP address for /metrics and /replay/{id}; empty disables it")
	flag.IntVar(&cfg.StoreCapacity, "store-capacity", 1000, "runs kept before the oldest is evicted; 0 keeps all")
	flag.Float64Var(&cfg.SimulateRate, "simulate-rate", 0, "Simulate calls per second allowed per client host; 0 is unlimited")
	flag.IntVar(&cfg.SimulateBurst, "simulate-burst", 4, "burst size for -simulate-rate")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}
	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves until ctx is done.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSimulationCollector(nil)
	if err != nil {
		return err
	}
	engine := core.NewEngine(log)
	engine.Metrics = collector
	store := kb.NewStore(cfg.StoreCapacity)
	store.Subscribe(func(kb.Event) { collector.SetStoredRuns(store.Len()) })

	httpSrv := serveHTTP(cfg.HTTPAddress, collector, store, log)

	var limiter *rpc.PeerLimiter
	if cfg.SimulateRate > 0 {
		limiter = rpc.NewPeerLimiter(cfg.SimulateRate, cfg.SimulateBurst, "Simulate")
	}
	server := rpc.NewGRPCServer(log, collector, limiter)
	rpc.RegisterSimulationServer(server, rpc.NewServer(engine, store, log))

	log.Info(ctx, "starting simulation gRPC server", logging.String("addr", lis.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(lis) }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	}

	log.Info(context.Background(), "shutting down simulation server")
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if httpSrv != nil {
		_ = httpSrv.Shutdown(shutdownCtx)
	}
	return nil
}

func serveHTTP(addr string, collector *observability.SimulationCollector, store *kb.Store, log logging.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.Handle(replay.Path, replay.NewHandler(store, log))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "http server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving metrics and replays", logging.String("addr", addr))
	return srv
}
