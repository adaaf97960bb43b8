package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/rpc"
)

func TestServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	cfg := Config{ListenAddress: lis.Addr().String(), StoreCapacity: 10}
	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	conn, err := rpc.Dial(cfg.ListenAddress)
	if err != nil {
		t.Fatalf("rpc.Dial: %v", err)
	}
	defer conn.Close()

	client := rpc.NewClient(conn)
	res, err := client.Simulate(ctx, &rpc.SimulateRequest{Sample: "single"})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	list, err := client.ListRuns(ctx, &rpc.ListRunsRequest{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(list.Runs) != 1 || list.Runs[0].ID != res.ID {
		t.Fatalf("ListRuns = %+v, want the simulated run %s", list.Runs, res.ID)
	}

	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}
