package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/rocket-flight-simulator/aero"
	"github.com/signalsfoundry/rocket-flight-simulator/core"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/config"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/observability"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/sample"
	"github.com/signalsfoundry/rocket-flight-simulator/kb"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
	"github.com/signalsfoundry/rocket-flight-simulator/motor"
)

type harness struct {
	client    *Client
	store     *kb.Store
	collector *observability.SimulationCollector
}

func startServer(t *testing.T) harness {
	t.Helper()
	return startServerWithLimiter(t, nil)
}

func startServerWithLimiter(t *testing.T, limiter *PeerLimiter) harness {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	collector, err := observability.NewSimulationCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSimulationCollector: %v", err)
	}
	engine := core.NewEngine(logging.Noop())
	engine.Metrics = collector
	store := kb.NewStore(0)

	srv := NewGRPCServer(logging.Noop(), collector, limiter)
	RegisterSimulationServer(srv, NewServer(engine, store, logging.Noop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := Dial(lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return harness{client: NewClient(conn), store: store, collector: collector}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSimulateSampleAndFetch(t *testing.T) {
	h := startServer(t)
	ctx := testContext(t)

	run, err := h.client.Simulate(WithRunID(ctx, "flight-1"), &SimulateRequest{Sample: "single"})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if run.ID != "flight-1" || run.Outcome != string(core.OutcomeLanded) {
		t.Fatalf("run = %+v, want landed run flight-1", run)
	}
	if run.Summary.MaxAltitude <= 0 || len(run.Branches) != 0 {
		t.Fatalf("summary/branches = %+v / %d", run.Summary, len(run.Branches))
	}

	got, err := h.client.GetRun(ctx, &GetRunRequest{ID: "flight-1", IncludeData: true})
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if len(got.Branches) != 1 {
		t.Fatalf("branches = %d, want 1", len(got.Branches))
	}
	b := got.Branches[0]
	alt := b.Columns[model.TypeAltitude.String()]
	if len(alt) == 0 || len(alt) != len(b.Columns[model.TypeTime.String()]) {
		t.Fatalf("altitude column has %d samples", len(alt))
	}
	if len(b.Events) == 0 || b.Events[0].Type != "LAUNCH" {
		t.Fatalf("events = %+v, want LAUNCH first", b.Events)
	}

	list, err := h.client.ListRuns(ctx, &ListRunsRequest{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(list.Runs) != 1 || list.Runs[0].ID != "flight-1" {
		t.Fatalf("ListRuns = %+v", list.Runs)
	}

	if got := testutil.ToFloat64(h.collector.RPCRequests.WithLabelValues("SimulationService", "Simulate", "OK")); got != 1 {
		t.Fatalf("Simulate request count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(h.collector.Runs.WithLabelValues("landed")); got != 1 {
		t.Fatalf("landed runs = %v, want 1", got)
	}
}

func TestSimulateRocketDocument(t *testing.T) {
	h := startServer(t)
	ctx := testContext(t)

	doc := config.FromRocket(sample.TwoStage())
	opts := config.FromOptions(model.DefaultOptions())
	run, err := h.client.Simulate(ctx, &SimulateRequest{Rocket: &doc, Options: &opts})
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(run.BranchNames) != 2 || run.BranchNames[1] != "Booster" {
		t.Fatalf("branch names = %v, want sustainer and booster", run.BranchNames)
	}
	if h.store.Len() != 1 {
		t.Fatalf("store len = %d, want 1", h.store.Len())
	}
}

func TestErrorCodes(t *testing.T) {
	h := startServer(t)
	ctx := testContext(t)

	bad := config.FromRocket(sample.SingleStage())
	bad.Stages[0].Components[0].Type = "wing"

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{"empty request", func() error { _, err := h.client.Simulate(ctx, &SimulateRequest{}); return err }, codes.InvalidArgument},
		{"unknown sample", func() error { _, err := h.client.Simulate(ctx, &SimulateRequest{Sample: "saturn-v"}); return err }, codes.InvalidArgument},
		{"invalid rocket", func() error { _, err := h.client.Simulate(ctx, &SimulateRequest{Rocket: &bad}); return err }, codes.InvalidArgument},
		{"missing run", func() error { _, err := h.client.GetRun(ctx, &GetRunRequest{ID: "nope"}); return err }, codes.NotFound},
		{"missing id", func() error { _, err := h.client.GetRun(ctx, &GetRunRequest{}); return err }, codes.InvalidArgument},
		{"blank run id", func() error {
			_, err := h.client.Simulate(WithRunID(ctx, "two words"), &SimulateRequest{Sample: "single"})
			return err
		}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := status.Code(tt.call()); code != tt.code {
				t.Fatalf("code = %v, want %v", code, tt.code)
			}
		})
	}

	if _, err := h.client.Simulate(WithRunID(ctx, "dup"), &SimulateRequest{Sample: "single"}); err != nil {
		t.Fatalf("first Simulate: %v", err)
	}
	_, err := h.client.Simulate(WithRunID(ctx, "dup"), &SimulateRequest{Sample: "single"})
	if code := status.Code(err); code != codes.AlreadyExists {
		t.Fatalf("duplicate run ID code = %v, want AlreadyExists", code)
	}
}

func TestToStatusError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		code    codes.Code
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "status passthrough", err: status.Error(codes.PermissionDenied, "denied"), code: codes.PermissionDenied},
		{name: "invalid request", err: fmt.Errorf("%w: bad", ErrInvalidRequest), code: codes.InvalidArgument},
		{name: "invalid configuration", err: model.ErrInvalidConfiguration, code: codes.InvalidArgument},
		{name: "invalid motor", err: fmt.Errorf("x: %w", motor.ErrInvalidMotorData), code: codes.InvalidArgument},
		{name: "invalid geometry", err: aero.ErrInvalidGeometry, code: codes.InvalidArgument},
		{name: "not found", err: kb.ErrNotFound, code: codes.NotFound},
		{name: "duplicate", err: kb.ErrDuplicate, code: codes.AlreadyExists},
		{name: "canceled", err: fmt.Errorf("%w: %w", core.ErrCanceled, context.Canceled), code: codes.Canceled},
		{name: "fallback", err: errors.New("boom"), code: codes.Internal},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ToStatusError(tc.err)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("ToStatusError(nil) = %v, want nil", got)
				}
				return
			}
			if code := status.Code(got); code != tc.code {
				t.Fatalf("ToStatusError(%v) code = %v, want %v", tc.err, code, tc.code)
			}
		})
	}
}

func TestFloatEncodesNonFiniteAsNull(t *testing.T) {
	data, err := json.Marshal([]Float{1.5, Float(math.NaN()), Float(math.Inf(1))})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "[1.5,null,null]" {
		t.Fatalf("Marshal = %s, want [1.5,null,null]", data)
	}
	var back []Float
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back[0] != 1.5 || !math.IsNaN(float64(back[1])) {
		t.Fatalf("Unmarshal = %v", back)
	}
}

func TestSimulateIsRateLimitedPerPeer(t *testing.T) {
	h := startServerWithLimiter(t, NewPeerLimiter(0.001, 1, "Simulate"))
	ctx := testContext(t)

	if _, err := h.client.Simulate(ctx, &SimulateRequest{Sample: "single"}); err != nil {
		t.Fatalf("first Simulate: %v", err)
	}
	_, err := h.client.Simulate(ctx, &SimulateRequest{Sample: "single"})
	if code := status.Code(err); code != codes.ResourceExhausted {
		t.Fatalf("second Simulate code = %v, want ResourceExhausted", code)
	}
	if _, err := h.client.ListRuns(ctx, &ListRunsRequest{}); err != nil {
		t.Fatalf("ListRuns should not be throttled: %v", err)
	}
	if got := testutil.ToFloat64(h.collector.RPCRequests.WithLabelValues("SimulationService", "Simulate", "ResourceExhausted")); got != 1 {
		t.Fatalf("throttled requests metric = %v, want 1", got)
	}
}

func TestPeerLimiterIsPerHost(t *testing.T) {
	l := NewPeerLimiter(0.001, 1)
	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.2") {
		t.Fatalf("first call of each host should pass")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("second call of the same host should be throttled")
	}
}
