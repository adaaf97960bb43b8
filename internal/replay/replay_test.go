package replay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/rocket-flight-simulator/core"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/sample"
	"github.com/signalsfoundry/rocket-flight-simulator/kb"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

func storedRun(t *testing.T) (*kb.Store, string, *core.Result) {
	t.Helper()
	ctx := logging.ContextWithRunID(context.Background(), "replay-1")
	res, err := core.NewEngine(logging.Noop()).Simulate(ctx, sample.SingleStage(), model.DefaultOptions())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	store := kb.NewStore(0)
	id, err := store.Put(res)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	return store, id, res
}

func serve(t *testing.T, store *kb.Store) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(Path, NewHandler(store, logging.Noop()))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, rest string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + Path + rest
}

func TestAcceleratedReplayStreamsEveryFrame(t *testing.T) {
	store, id, res := storedRun(t)
	srv := serve(t, store)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, id+"?mode=accelerated"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	var frames, events int
	var last Frame
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Fatalf("ReadJSON after %d frames: %v", frames, err)
			}
			break
		}
		if f.Index != frames {
			t.Fatalf("frame index = %d, want %d", f.Index, frames)
		}
		frames++
		events += len(f.Events)
		last = f
	}

	main := res.Branches[0]
	if frames != main.Len() {
		t.Fatalf("frames = %d, want %d", frames, main.Len())
	}
	if events != len(main.Events()) {
		t.Fatalf("events = %d, want %d", events, len(main.Events()))
	}
	if alt := last.Values[model.TypeAltitude.String()]; alt == nil {
		t.Fatalf("last frame has no altitude")
	}
}

func TestReplayRejectsBadRequests(t *testing.T) {
	store, id, _ := storedRun(t)
	srv := serve(t, store)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"unknown run", "missing", http.StatusNotFound},
		{"branch out of range", id + "?branch=9", http.StatusBadRequest},
		{"bad mode", id + "?mode=slowmo", http.StatusBadRequest},
		{"bad speed", id + "?speed=-2", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, tt.path), nil)
			if err == nil {
				t.Fatalf("Dial succeeded, want HTTP %d", tt.code)
			}
			if resp == nil || resp.StatusCode != tt.code {
				t.Fatalf("response = %v, want HTTP %d", resp, tt.code)
			}
		})
	}
}
