// Package replay streams stored flights to websocket clients, frame by
// frame, paced by a timectrl.Replayer.
package replay

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/kb"
	"github.com/signalsfoundry/rocket-flight-simulator/model"
	"github.com/signalsfoundry/rocket-flight-simulator/timectrl"
)

// Path is the route the handler is mounted on; the run ID follows it.
const Path = "/replay/"

const writeTimeout = 5 * time.Second

// Frame is one websocket message.
type Frame struct {
	Index  int                 `json:"index"`
	Time   float64             `json:"time"`
	Values map[string]*float64 `json:"values"`
	Events []Event             `json:"events,omitempty"`
}

type Event struct {
	Time   float64 `json:"time"`
	Type   string  `json:"type"`
	Source string  `json:"source,omitempty"`
}

// Handler serves GET /replay/{id}. Query parameters: branch (index, default
// 0), mode (realtime or accelerated, default realtime) and speed (real-time
// factor, default 1).
type Handler struct {
	Store    *kb.Store
	Log      logging.Logger
	Upgrader websocket.Upgrader
}

// NewHandler serves replays of the runs in store.
func NewHandler(store *kb.Store, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Noop()
	}
	return &Handler{Store: store, Log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, Path)
	res, err := h.Store.Get(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, kb.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	q := r.URL.Query()
	branch := 0
	if raw := q.Get("branch"); raw != "" {
		if branch, err = strconv.Atoi(raw); err != nil || branch < 0 || branch >= len(res.Branches) {
			http.Error(w, "branch out of range", http.StatusBadRequest)
			return
		}
	}
	mode := timectrl.RealTime
	switch strings.ToLower(q.Get("mode")) {
	case "", "realtime":
	case "accelerated":
		mode = timectrl.Accelerated
	default:
		http.Error(w, "mode must be realtime or accelerated", http.StatusBadRequest)
		return
	}
	speed := 1.0
	if raw := q.Get("speed"); raw != "" {
		if speed, err = strconv.ParseFloat(raw, 64); err != nil || !(speed > 0) {
			http.Error(w, "speed must be a positive number", http.StatusBadRequest)
			return
		}
	}

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	ctx = logging.ContextWithRunID(ctx, id)

	// The client only sends control frames; a read error means it left.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	b := res.Branches[branch]
	h.Log.Info(ctx, "replay started",
		logging.String("run_id", id),
		logging.String("branch", b.Name()),
		logging.Int("frames", b.Len()),
	)

	rp := timectrl.NewReplayer(b, mode)
	rp.Speed = speed
	var writeErr error
	rp.AddListener(func(f timectrl.Frame) {
		if writeErr != nil {
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if writeErr = conn.WriteJSON(frameMessage(f)); writeErr != nil {
			cancel()
		}
	})
	<-rp.Start(ctx)

	if writeErr != nil || ctx.Err() != nil {
		h.Log.Debug(ctx, "replay interrupted", logging.Err(errors.Join(writeErr, ctx.Err())))
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of flight"),
		time.Now().Add(writeTimeout))
}

func frameMessage(f timectrl.Frame) Frame {
	out := Frame{Index: f.Index, Time: f.Time, Values: make(map[string]*float64, model.NumDataTypes)}
	for d := model.DataType(0); d < model.NumDataTypes; d++ {
		if v := f.Point[d]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			out.Values[d.String()] = &v
		} else {
			out.Values[d.String()] = nil
		}
	}
	for _, e := range f.Events {
		out.Events = append(out.Events, Event{Time: e.Time, Type: e.Type.String(), Source: e.Source})
	}
	return out
}
