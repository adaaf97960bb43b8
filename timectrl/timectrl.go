package timectrl

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/rocket-flight-simulator/model"
)

// Clock reports how far a replay has progressed in flight time.
type Clock interface {
	// Now returns the flight time of the last emitted sample, in seconds.
	Now() float64
}

// Mode describes how the Replayer paces a branch.
type Mode int

const (
	// RealTime waits the flight-time gap between samples, divided by Speed.
	RealTime Mode = iota
	// Accelerated emits samples as fast as listeners consume them.
	Accelerated
)

// Frame is one sample handed to listeners, together with the events that
// happened since the previous frame.
type Frame struct {
	Index  int
	Time   float64
	Point  model.Point
	Events []model.FlightEvent
}

// Replayer plays back a recorded branch and notifies registered listeners.
// It implements Clock.
type Replayer struct {
	mu     sync.RWMutex
	branch *model.FlightDataBranch
	Mode   Mode
	// Speed scales RealTime pacing; 2 plays twice as fast. Zero means 1.
	Speed float64

	current   float64
	listeners []func(Frame)
}

// NewReplayer constructs a replayer for b.
func NewReplayer(b *model.FlightDataBranch, mode Mode) *Replayer {
	return &Replayer{branch: b, Mode: mode, Speed: 1}
}

// Now returns the flight time of the last emitted frame. Implements Clock.
func (r *Replayer) Now() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// AddListener registers a callback invoked on every frame.
func (r *Replayer) AddListener(fn func(Frame)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Frames splits the branch into frames. Events at or before the first
// sample go with frame 0; later events go with the first sample at or after
// them.
func Frames(b *model.FlightDataBranch) []Frame {
	n := b.Len()
	if n == 0 {
		return nil
	}
	times := b.Get(model.TypeTime)
	events := b.Events()
	frames := make([]Frame, n)
	next := 0
	for i := range frames {
		frames[i] = Frame{Index: i, Time: times[i], Point: b.At(i)}
		for next < len(events) && (events[next].Time <= times[i] || i == n-1) {
			frames[i].Events = append(frames[i].Events, events[next])
			next++
		}
	}
	return frames
}

// Start replays the branch in a separate goroutine. It returns a channel
// that is closed when the last frame is emitted or ctx is done.
func (r *Replayer) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	frames := Frames(r.branch)

	go func() {
		defer close(done)

		r.mu.RLock()
		mode, speed := r.Mode, r.Speed
		listeners := append([]func(Frame){}, r.listeners...)
		r.mu.RUnlock()
		if !(speed > 0) {
			speed = 1
		}

		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for i, f := range frames {
			if mode == RealTime && i > 0 {
				gap := time.Duration((f.Time - frames[i-1].Time) / speed * float64(time.Second))
				if timer == nil {
					timer = time.NewTimer(gap)
				} else {
					timer.Reset(gap)
				}
				select {
				case <-timer.C:
				case <-ctx.Done():
					return
				}
			} else if ctx.Err() != nil {
				return
			}

			r.mu.Lock()
			r.current = f.Time
			r.mu.Unlock()

			for _, fn := range listeners {
				fn(f)
			}
		}
	}()
	return done
}
