// Package kb keeps completed simulation runs in memory so they can be
// listed and fetched after the fact.
package kb

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/rocket-flight-simulator/core"
)

var (
	// ErrNotFound is returned when no run has the requested ID.
	ErrNotFound = errors.New("run not found")
	// ErrDuplicate is returned when a run with the same ID is already stored.
	ErrDuplicate = errors.New("run already stored")
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventRunStored EventType = iota
	EventRunEvicted
)

// Event is emitted to subscribers when a run is stored or evicted.
type Event struct {
	Type EventType
	Run  Record
}

// Record describes one stored run without its flight data.
type Record struct {
	ID       string
	Rocket   string
	Outcome  core.Outcome
	StoredAt time.Time
	Summary  core.Summary
}

type entry struct {
	rec    Record
	result *core.Result
	seq    uint64
}

// Store is an in-memory, thread-safe store of simulation results. With a
// positive capacity the oldest run is evicted once the store is full.
type Store struct {
	mu sync.RWMutex

	runs     map[string]*entry
	capacity int
	seq      uint64
	now      func() time.Time

	subs   map[int]func(Event)
	nextID int
}

// NewStore constructs an empty store. A capacity of zero or less keeps every
// run.
func NewStore(capacity int) *Store {
	return &Store{
		runs:     make(map[string]*entry),
		capacity: capacity,
		now:      time.Now,
		subs:     make(map[int]func(Event)),
	}
}

// Put stores res and returns its ID. Results without a run ID get a fresh
// one.
func (s *Store) Put(res *core.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("kb: nil result")
	}
	id := res.RunID
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	if _, exists := s.runs[id]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrDuplicate, id)
	}
	s.seq++
	e := &entry{
		rec: Record{
			ID:       id,
			Rocket:   res.Rocket,
			Outcome:  res.Outcome,
			StoredAt: s.now(),
			Summary:  res.Summary(),
		},
		result: res,
		seq:    s.seq,
	}
	s.runs[id] = e
	events := []Event{{Type: EventRunStored, Run: e.rec}}
	if s.capacity > 0 && len(s.runs) > s.capacity {
		oldest := s.oldestLocked()
		delete(s.runs, oldest.rec.ID)
		events = append(events, Event{Type: EventRunEvicted, Run: oldest.rec})
	}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	// Subscribers run outside the lock so they may call back into the store.
	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
	return id, nil
}

// Get returns the stored result with the given ID.
func (s *Store) Get(id string) (*core.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return e.result, nil
}

// List returns a snapshot of all stored runs, oldest first.
func (s *Store) List() []Record {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.runs))
	for _, e := range s.runs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	out := make([]Record, len(entries))
	for i, e := range entries {
		out[i] = e.rec
	}
	return out
}

// Len returns the number of stored runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// Subscribe registers a callback for store events. It returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) oldestLocked() *entry {
	var oldest *entry
	for _, e := range s.runs {
		if oldest == nil || e.seq < oldest.seq {
			oldest = e
		}
	}
	return oldest
}

func (s *Store) subscribersLocked() []func(Event) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}
