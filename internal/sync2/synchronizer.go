// Package sync2 implements the per-key state machine that reconciles a
// WebSocket push stream against a known-good baseline before callers are
// allowed to trust it: Uninitialized → AwaitingBaseline → Buffering → Live,
// with Resyncing/Failed on gap or checksum-mismatch triggers.
package sync2

import (
	"context"
	"sync"
	"time"

	"github.com/okx-bridge/okx/internal/metrics"
)

// State is one point in a key's lifecycle.
type State int

const (
	Uninitialized State = iota
	AwaitingBaseline
	Buffering
	Live
	Resyncing
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case AwaitingBaseline:
		return "awaiting_baseline"
	case Buffering:
		return "buffering"
	case Live:
		return "live"
	case Resyncing:
		return "resyncing"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type entry[S any] struct {
	state   State
	snap    S
	notify  []chan State
	buffer  []any
}

// Synchronizer tracks state and a snapshot for each key K, with bounded
// per-key buffering of events that arrive before the key reaches Live and
// a change-notification stream for callers awaiting a target state.
type Synchronizer[K comparable, S any] struct {
	mu         sync.Mutex
	entries    map[K]*entry[S]
	bufferCap  int
	metricsKey func(K) string
}

// New creates a Synchronizer with the given per-key buffer capacity.
// metricsKey renders a key to a label string for dropped-event counting;
// pass nil to skip metrics entirely.
func New[K comparable, S any](bufferCap int, metricsKey func(K) string) *Synchronizer[K, S] {
	return &Synchronizer[K, S]{
		entries:    make(map[K]*entry[S]),
		bufferCap:  bufferCap,
		metricsKey: metricsKey,
	}
}

func (s *Synchronizer[K, S]) get(key K) *entry[S] {
	e, ok := s.entries[key]
	if !ok {
		e = &entry[S]{state: Uninitialized}
		s.entries[key] = e
	}
	return e
}

// GetState returns the current state for key (Uninitialized if unknown).
func (s *Synchronizer[K, S]) GetState(key K) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key).state
}

// Snapshot returns the last snapshot stored for key via SetState.
func (s *Synchronizer[K, S]) Snapshot(key K) (S, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero S
		return zero, false
	}
	return e.snap, true
}

// SetState transitions key to state, storing snap as its latest known
// snapshot and notifying any pending AwaitState callers.
func (s *Synchronizer[K, S]) SetState(key K, state State, snap S) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(key)
	e.state = state
	e.snap = snap
	for _, ch := range e.notify {
		select {
		case ch <- state:
		default:
		}
	}
	e.notify = nil
}

// SetStateSilent sets state without notifying waiters or touching the
// snapshot — a test hook for forcing a key into a particular state.
func (s *Synchronizer[K, S]) SetStateSilent(key K, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(key).state = state
}

// AwaitState blocks until key reaches target, ctx is cancelled, or timeout
// elapses (timeout <= 0 means no deadline beyond ctx).
func (s *Synchronizer[K, S]) AwaitState(ctx context.Context, key K, target State, timeout time.Duration) error {
	s.mu.Lock()
	e := s.get(key)
	if e.state == target {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan State, 1)
	e.notify = append(e.notify, ch)
	s.mu.Unlock()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeoutCh:
			return context.DeadlineExceeded
		case got := <-ch:
			if got == target {
				return nil
			}
			s.mu.Lock()
			e := s.get(key)
			newCh := make(chan State, 1)
			e.notify = append(e.notify, newCh)
			s.mu.Unlock()
			ch = newCh
		}
	}
}

// Buffer appends evt to key's bounded buffer while the key is not Live,
// dropping the event (and incrementing the dropped-event metric) if the
// buffer is full.
func (s *Synchronizer[K, S]) Buffer(key K, evt any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(key)
	if len(e.buffer) >= s.bufferCap {
		if s.metricsKey != nil {
			metrics.IncDropped(s.metricsKey(key))
		}
		return
	}
	e.buffer = append(e.buffer, evt)
}

// DrainBuffer removes and returns all buffered events for key, in order.
func (s *Synchronizer[K, S]) DrainBuffer(key K) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.get(key)
	out := e.buffer
	e.buffer = nil
	return out
}
