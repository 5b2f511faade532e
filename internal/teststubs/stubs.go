package teststubs

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// StubProvider is a test double for providers.GameProvider.
// When Script is set, each call consumes the next step; the last step repeats.
type StubProvider struct {
	Games  []games.Snapshot
	Err    error
	Script []Step
	Calls  atomic.Int32
	Notify chan struct{}

	mu sync.Mutex
}

// Step is one scripted FetchGames result.
type Step struct {
	Games []games.Snapshot
	Err   error
}

// FetchGames returns configured games and error while tracking calls.
func (s *StubProvider) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	_ = ctx
	_ = date
	if s.Notify != nil {
		select {
		case <-s.Notify:
		default:
			close(s.Notify)
		}
	}
	n := int(s.Calls.Add(1))

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Script) > 0 {
		idx := n - 1
		if idx >= len(s.Script) {
			idx = len(s.Script) - 1
		}
		step := s.Script[idx]
		return step.Games, step.Err
	}
	return s.Games, s.Err
}

// StubPersister records every snapshot handed to it.
type StubPersister struct {
	mu        sync.Mutex
	Snapshots []games.Snapshot
}

// Persist records s.
func (p *StubPersister) Persist(s games.Snapshot) {
	p.mu.Lock()
	p.Snapshots = append(p.Snapshots, s)
	p.mu.Unlock()
}

// Count returns how many snapshots were persisted.
func (p *StubPersister) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Snapshots)
}

// StubEmitter records dispatched events in order.
type StubEmitter struct {
	mu     sync.Mutex
	events []games.Event
}

// Dispatch records e.
func (e *StubEmitter) Dispatch(ev games.Event) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (e *StubEmitter) Events() []games.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]games.Event, len(e.events))
	copy(out, e.events)
	return out
}

// Types returns the recorded event types in order.
func (e *StubEmitter) Types() []games.EventType {
	evs := e.Events()
	out := make([]games.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

// Reset forgets recorded events.
func (e *StubEmitter) Reset() {
	e.mu.Lock()
	e.events = nil
	e.mu.Unlock()
}
