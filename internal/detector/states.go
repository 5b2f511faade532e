package detector

import (
	"sort"
	"sync"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// DefaultFinalRetention is how long a final game stays tracked.
const DefaultFinalRetention = 6 * time.Hour

// GameState is the last snapshot seen for one game.
type GameState struct {
	Snapshot   games.Snapshot
	FirstSeen  time.Time
	UpdatedAt  time.Time
	FinalSince time.Time
}

// GameStates holds the previous observation per game. Only the detector's
// poll loop writes to it; readers get copies.
type GameStates struct {
	mu        sync.RWMutex
	entries   map[string]GameState
	retention time.Duration
}

// NewGameStates builds an empty store. Zero retention uses DefaultFinalRetention.
func NewGameStates(retention time.Duration) *GameStates {
	if retention <= 0 {
		retention = DefaultFinalRetention
	}
	return &GameStates{
		entries:   make(map[string]GameState),
		retention: retention,
	}
}

// Get returns the previous snapshot for id.
func (s *GameStates) Get(id string) (games.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.entries[id]
	return st.Snapshot, ok
}

// Put replaces the snapshot for id and tracks when the game went final.
func (s *GameStates) Put(id string, snap games.Snapshot, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.entries[id]
	if !ok {
		st.FirstSeen = now
	}
	st.Snapshot = snap
	st.UpdatedAt = now
	switch {
	case snap.Status != games.StatusFinal:
		st.FinalSince = time.Time{}
	case st.FinalSince.IsZero():
		st.FinalSince = now
	}
	s.entries[id] = st
}

// EvictRetired drops games that have been final for longer than the
// retention window and returns how many were removed.
func (s *GameStates) EvictRetired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, st := range s.entries {
		if st.FinalSince.IsZero() {
			continue
		}
		if now.Sub(st.FinalSince) > s.retention {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns how many games are tracked.
func (s *GameStates) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// List returns a copy of every tracked state ordered by game id.
func (s *GameStates) List() []GameState {
	s.mu.RLock()
	out := make([]GameState, 0, len(s.entries))
	for _, st := range s.entries {
		out = append(out, st)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Snapshot.GameID < out[j].Snapshot.GameID
	})
	return out
}
