package timeseries

import (
	"context"
	"sort"
	"sync"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

type pointKey struct {
	measurement string
	gameID      string
	unixNano    int64
}

// MemoryGateway keeps points in process. It backs tests and single-process runs without a database.
type MemoryGateway struct {
	mu     sync.RWMutex
	points map[pointKey]Point
}

// NewMemoryGateway constructs an empty MemoryGateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{points: make(map[pointKey]Point)}
}

// Write stores p, replacing any point with the same measurement, game and timestamp.
func (g *MemoryGateway) Write(ctx context.Context, p Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.validate(); err != nil {
		return err
	}
	key := pointKey{measurement: p.Measurement, gameID: p.Tags.GameID, unixNano: p.Time.UnixNano()}

	g.mu.Lock()
	g.points[key] = p
	g.mu.Unlock()
	return nil
}

// Query returns snapshots inside r matching f, ordered by game id then time.
func (g *MemoryGateway) Query(ctx context.Context, r Range, f Filter) ([]games.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.RLock()
	matched := make([]Point, 0, len(g.points))
	for _, p := range g.points {
		if r.contains(p.Time) && f.matches(p) {
			matched = append(matched, p)
		}
	}
	g.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Tags.GameID != matched[j].Tags.GameID {
			return matched[i].Tags.GameID < matched[j].Tags.GameID
		}
		return matched[i].Time.Before(matched[j].Time)
	})

	if f.LatestOnly {
		matched = latestPerGame(matched)
	}

	out := make([]games.Snapshot, 0, len(matched))
	for _, p := range matched {
		out = append(out, p.Snapshot())
	}
	return out, nil
}

// Len reports how many points are stored.
func (g *MemoryGateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.points)
}

// latestPerGame expects points sorted by game id then time.
func latestPerGame(sorted []Point) []Point {
	out := sorted[:0]
	for i, p := range sorted {
		if i+1 < len(sorted) && sorted[i+1].Tags.GameID == p.Tags.GameID {
			continue
		}
		out = append(out, p)
	}
	return out
}
