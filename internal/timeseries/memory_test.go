package timeseries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

var base = time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC)

func snap(id string, status games.Status, home, away int, at time.Time) games.Snapshot {
	return games.Snapshot{
		GameID:     id,
		League:     games.LeagueNBA,
		HomeTeam:   "BOS",
		AwayTeam:   "NYK",
		HomeScore:  home,
		AwayScore:  away,
		Status:     status,
		ObservedAt: at,
	}
}

func writeAll(t *testing.T, g Gateway, snaps ...games.Snapshot) {
	t.Helper()
	for _, s := range snaps {
		if err := g.Write(context.Background(), PointFromSnapshot("", s)); err != nil {
			t.Fatalf("write %s: %v", s.GameID, err)
		}
	}
}

func TestPointRoundTripsSnapshot(t *testing.T) {
	s := snap("g1", games.StatusLive, 3, 1, base)
	s.Period = 2
	s.TimeRemaining = "4:12"

	p := PointFromSnapshot("", s)
	if p.Measurement != DefaultMeasurement {
		t.Fatalf("expected default measurement, got %q", p.Measurement)
	}
	if !p.Time.Equal(s.ObservedAt) {
		t.Fatalf("expected point time to be observed_at")
	}
	if got := p.Snapshot(); got != s {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, s)
	}
}

func TestMemoryGatewayRejectsInvalidPoints(t *testing.T) {
	g := NewMemoryGateway()
	err := g.Write(context.Background(), Point{Measurement: "m", Time: base})
	if !errors.Is(err, ErrInvalidPoint) {
		t.Fatalf("expected ErrInvalidPoint, got %v", err)
	}
	err = g.Write(context.Background(), Point{Measurement: "m", Tags: Tags{GameID: "g"}})
	if !errors.Is(err, ErrInvalidPoint) {
		t.Fatalf("expected ErrInvalidPoint for zero time, got %v", err)
	}
}

func TestMemoryGatewayWriteIsIdempotent(t *testing.T) {
	g := NewMemoryGateway()
	s := snap("g1", games.StatusLive, 1, 0, base)
	writeAll(t, g, s, s)
	if g.Len() != 1 {
		t.Fatalf("expected 1 point after duplicate write, got %d", g.Len())
	}
}

func TestMemoryGatewayQueryFiltersByRangeAndStatus(t *testing.T) {
	g := NewMemoryGateway()
	writeAll(t, g,
		snap("g1", games.StatusScheduled, 0, 0, base),
		snap("g1", games.StatusLive, 2, 0, base.Add(time.Minute)),
		snap("g2", games.StatusFinal, 10, 8, base.Add(2*time.Minute)),
		snap("g3", games.StatusLive, 1, 1, base.Add(-time.Hour)),
	)

	got, err := g.Query(context.Background(), Range{Start: base, End: base.Add(time.Hour)}, Filter{
		Statuses: []games.Status{games.StatusLive, games.StatusScheduled},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].Status != games.StatusScheduled || got[1].Status != games.StatusLive {
		t.Fatalf("expected time order within game, got %+v", got)
	}
}

func TestMemoryGatewayLatestOnly(t *testing.T) {
	g := NewMemoryGateway()
	writeAll(t, g,
		snap("g2", games.StatusLive, 0, 0, base),
		snap("g1", games.StatusLive, 1, 0, base),
		snap("g1", games.StatusLive, 3, 0, base.Add(time.Minute)),
		snap("g2", games.StatusLive, 0, 7, base.Add(2*time.Minute)),
	)
	got, err := g.Query(context.Background(), Range{}, Filter{LatestOnly: true})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected one snapshot per game, got %d", len(got))
	}
	if got[0].GameID != "g1" || got[0].HomeScore != 3 {
		t.Fatalf("unexpected latest for g1: %+v", got[0])
	}
	if got[1].GameID != "g2" || got[1].AwayScore != 7 {
		t.Fatalf("unexpected latest for g2: %+v", got[1])
	}
}

func TestMemoryGatewayHonoursContext(t *testing.T) {
	g := NewMemoryGateway()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Write(ctx, PointFromSnapshot("", snap("g", games.StatusLive, 0, 0, base))); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if _, err := g.Query(ctx, Range{}, Filter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
