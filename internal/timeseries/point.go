// Package timeseries records game snapshots as time-series points and reads them back.
package timeseries

import (
	"context"
	"errors"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// DefaultMeasurement names the series game snapshots are written to.
const DefaultMeasurement = "game_snapshots"

// ErrInvalidPoint is returned when a point cannot be stored.
var ErrInvalidPoint = errors.New("invalid point")

// Gateway is the narrow read/write surface over the time-series store.
type Gateway interface {
	Write(ctx context.Context, p Point) error
	Query(ctx context.Context, r Range, f Filter) ([]games.Snapshot, error)
}

// Tags are the indexed dimensions of a point.
type Tags struct {
	GameID   string
	League   games.League
	HomeTeam string
	AwayTeam string
	Status   games.Status
}

// Fields are the measured values of a point.
type Fields struct {
	HomeScore     int
	AwayScore     int
	Period        int
	TimeRemaining string
}

// Point is one row in the series. Time is when the game was observed, not when the row was written.
type Point struct {
	Measurement string
	Tags        Tags
	Fields      Fields
	Time        time.Time
}

// PointFromSnapshot converts a snapshot into a point in the given measurement.
func PointFromSnapshot(measurement string, s games.Snapshot) Point {
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	return Point{
		Measurement: measurement,
		Tags: Tags{
			GameID:   s.GameID,
			League:   s.League,
			HomeTeam: s.HomeTeam,
			AwayTeam: s.AwayTeam,
			Status:   s.Status,
		},
		Fields: Fields{
			HomeScore:     s.HomeScore,
			AwayScore:     s.AwayScore,
			Period:        s.Period,
			TimeRemaining: s.TimeRemaining,
		},
		Time: s.ObservedAt,
	}
}

// Snapshot converts the point back into a game snapshot.
func (p Point) Snapshot() games.Snapshot {
	return games.Snapshot{
		GameID:        p.Tags.GameID,
		League:        p.Tags.League,
		HomeTeam:      p.Tags.HomeTeam,
		AwayTeam:      p.Tags.AwayTeam,
		HomeScore:     p.Fields.HomeScore,
		AwayScore:     p.Fields.AwayScore,
		Status:        p.Tags.Status,
		Period:        p.Fields.Period,
		TimeRemaining: p.Fields.TimeRemaining,
		ObservedAt:    p.Time,
	}
}

func (p Point) validate() error {
	if p.Measurement == "" {
		return errors.Join(ErrInvalidPoint, errors.New("missing measurement"))
	}
	if p.Tags.GameID == "" {
		return errors.Join(ErrInvalidPoint, errors.New("missing game id"))
	}
	if p.Time.IsZero() {
		return errors.Join(ErrInvalidPoint, errors.New("missing timestamp"))
	}
	return nil
}

// Range is a half-open time window [Start, End). A zero End means "up to now".
type Range struct {
	Start time.Time
	End   time.Time
}

// Last returns the window ending at now and spanning d.
func Last(d time.Duration, now time.Time) Range {
	return Range{Start: now.Add(-d), End: now}
}

func (r Range) contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && !t.Before(r.End) {
		return false
	}
	return true
}

// Filter narrows a query. Empty slices match everything.
type Filter struct {
	Measurement string
	Statuses    []games.Status
	Leagues     []games.League
	// LatestOnly keeps only the most recent matching point per game.
	LatestOnly bool
}

func (f Filter) measurement() string {
	if f.Measurement == "" {
		return DefaultMeasurement
	}
	return f.Measurement
}

func (f Filter) matches(p Point) bool {
	if p.Measurement != f.measurement() {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, p.Tags.Status) {
		return false
	}
	if len(f.Leagues) > 0 && !containsLeague(f.Leagues, p.Tags.League) {
		return false
	}
	return true
}

func containsStatus(list []games.Status, s games.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsLeague(list []games.League, l games.League) bool {
	for _, v := range list {
		if v == l {
			return true
		}
	}
	return false
}
