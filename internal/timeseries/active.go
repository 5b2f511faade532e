package timeseries

import (
	"context"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// DefaultLookback bounds how far back the active-games query reaches.
const DefaultLookback = 6 * time.Hour

// ActiveGamesProvider reads "currently active" games from a gateway so the
// detector can poll the store instead of the upstream API. A game is active
// when any point in the lookback window is live or scheduled; the latest
// point is reported so the final transition still reaches the detector.
type ActiveGamesProvider struct {
	gateway     Gateway
	measurement string
	lookback    time.Duration
	leagues     []games.League
	now         func() time.Time
}

// NewActiveGamesProvider builds a provider over gateway. Zero lookback uses DefaultLookback.
func NewActiveGamesProvider(gateway Gateway, measurement string, lookback time.Duration, leagues []games.League) *ActiveGamesProvider {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &ActiveGamesProvider{
		gateway:     gateway,
		measurement: measurement,
		lookback:    lookback,
		leagues:     leagues,
		now:         time.Now,
	}
}

// FetchGames ignores date; the window is always relative to now.
func (p *ActiveGamesProvider) FetchGames(ctx context.Context, _ string) ([]games.Snapshot, error) {
	window := Last(p.lookback, p.now())
	// End is exclusive; include points written at exactly now.
	window.End = window.End.Add(time.Nanosecond)

	active, err := p.gateway.Query(ctx, window, Filter{
		Measurement: p.measurement,
		Statuses:    []games.Status{games.StatusLive, games.StatusScheduled},
		Leagues:     p.leagues,
		LatestOnly:  true,
	})
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return []games.Snapshot{}, nil
	}

	ids := make(map[string]struct{}, len(active))
	for _, s := range active {
		ids[s.GameID] = struct{}{}
	}

	latest, err := p.gateway.Query(ctx, window, Filter{
		Measurement: p.measurement,
		Leagues:     p.leagues,
		LatestOnly:  true,
	})
	if err != nil {
		return nil, err
	}

	out := make([]games.Snapshot, 0, len(ids))
	for _, s := range latest {
		if _, ok := ids[s.GameID]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}
