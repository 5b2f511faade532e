package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/cache"
	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

type cachingProvider struct {
	next   GameProvider
	cache  *cache.StateCache
	name   string
	maxAge time.Duration
	logger *slog.Logger
}

// NewCachingProvider serves repeated fetches for the same date from c. Lists
// holding a live game are cached as live_games, the rest as upcoming_games.
// A positive maxAge caps every entry's lifetime so a poller running at that
// interval sees each upstream change on its next cycle.
func NewCachingProvider(next GameProvider, c *cache.StateCache, name string, maxAge time.Duration, logger *slog.Logger) GameProvider {
	return &cachingProvider{next: next, cache: c, name: name, maxAge: maxAge, logger: logger}
}

func (p *cachingProvider) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	if p == nil || p.next == nil {
		return nil, ErrProviderUnavailable
	}
	key := p.key(date)
	for _, category := range []cache.Category{cache.CategoryLiveGames, cache.CategoryUpcomingGames} {
		if snaps, ok := cache.GetJSON[[]games.Snapshot](ctx, p.cache, key, category); ok {
			logWithProvider(ctx, p.logger, slog.LevelDebug, p.name, "served games from cache", "category", string(category))
			return snaps, nil
		}
	}

	snaps, err := p.next.FetchGames(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := p.cache.SetJSONWithin(ctx, key, categoryFor(snaps), snaps, p.maxAge); err != nil {
		logWithProvider(ctx, p.logger, slog.LevelWarn, p.name, "cache encode failed", "error", err)
	}
	return snaps, nil
}

func (p *cachingProvider) key(date string) string {
	if date == "" {
		date = "today"
	}
	return p.name + "." + date
}

func categoryFor(snaps []games.Snapshot) cache.Category {
	for _, s := range snaps {
		if s.Status == games.StatusLive {
			return cache.CategoryLiveGames
		}
	}
	return cache.CategoryUpcomingGames
}
