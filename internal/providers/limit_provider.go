package providers

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// rateLimitedProvider wraps a GameProvider with a token bucket.
type rateLimitedProvider struct {
	next    GameProvider
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRateLimitedProvider returns a GameProvider that allows requestsPerMinute calls.
// Calls wait for a token, bounded by the caller's context.
func NewRateLimitedProvider(next GameProvider, requestsPerMinute int, logger *slog.Logger) GameProvider {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	rps := float64(requestsPerMinute) / 60.0
	return &rateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		logger:  logger,
	}
}

func (p *rateLimitedProvider) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	if p == nil || p.next == nil {
		return nil, ErrProviderUnavailable
	}
	if err := p.limiter.Wait(ctx); err != nil {
		logWithProvider(ctx, p.logger, slog.LevelWarn, "rate-limited", "rate limit wait aborted", "error", err)
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.next.FetchGames(ctx, date)
}
