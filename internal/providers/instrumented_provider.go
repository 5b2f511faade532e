package providers

import (
	"context"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
)

type instrumentedProvider struct {
	next    GameProvider
	name    string
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewInstrumentedProvider records attempts, latency, errors and rate-limit hits for name.
func NewInstrumentedProvider(next GameProvider, name string, rec *metrics.Recorder) GameProvider {
	return &instrumentedProvider{next: next, name: name, metrics: rec, now: time.Now}
}

func (p *instrumentedProvider) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	if p == nil || p.next == nil {
		return nil, ErrProviderUnavailable
	}
	start := p.now()
	snaps, err := p.next.FetchGames(ctx, date)
	p.metrics.RecordProviderAttempt(p.name, p.now().Sub(start), err)
	if rl, ok := AsRateLimitError(err); ok {
		p.metrics.RecordRateLimit(p.name, rl.RetryAfter)
	}
	return snaps, err
}
