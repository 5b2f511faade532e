package providers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
)

// BreakerConfig tunes the upstream circuit breaker.
type BreakerConfig struct {
	Name         string
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	OpenTimeout  time.Duration
}

// DefaultBreakerConfig opens after at least 5 requests at 60% failure and probes again after a minute.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:         name,
		MinRequests:  5,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		OpenTimeout:  time.Minute,
	}
}

type circuitBreakerProvider struct {
	next    GameProvider
	cb      *gobreaker.CircuitBreaker[[]games.Snapshot]
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewCircuitBreakerProvider fails fast with ErrCircuitOpen while the upstream keeps failing.
func NewCircuitBreakerProvider(next GameProvider, cfg BreakerConfig, logger *slog.Logger, rec *metrics.Recorder) GameProvider {
	p := &circuitBreakerProvider{next: next, logger: logger, metrics: rec}
	p.cb = gobreaker.NewCircuitBreaker[[]games.Snapshot](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// a cancelled cycle says nothing about upstream health
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logWithProvider(context.Background(), p.logger, slog.LevelWarn, name, "upstream circuit state change",
				"from", from.String(),
				"to", to.String(),
			)
			p.metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})
	return p
}

func (p *circuitBreakerProvider) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	if p == nil || p.next == nil {
		return nil, ErrProviderUnavailable
	}
	out, err := p.cb.Execute(func() ([]games.Snapshot, error) {
		return p.next.FetchGames(ctx, date)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrCircuitOpen, err)
	}
	return out, err
}

// State reports the breaker state for readiness output.
func (p *circuitBreakerProvider) State() string {
	return p.cb.State().String()
}
