package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/metrics"
	"github.com/preston-bernstein/game-events-service/internal/teststubs"
)

func TestInstrumentedProviderRecordsAttempts(t *testing.T) {
	rec := metrics.NewRecorder()
	inner := &teststubs.StubProvider{}
	p := NewInstrumentedProvider(inner, "fixture", rec)

	if _, err := p.FetchGames(context.Background(), ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	inner.Err = errors.New("boom")
	_, _ = p.FetchGames(context.Background(), "")

	if rec.ProviderCalls("fixture") != 2 || rec.ProviderErrors("fixture") != 1 {
		t.Fatalf("unexpected snapshot %+v", rec.Snapshot("fixture"))
	}
}

func TestInstrumentedProviderRecordsRateLimits(t *testing.T) {
	rec := metrics.NewRecorder()
	inner := &teststubs.StubProvider{Err: &RateLimitError{Provider: "balldontlie", StatusCode: 429, RetryAfter: 30 * time.Second}}
	p := NewInstrumentedProvider(inner, "balldontlie", rec)
	_, _ = p.FetchGames(context.Background(), "")

	if rec.RateLimitHits("balldontlie") != 1 || rec.LastRetryAfter("balldontlie") != 30*time.Second {
		t.Fatalf("expected rate limit recorded, got %+v", rec.Snapshot("balldontlie"))
	}
}
