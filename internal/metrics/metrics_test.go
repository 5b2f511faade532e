package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestRecorderTracksProviderAttemptsAndErrors(t *testing.T) {
	rec := NewRecorder()
	rec.RecordProviderAttempt("balldontlie", 10*time.Millisecond, nil)
	rec.RecordProviderAttempt("balldontlie", 15*time.Millisecond, errors.New("boom"))

	if got := rec.ProviderCalls("balldontlie"); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
	if got := rec.ProviderErrors("balldontlie"); got != 1 {
		t.Fatalf("expected 1 error, got %d", got)
	}
	if got := rec.LastCallLatency("balldontlie"); got != 15*time.Millisecond {
		t.Fatalf("expected last latency to be 15ms, got %s", got)
	}

	snap := rec.Snapshot("balldontlie")
	if snap.Calls != 2 || snap.Errors != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRecorderTracksRateLimits(t *testing.T) {
	rec := NewRecorder()
	rec.RecordRateLimit("balldontlie", 5*time.Second)
	rec.RecordRateLimit("balldontlie", 0)

	if got := rec.RateLimitHits("balldontlie"); got != 2 {
		t.Fatalf("expected 2 rate limit hits, got %d", got)
	}
	if got := rec.LastRetryAfter("balldontlie"); got != 5*time.Second {
		t.Fatalf("expected last retry-after to be 5s, got %s", got)
	}
}

func TestRecorderCountsDomainOutcomes(t *testing.T) {
	rec := NewRecorder()
	rec.RecordEvent("game_started")
	rec.RecordEvent("game_started")
	rec.RecordEvent("game_ended")
	rec.RecordPersist(OutcomeWritten, time.Millisecond)
	rec.RecordPersist(OutcomeDropped, 0)
	rec.RecordDelivery("game_started", OutcomeFailed, 3, time.Second)
	rec.RecordDelivery("game_started", OutcomeSuccess, 1, time.Millisecond)
	rec.RecordSubscriptionDisabled()
	rec.RecordCacheLookup("local", "live_games", true)
	rec.RecordCacheLookup("shared", "live_games", false)
	rec.RecordPollerCycle(time.Millisecond, nil)

	if got := rec.Events("game_started"); got != 2 {
		t.Fatalf("expected 2 game_started, got %d", got)
	}
	if got := rec.Events("game_ended"); got != 1 {
		t.Fatalf("expected 1 game_ended, got %d", got)
	}
	if rec.PersistOutcomes(OutcomeWritten) != 1 || rec.PersistOutcomes(OutcomeDropped) != 1 {
		t.Fatalf("unexpected persist counts")
	}
	if rec.Deliveries(OutcomeFailed) != 1 || rec.Deliveries(OutcomeSuccess) != 1 {
		t.Fatalf("unexpected delivery counts")
	}
	if got := rec.DeliveryAttempts(); got != 4 {
		t.Fatalf("expected 4 attempts, got %d", got)
	}
	if rec.SubscriptionsDisabled() != 1 {
		t.Fatalf("expected one disabled subscription")
	}
	if rec.CacheHits("local") != 1 || rec.CacheMisses("shared") != 1 || rec.CacheHits("shared") != 0 {
		t.Fatalf("unexpected cache counts")
	}
	if rec.PollerCycles() != 1 {
		t.Fatalf("expected one poller cycle")
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.RecordEvent("game_started")
	rec.RecordPersist(OutcomeFailed, 0)
	rec.RecordDelivery("x", OutcomeFailed, 1, 0)
	rec.RecordCacheLookup("local", "x", false)
	if rec.Events("game_started") != 0 {
		t.Fatalf("expected zero from nil recorder")
	}
}
