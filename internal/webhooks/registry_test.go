package webhooks

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
	"github.com/preston-bernstein/game-events-service/internal/testutil"
)

var allEvents = []games.EventType{games.EventGameStarted, games.EventScoreChanged, games.EventGameEnded}

func newTestRegistry() *Registry {
	return NewRegistry(RegistryOptions{Now: testutil.NowAt(testutil.SampleTime)})
}

func mustRegister(t *testing.T, r *Registry, url string, events ...games.EventType) string {
	t.Helper()
	id, err := r.Register(url, events, "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return id
}

func TestRegisterValidates(t *testing.T) {
	r := newTestRegistry()
	cases := []struct {
		name   string
		url    string
		events []games.EventType
		secret string
	}{
		{"bad scheme", "ftp://example.com/hook", allEvents, "s"},
		{"no host", "http:///hook", allEvents, "s"},
		{"no secret", "https://example.com/hook", allEvents, ""},
		{"no events", "https://example.com/hook", nil, "s"},
		{"unknown event", "https://example.com/hook", []games.EventType{"halftime"}, "s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := r.Register(tc.url, tc.events, tc.secret); !errors.Is(err, ErrInvalidSubscription) {
				t.Fatalf("expected ErrInvalidSubscription, got %v", err)
			}
		})
	}
	if r.Len() != 0 {
		t.Fatalf("expected nothing registered")
	}
}

func TestRegisterListGet(t *testing.T) {
	r := newTestRegistry()
	first := mustRegister(t, r, "https://a.example.com/hook", games.EventGameStarted, games.EventGameStarted)
	second := mustRegister(t, r, "https://b.example.com/hook", games.EventGameEnded)

	list := r.List()
	if len(list) != 2 || list[0].ID != first || list[1].ID != second {
		t.Fatalf("expected registration order, got %+v", list)
	}
	if len(list[0].EventTypes) != 1 {
		t.Fatalf("expected duplicate event types collapsed, got %v", list[0].EventTypes)
	}
	got, err := r.Get(first)
	if err != nil || !got.Enabled || got.Circuit != CircuitClosed || !got.CreatedAt.Equal(testutil.SampleTime) {
		t.Fatalf("unexpected subscription %+v err=%v", got, err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.Enable("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Enable, got %v", err)
	}
}

func TestMatchingFiltersByTypeAndEnabled(t *testing.T) {
	r := newTestRegistry()
	starts := mustRegister(t, r, "https://a.example.com", games.EventGameStarted)
	all := mustRegister(t, r, "https://b.example.com", allEvents...)
	off := mustRegister(t, r, "https://c.example.com", allEvents...)
	if _, err := r.Disable(off); err != nil {
		t.Fatalf("disable: %v", err)
	}

	started := r.Matching(games.EventGameStarted)
	if len(started) != 2 || started[0].ID != starts || started[1].ID != all {
		t.Fatalf("unexpected game_started matches %+v", started)
	}
	ended := r.Matching(games.EventGameEnded)
	if len(ended) != 1 || ended[0].ID != all {
		t.Fatalf("unexpected game_ended matches %+v", ended)
	}
	if r.IsEnabled(off) || !r.IsEnabled(all) || r.IsEnabled("missing") {
		t.Fatalf("unexpected IsEnabled results")
	}
}

func TestFirstFailureNeverDisables(t *testing.T) {
	r := newTestRegistry()
	id := mustRegister(t, r, "https://a.example.com", allEvents...)

	if r.RecordFailure(id, testutil.SampleTime) {
		t.Fatalf("expected no trip on first failure")
	}
	sub, _ := r.Get(id)
	if !sub.Enabled || sub.TotalAttempts != 1 || sub.FailedAttempts != 1 {
		t.Fatalf("unexpected state %+v", sub)
	}
}

func TestCircuitTripsAboveThreshold(t *testing.T) {
	rec := metrics.NewRecorder()
	r := NewRegistry(RegistryOptions{Metrics: rec})
	id := mustRegister(t, r, "https://a.example.com", allEvents...)

	for i := 0; i < 5; i++ {
		r.RecordSuccess(id, testutil.SampleTime)
	}
	for i := 0; i < 5; i++ {
		if r.RecordFailure(id, testutil.SampleTime) {
			t.Fatalf("tripped early at failure %d", i+1)
		}
	}
	if !r.RecordFailure(id, testutil.SampleTime) {
		t.Fatalf("expected trip with 6 of 11 failed")
	}
	sub, _ := r.Get(id)
	if sub.Enabled || sub.Circuit != CircuitOpen {
		t.Fatalf("expected subscription disabled, got %+v", sub)
	}
	if sub.FailedAttempts > sub.TotalAttempts {
		t.Fatalf("failed attempts exceed total: %+v", sub)
	}
	if len(r.Matching(games.EventGameStarted)) != 0 {
		t.Fatalf("expected disabled subscription excluded from matching")
	}
	if rec.SubscriptionsDisabled() != 1 {
		t.Fatalf("expected disable metric recorded")
	}

	if _, err := r.Enable(id); err != nil {
		t.Fatalf("enable: %v", err)
	}
	sub, _ = r.Get(id)
	if !sub.Enabled || sub.TotalAttempts != 11 {
		t.Fatalf("expected enabled with counters kept, got %+v", sub)
	}
	if !r.RecordFailure(id, testutil.SampleTime) {
		t.Fatalf("expected re-enabled subscription to trip again while still failing")
	}
}

func TestEqualRatioDoesNotTrip(t *testing.T) {
	r := newTestRegistry()
	id := mustRegister(t, r, "https://a.example.com", allEvents...)
	for i := 0; i < 6; i++ {
		r.RecordSuccess(id, testutil.SampleTime)
	}
	for i := 0; i < 6; i++ {
		if r.RecordFailure(id, testutil.SampleTime) {
			t.Fatalf("expected 6 of 12 not to trip")
		}
	}
}

func TestConcurrentCountersAreNotLost(t *testing.T) {
	r := newTestRegistry()
	a := mustRegister(t, r, "https://a.example.com", allEvents...)
	b := mustRegister(t, r, "https://b.example.com", allEvents...)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); r.RecordSuccess(a, testutil.SampleTime) }()
		go func() { defer wg.Done(); r.RecordSuccess(b, testutil.SampleTime) }()
	}
	wg.Wait()

	for _, id := range []string{a, b} {
		if sub, _ := r.Get(id); sub.TotalAttempts != 100 {
			t.Fatalf("expected 100 attempts on %s, got %d", id, sub.TotalAttempts)
		}
	}
}

func TestUpsertKeepsCountersAndCircuit(t *testing.T) {
	r := newTestRegistry()
	added, err := r.Upsert(Subscription{ID: "fixed", URL: "https://a.example.com", EventTypes: allEvents, Secret: "one", Enabled: true})
	if err != nil || !added {
		t.Fatalf("expected add, got added=%v err=%v", added, err)
	}
	r.RecordFailure("fixed", testutil.SampleTime)
	_, _ = r.Disable("fixed")

	added, err = r.Upsert(Subscription{ID: "fixed", URL: "https://b.example.com", EventTypes: []games.EventType{games.EventGameEnded}, Secret: "two", Enabled: true})
	if err != nil || added {
		t.Fatalf("expected update, got added=%v err=%v", added, err)
	}
	sub, _ := r.Get("fixed")
	if sub.URL != "https://b.example.com" || sub.Secret != "two" || len(sub.EventTypes) != 1 {
		t.Fatalf("expected target replaced, got %+v", sub)
	}
	if sub.Enabled || sub.FailedAttempts != 1 {
		t.Fatalf("expected counters and circuit kept, got %+v", sub)
	}
}

func TestSubscriptionNeverExposesSecret(t *testing.T) {
	r := newTestRegistry()
	id, err := r.Register("https://user:pw@a.example.com/hook?token=abc", allEvents, "top-secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	sub, _ := r.Get(id)

	data, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "top-secret") {
		t.Fatalf("secret leaked into JSON: %s", data)
	}

	logger, buf := testutil.NewBufferLogger()
	logger.Info("sub", "subscription", sub)
	out := buf.String()
	if strings.Contains(out, "top-secret") || strings.Contains(out, "pw@") || strings.Contains(out, "token=abc") {
		t.Fatalf("sensitive data leaked into logs: %s", out)
	}
	if !strings.Contains(out, id) {
		t.Fatalf("expected subscription id in logs: %s", out)
	}
}
