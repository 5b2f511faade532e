package metrics

import (
	"strings"
	"sync"
	"time"
)

type providerStats struct {
	calls           int
	errors          int
	rateLimitHits   int
	lastRetryAfter  time.Duration
	lastCallLatency time.Duration
}

// Outcome labels shared by the persister and the dispatcher.
const (
	OutcomeWritten = "written"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
	OutcomeSuccess = "success"
	OutcomeAborted = "aborted"
)

// Recorder captures lightweight, in-memory metrics and forwards them to
// OpenTelemetry instruments when telemetry is enabled.
type Recorder struct {
	mu       sync.Mutex
	stats    map[string]*providerStats
	counters map[string]int64
	otel     *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats:    make(map[string]*providerStats),
		counters: make(map[string]int64),
		otel:     otel,
	}
}

// RecordProviderAttempt increments counters for a provider call and stores the last observed latency.
func (r *Recorder) RecordProviderAttempt(provider string, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.ensureStatsLocked(provider)
	stats.calls++
	stats.lastCallLatency = duration
	if err != nil {
		stats.errors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordProviderAttempt(provider, duration, err)
	}
}

// RecordRateLimit tracks that a provider response hit a rate limit and stores the last Retry-After.
func (r *Recorder) RecordRateLimit(provider string, retryAfter time.Duration) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats := r.ensureStatsLocked(provider)
	stats.rateLimitHits++
	if retryAfter > 0 {
		stats.lastRetryAfter = retryAfter
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordRateLimit(provider, retryAfter)
	}
}

// ProviderCalls returns the total attempts recorded for a provider.
func (r *Recorder) ProviderCalls(provider string) int {
	return r.Snapshot(provider).Calls
}

// ProviderErrors returns the total failed attempts recorded for a provider.
func (r *Recorder) ProviderErrors(provider string) int {
	return r.Snapshot(provider).Errors
}

// RateLimitHits returns the number of rate limit events seen for a provider.
func (r *Recorder) RateLimitHits(provider string) int {
	return r.Snapshot(provider).RateLimitHits
}

// LastRetryAfter returns the most recent Retry-After observed for a provider.
func (r *Recorder) LastRetryAfter(provider string) time.Duration {
	return r.Snapshot(provider).LastRetryAfter
}

// LastCallLatency returns the latency of the most recent provider call.
func (r *Recorder) LastCallLatency(provider string) time.Duration {
	return r.Snapshot(provider).LastCallLatency
}

// Snapshot returns a copy of the current stats for the provider.
type Snapshot struct {
	Calls           int
	Errors          int
	RateLimitHits   int
	LastRetryAfter  time.Duration
	LastCallLatency time.Duration
}

func (r *Recorder) Snapshot(provider string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[provider]
	if !ok || stats == nil {
		return Snapshot{}
	}
	return Snapshot{
		Calls:           stats.calls,
		Errors:          stats.errors,
		RateLimitHits:   stats.rateLimitHits,
		LastRetryAfter:  stats.lastRetryAfter,
		LastCallLatency: stats.lastCallLatency,
	}
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// RecordPollerCycle tracks detector poll cycles and errors.
func (r *Recorder) RecordPollerCycle(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.inc("poller_cycles")
	if err != nil {
		r.inc("poller_errors")
	}
	if r.otel != nil {
		r.otel.recordPoller(duration, err)
	}
}

// RecordEvent counts a detected game event by type.
func (r *Recorder) RecordEvent(eventType string) {
	if r == nil {
		return
	}
	r.inc("events", eventType)
	if r.otel != nil {
		r.otel.recordEvent(eventType)
	}
}

// RecordPersist counts a persistence outcome (written, failed, dropped).
func (r *Recorder) RecordPersist(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.inc("persist", outcome)
	if r.otel != nil {
		r.otel.recordPersist(outcome, duration)
	}
}

// RecordDelivery counts a finished webhook delivery and the attempts it took.
func (r *Recorder) RecordDelivery(eventType, outcome string, attempts int, duration time.Duration) {
	if r == nil {
		return
	}
	r.inc("deliveries", outcome)
	r.add(int64(attempts), "delivery_attempts")
	if r.otel != nil {
		r.otel.recordDelivery(eventType, outcome, attempts, duration)
	}
}

// RecordSubscriptionDisabled counts circuit trips that disabled a subscription.
func (r *Recorder) RecordSubscriptionDisabled() {
	if r == nil {
		return
	}
	r.inc("subscriptions_disabled")
	if r.otel != nil {
		r.otel.recordCounter(r.otel.subscriptionsDisabled, 1)
	}
}

// RecordCacheLookup counts a cache hit or miss for the tier and category.
func (r *Recorder) RecordCacheLookup(tier, category string, hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.inc("cache", tier, result)
	if r.otel != nil {
		r.otel.recordCache(tier, category, result)
	}
}

// RecordBreakerTransition counts upstream circuit breaker state changes.
func (r *Recorder) RecordBreakerTransition(name, from, to string) {
	if r == nil {
		return
	}
	r.inc("breaker", to)
	if r.otel != nil {
		r.otel.recordBreaker(name, from, to)
	}
}

// Events returns how many events of the given type were recorded.
func (r *Recorder) Events(eventType string) int64 { return r.count("events", eventType) }

// PersistOutcomes returns how many writes ended with the given outcome.
func (r *Recorder) PersistOutcomes(outcome string) int64 { return r.count("persist", outcome) }

// Deliveries returns how many deliveries ended with the given outcome.
func (r *Recorder) Deliveries(outcome string) int64 { return r.count("deliveries", outcome) }

// DeliveryAttempts returns the total HTTP attempts made across deliveries.
func (r *Recorder) DeliveryAttempts() int64 { return r.count("delivery_attempts") }

// SubscriptionsDisabled returns the number of circuit trips.
func (r *Recorder) SubscriptionsDisabled() int64 { return r.count("subscriptions_disabled") }

// CacheHits returns hits recorded for a tier.
func (r *Recorder) CacheHits(tier string) int64 { return r.count("cache", tier, "hit") }

// CacheMisses returns misses recorded for a tier.
func (r *Recorder) CacheMisses(tier string) int64 { return r.count("cache", tier, "miss") }

// PollerCycles returns the number of detector cycles recorded.
func (r *Recorder) PollerCycles() int64 { return r.count("poller_cycles") }

func (r *Recorder) ensureStatsLocked(provider string) *providerStats {
	stats, ok := r.stats[provider]
	if !ok {
		stats = &providerStats{}
		r.stats[provider] = stats
	}
	return stats
}

func (r *Recorder) inc(parts ...string) {
	r.add(1, parts...)
}

func (r *Recorder) add(n int64, parts ...string) {
	key := strings.Join(parts, ":")
	r.mu.Lock()
	r.counters[key] += n
	r.mu.Unlock()
}

func (r *Recorder) count(parts ...string) int64 {
	if r == nil {
		return 0
	}
	key := strings.Join(parts, ":")
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[key]
}
