package webhooks

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/logging"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Policy  CircuitPolicy
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// entry guards one subscription's counters and circuit.
type entry struct {
	mu      sync.Mutex
	sub     Subscription
	circuit circuit
}

func (e *entry) snapshot() Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := e.sub.clone()
	sub.Enabled = e.circuit.closed()
	sub.Circuit = e.circuit.state
	return sub
}

// Registry holds every subscription. The map lock only guards membership;
// counter updates take the per-subscription lock.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	policy  CircuitPolicy
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		entries: make(map[string]*entry),
		policy:  opts.Policy.withDefaults(),
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     now,
	}
}

// Register adds an enabled subscription and returns its id.
func (r *Registry) Register(rawURL string, events []games.EventType, secret string) (string, error) {
	sub, err := r.add(Subscription{URL: rawURL, EventTypes: events, Secret: secret, Enabled: true})
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

// Upsert adds sub when its id is unknown and otherwise replaces url, events
// and secret while keeping counters and circuit state. It reports whether
// the subscription was added.
func (r *Registry) Upsert(sub Subscription) (bool, error) {
	if sub.ID != "" {
		r.mu.RLock()
		e, ok := r.entries[sub.ID]
		r.mu.RUnlock()
		if ok {
			events, err := validateTarget(sub.URL, sub.EventTypes, sub.Secret)
			if err != nil {
				return false, err
			}
			e.mu.Lock()
			e.sub.URL = sub.URL
			e.sub.EventTypes = events
			e.sub.Secret = sub.Secret
			e.mu.Unlock()
			return false, nil
		}
	}
	if _, err := r.add(sub); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Registry) add(sub Subscription) (Subscription, error) {
	events, err := validateTarget(sub.URL, sub.EventTypes, sub.Secret)
	if err != nil {
		return Subscription{}, err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.EventTypes = events
	sub.TotalAttempts, sub.FailedAttempts = 0, 0
	sub.LastSuccessAt, sub.LastFailureAt = time.Time{}, time.Time{}
	sub.CreatedAt = r.now()

	e := &entry{sub: sub, circuit: newCircuit(r.policy)}
	if !sub.Enabled {
		e.circuit.open()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[sub.ID]; exists {
		return Subscription{}, fmt.Errorf("%w: duplicate id %q", ErrInvalidSubscription, sub.ID)
	}
	r.entries[sub.ID] = e
	r.order = append(r.order, sub.ID)
	logging.Info(r.logger, "webhook subscription registered", "subscription", e.snapshot())
	return e.snapshot(), nil
}

func (r *Registry) lookup(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// List returns every subscription in registration order.
func (r *Registry) List() []Subscription {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.order))
	for _, id := range r.order {
		entries = append(entries, r.entries[id])
	}
	r.mu.RUnlock()

	out := make([]Subscription, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.snapshot())
	}
	return out
}

// Get returns one subscription.
func (r *Registry) Get(id string) (Subscription, error) {
	e, err := r.lookup(id)
	if err != nil {
		return Subscription{}, err
	}
	return e.snapshot(), nil
}

// Enable closes the subscription's circuit. Counters are kept, so a
// subscription that keeps failing trips again on its next failure.
func (r *Registry) Enable(id string) (Subscription, error) {
	e, err := r.lookup(id)
	if err != nil {
		return Subscription{}, err
	}
	e.mu.Lock()
	e.circuit.close()
	e.mu.Unlock()
	sub := e.snapshot()
	logging.Info(r.logger, "webhook subscription enabled", logging.FieldSubscriptionID, id)
	return sub, nil
}

// Disable opens the subscription's circuit.
func (r *Registry) Disable(id string) (Subscription, error) {
	e, err := r.lookup(id)
	if err != nil {
		return Subscription{}, err
	}
	e.mu.Lock()
	e.circuit.open()
	e.mu.Unlock()
	sub := e.snapshot()
	logging.Info(r.logger, "webhook subscription disabled", logging.FieldSubscriptionID, id)
	return sub, nil
}

// Matching returns the enabled subscriptions that want et.
func (r *Registry) Matching(et games.EventType) []Subscription {
	var out []Subscription
	for _, sub := range r.List() {
		if sub.Enabled && sub.Wants(et) {
			out = append(out, sub)
		}
	}
	return out
}

// IsEnabled reports whether id exists and its circuit is closed.
func (r *Registry) IsEnabled(id string) bool {
	e, err := r.lookup(id)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.circuit.closed()
}

// RecordSuccess counts one successful delivery.
func (r *Registry) RecordSuccess(id string, at time.Time) {
	e, err := r.lookup(id)
	if err != nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sub.TotalAttempts++
	e.sub.LastSuccessAt = at
}

// RecordFailure counts one failed delivery and reports whether it tripped
// the subscription's circuit.
func (r *Registry) RecordFailure(id string, at time.Time) bool {
	e, err := r.lookup(id)
	if err != nil {
		return false
	}
	e.mu.Lock()
	e.sub.TotalAttempts++
	e.sub.FailedAttempts++
	e.sub.LastFailureAt = at
	tripped := e.circuit.observe(e.sub.TotalAttempts, e.sub.FailedAttempts)
	total, failed := e.sub.TotalAttempts, e.sub.FailedAttempts
	e.mu.Unlock()

	if tripped {
		r.metrics.RecordSubscriptionDisabled()
		logging.Warn(r.logger, "webhook subscription disabled after failures",
			logging.FieldSubscriptionID, id,
			"total_attempts", total,
			"failed_attempts", failed,
		)
	}
	return tripped
}

// Len returns the number of subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
