// Package cache holds recently fetched game data in a two-tier TTL cache.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/logging"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
)

// Category groups keys that share a freshness requirement.
type Category string

const (
	CategoryLiveGames     Category = "live_games"
	CategoryUpcomingGames Category = "upcoming_games"
	CategoryTeamList      Category = "team_list"
	CategorySeasonStats   Category = "season_stats"
)

const (
	tierLocal  = "local"
	tierShared = "shared"

	defaultSharedTimeout = 500 * time.Millisecond
)

// TTLs maps each category to how long its values stay fresh.
type TTLs map[Category]time.Duration

// DefaultTTLs returns the built-in freshness windows.
func DefaultTTLs() TTLs {
	return TTLs{
		CategoryLiveGames:     10 * time.Second,
		CategoryUpcomingGames: 60 * time.Second,
		CategoryTeamList:      12 * time.Hour,
		CategorySeasonStats:   time.Hour,
	}
}

// SharedStore is the optional network tier. Values carry their absolute expiry.
type SharedStore interface {
	Get(ctx context.Context, key string) (value []byte, expiresAt time.Time, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error
}

// Options configures a StateCache. Zero values fall back to defaults.
type Options struct {
	TTLs          TTLs
	Shared        SharedStore
	SharedTimeout time.Duration
	Logger        *slog.Logger
	Metrics       *metrics.Recorder
	Now           func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// StateCache checks an in-process map first and falls back to the shared tier.
// Expiry is evaluated when a key is read; nothing sweeps in the background.
type StateCache struct {
	mu      sync.RWMutex
	entries map[string]entry

	ttls          TTLs
	shared        SharedStore
	sharedTimeout time.Duration
	logger        *slog.Logger
	metrics       *metrics.Recorder
	now           func() time.Time
}

// New builds a StateCache.
func New(opts Options) *StateCache {
	ttls := DefaultTTLs()
	for c, d := range opts.TTLs {
		if d > 0 {
			ttls[c] = d
		}
	}
	timeout := opts.SharedTimeout
	if timeout <= 0 {
		timeout = defaultSharedTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &StateCache{
		entries:       make(map[string]entry),
		ttls:          ttls,
		shared:        opts.Shared,
		sharedTimeout: timeout,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		now:           now,
	}
}

// TTL returns the freshness window for category. Unknown categories get the
// live-games window, the shortest one.
func (c *StateCache) TTL(category Category) time.Duration {
	if d, ok := c.ttls[category]; ok {
		return d
	}
	return c.ttls[CategoryLiveGames]
}

// Get returns the cached value for key. A shared-tier hit is copied into the
// local tier with its remaining lifetime.
func (c *StateCache) Get(ctx context.Context, key string, category Category) ([]byte, bool) {
	k := compositeKey(key, category)
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok && now.Before(e.expiresAt) {
		c.metrics.RecordCacheLookup(tierLocal, string(category), true)
		return e.value, true
	}
	c.metrics.RecordCacheLookup(tierLocal, string(category), false)

	if c.shared == nil {
		return nil, false
	}

	sctx, cancel := context.WithTimeout(ctx, c.sharedTimeout)
	defer cancel()
	value, expiresAt, ok, err := c.shared.Get(sctx, k)
	if err != nil {
		logging.Warn(c.logger, "shared cache read failed",
			logging.FieldCategory, string(category),
			"key", key,
			"error", err,
		)
		c.metrics.RecordCacheLookup(tierShared, string(category), false)
		return nil, false
	}
	if !ok || !now.Before(expiresAt) {
		c.metrics.RecordCacheLookup(tierShared, string(category), false)
		return nil, false
	}
	c.metrics.RecordCacheLookup(tierShared, string(category), true)

	c.mu.Lock()
	c.entries[k] = entry{value: value, expiresAt: expiresAt}
	c.mu.Unlock()
	return value, true
}

// Set stores value in both tiers using the category's TTL.
func (c *StateCache) Set(ctx context.Context, key string, category Category, value []byte) {
	c.SetWithin(ctx, key, category, value, 0)
}

// SetWithin stores value like Set but expires it after maxAge when that is
// shorter than the category's TTL. A non-positive maxAge keeps the TTL.
func (c *StateCache) SetWithin(ctx context.Context, key string, category Category, value []byte, maxAge time.Duration) {
	k := compositeKey(key, category)
	ttl := c.TTL(category)
	if maxAge > 0 && maxAge < ttl {
		ttl = maxAge
	}
	expiresAt := c.now().Add(ttl)

	c.mu.Lock()
	c.entries[k] = entry{value: value, expiresAt: expiresAt}
	c.mu.Unlock()

	if c.shared == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, c.sharedTimeout)
	defer cancel()
	if err := c.shared.Set(sctx, k, value, expiresAt); err != nil {
		logging.Warn(c.logger, "shared cache write failed",
			logging.FieldCategory, string(category),
			"key", key,
			"error", err,
		)
	}
}

// Len reports how many local entries exist, expired ones included.
func (c *StateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func compositeKey(key string, category Category) string {
	return string(category) + "." + key
}
