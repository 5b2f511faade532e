package cache

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
)

// GetJSON decodes a cached JSON value into T. Undecodable values count as misses.
func GetJSON[T any](ctx context.Context, c *StateCache, key string, category Category) (T, bool) {
	var out T
	raw, ok := c.Get(ctx, key, category)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, false
	}
	return out, true
}

// SetJSON encodes v and stores it under key.
func (c *StateCache) SetJSON(ctx context.Context, key string, category Category, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Set(ctx, key, category, raw)
	return nil
}

// SetJSONWithin encodes v and stores it under key for at most maxAge.
func (c *StateCache) SetJSONWithin(ctx context.Context, key string, category Category, v any, maxAge time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.SetWithin(ctx, key, category, raw, maxAge)
	return nil
}
