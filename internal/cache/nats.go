package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// kvBucket is the slice of a JetStream key-value bucket the store uses.
type kvBucket interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, value []byte) error
}

type jetstreamBucket struct {
	kv jetstream.KeyValue
}

func (b jetstreamBucket) get(ctx context.Context, key string) ([]byte, error) {
	e, err := b.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.Value(), nil
}

func (b jetstreamBucket) put(ctx context.Context, key string, value []byte) error {
	_, err := b.kv.Put(ctx, key, value)
	return err
}

// envelope keeps the per-category expiry alongside the value; the bucket
// itself only has one max age.
type envelope struct {
	Value     []byte `json:"v"`
	ExpiresAt int64  `json:"exp"`
}

// NATSStore is a SharedStore backed by a NATS JetStream key-value bucket.
type NATSStore struct {
	bucket kvBucket
	conn   *nats.Conn
	now    func() time.Time
}

// OpenNATSStore connects to url and creates or updates the bucket. maxAge
// bounds how long any entry survives in the bucket.
func OpenNATSStore(ctx context.Context, url, bucket string, maxAge time.Duration) (*NATSStore, error) {
	nc, err := nats.Connect(url,
		nats.Name("game-events-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "game state cache",
		TTL:         maxAge,
		History:     1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure kv bucket %s: %w", bucket, err)
	}
	return &NATSStore{bucket: jetstreamBucket{kv: kv}, conn: nc, now: time.Now}, nil
}

func newNATSStore(b kvBucket, now func() time.Time) *NATSStore {
	return &NATSStore{bucket: b, now: now}
}

// Get returns the stored value when present and not yet expired.
func (s *NATSStore) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	raw, err := s.bucket.get(ctx, kvKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("decode cache envelope: %w", err)
	}
	expiresAt := time.Unix(0, env.ExpiresAt)
	if !s.now().Before(expiresAt) {
		return nil, time.Time{}, false, nil
	}
	return env.Value, expiresAt, true, nil
}

// Set writes value with its absolute expiry.
func (s *NATSStore) Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	raw, err := json.Marshal(envelope{Value: value, ExpiresAt: expiresAt.UnixNano()})
	if err != nil {
		return err
	}
	return s.bucket.put(ctx, kvKey(key), raw)
}

// Close drains the NATS connection when the store opened one.
func (s *NATSStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}

// kvKey maps arbitrary cache keys onto the bucket's allowed key alphabet.
func kvKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '=', r == '.', r == '/':
			return r
		default:
			return '_'
		}
	}, key)
}
