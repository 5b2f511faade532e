package webhooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/logging"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
	"github.com/preston-bernstein/game-events-service/internal/timeutil"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderID        = "X-Webhook-ID"

	userAgent = "game-events-service/1.0"

	DefaultAttemptTimeout = 5 * time.Second
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = time.Second

	// MaxAttemptsLimit bounds MaxAttempts; larger values are clamped.
	MaxAttemptsLimit = 10
	// MaxBackoff is the longest wait between two attempts.
	MaxBackoff = 10 * time.Minute

	backoffMultiplier = 2
	drainLimit        = 64 << 10
)

var errSubscriptionDisabled = errors.New("webhooks: subscription disabled")

// DeliveryError describes a delivery that did not succeed.
type DeliveryError struct {
	SubscriptionID string
	EventType      games.EventType
	Attempts       int
	StatusCode     int
	Err            error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deliver %s to %s: %d attempts, last status %d: %v", e.EventType, e.SubscriptionID, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("deliver %s to %s: %d attempts: %v", e.EventType, e.SubscriptionID, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// DispatcherOptions configures delivery. Zero values fall back to defaults.
type DispatcherOptions struct {
	HTTPClient     *http.Client
	AttemptTimeout time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Recorder
	Now            func() time.Time
}

// Dispatcher fans events out to matching subscriptions. Each delivery runs
// in its own goroutine; Dispatch never waits on the network.
type Dispatcher struct {
	registry       *Registry
	client         *http.Client
	attemptTimeout time.Duration
	maxAttempts    int
	initialBackoff time.Duration
	logger         *slog.Logger
	metrics        *metrics.Recorder
	now            func() time.Time
	newTimer       func() backoff.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher builds a Dispatcher over registry.
func NewDispatcher(registry *Registry, opts DispatcherOptions) *Dispatcher {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.AttemptTimeout
	if timeout <= 0 || timeout > DefaultAttemptTimeout {
		timeout = DefaultAttemptTimeout
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	if attempts > MaxAttemptsLimit {
		logging.Warn(opts.Logger, "webhook max attempts clamped", logging.FieldAttempt, attempts, "limit", MaxAttemptsLimit)
		attempts = MaxAttemptsLimit
	}
	initial := opts.InitialBackoff
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	if initial > MaxBackoff {
		initial = MaxBackoff
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		registry:       registry,
		client:         client,
		attemptTimeout: timeout,
		maxAttempts:    attempts,
		initialBackoff: initial,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		now:            now,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Dispatch starts one delivery per enabled subscription wanting ev.Type and
// returns immediately. It is a no-op once Shutdown has begun.
func (d *Dispatcher) Dispatch(ev games.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	subs := d.registry.Matching(ev.Type)
	if len(subs) == 0 {
		return
	}
	body, err := EncodePayload(ev)
	if err != nil {
		logging.Error(d.logger, "webhook payload encode failed", err,
			logging.FieldGameID, ev.GameID,
			logging.FieldEventType, string(ev.Type),
		)
		return
	}

	for _, sub := range subs {
		d.wg.Add(1)
		go func(sub Subscription) {
			defer d.wg.Done()
			_ = d.deliver(d.ctx, sub, ev, body)
		}(sub)
	}
}

// deliver runs the retry loop for one subscription and records the outcome once.
func (d *Dispatcher) deliver(ctx context.Context, sub Subscription, ev games.Event, body []byte) error {
	start := d.now()
	signature := Sign(sub.Secret, body)
	attempts := 0
	lastStatus := 0

	op := func() error {
		if !d.registry.IsEnabled(sub.ID) {
			return backoff.Permanent(errSubscriptionDisabled)
		}
		attempts++
		status, err := d.attempt(ctx, sub, ev, body, signature)
		lastStatus = status
		return err
	}
	notify := func(err error, next time.Duration) {
		logging.Debug(d.logger, "webhook attempt failed",
			logging.FieldSubscriptionID, sub.ID,
			logging.FieldEventType, string(ev.Type),
			logging.FieldAttempt, attempts,
			"retry_in_ms", next.Milliseconds(),
			"error", err,
		)
	}

	var timer backoff.Timer
	if d.newTimer != nil {
		timer = d.newTimer()
	}
	err := backoff.RetryNotifyWithTimer(op, d.backOff(ctx), notify, timer)
	elapsed := d.now().Sub(start)

	switch {
	case err == nil:
		d.registry.RecordSuccess(sub.ID, d.now())
		d.metrics.RecordDelivery(string(ev.Type), metrics.OutcomeSuccess, attempts, elapsed)
		logging.Debug(d.logger, "webhook delivered",
			logging.FieldSubscriptionID, sub.ID,
			logging.FieldEventType, string(ev.Type),
			logging.FieldGameID, ev.GameID,
			logging.FieldAttempt, attempts,
			logging.FieldDurationMS, elapsed.Milliseconds(),
		)
		return nil
	case errors.Is(err, errSubscriptionDisabled), ctx.Err() != nil:
		d.metrics.RecordDelivery(string(ev.Type), metrics.OutcomeAborted, attempts, elapsed)
		logging.Info(d.logger, "webhook delivery aborted",
			logging.FieldSubscriptionID, sub.ID,
			logging.FieldEventType, string(ev.Type),
			logging.FieldAttempt, attempts,
			"reason", err.Error(),
		)
	default:
		d.registry.RecordFailure(sub.ID, d.now())
		d.metrics.RecordDelivery(string(ev.Type), metrics.OutcomeFailed, attempts, elapsed)
		logging.Warn(d.logger, "webhook delivery failed",
			logging.FieldSubscriptionID, sub.ID,
			logging.FieldEventType, string(ev.Type),
			logging.FieldGameID, ev.GameID,
			logging.FieldAttempt, attempts,
			logging.FieldStatusCode, lastStatus,
			"error", err,
		)
	}
	return &DeliveryError{
		SubscriptionID: sub.ID,
		EventType:      ev.Type,
		Attempts:       attempts,
		StatusCode:     lastStatus,
		Err:            err,
	}
}

// backOff yields initial, initial*2, ... between attempts, at most maxAttempts in
// total. No single wait exceeds MaxBackoff.
func (d *Dispatcher) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = d.initialBackoff
	eb.Multiplier = backoffMultiplier
	eb.RandomizationFactor = 0
	eb.MaxInterval = MaxBackoff
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(d.maxAttempts-1)), ctx)
}

// attempt performs one POST. A 2xx response is success.
func (d *Dispatcher) attempt(ctx context.Context, sub Subscription, ev games.Event, body []byte, signature string) (int, error) {
	actx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return 0, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderEvent, string(ev.Type))
	req.Header.Set(HeaderTimestamp, timeutil.FormatHeaderTime(d.now()))
	req.Header.Set(HeaderID, sub.ID)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// Shutdown refuses new dispatches and waits for in-flight deliveries. When
// ctx expires first, remaining deliveries are cancelled.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
