// Package webhooks keeps the subscriber registry and delivers signed game
// events to subscriber endpoints.
package webhooks

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

var (
	ErrNotFound            = errors.New("webhooks: subscription not found")
	ErrInvalidSubscription = errors.New("webhooks: invalid subscription")
)

// Subscription is a registered delivery target. The secret never leaves the
// process: it is excluded from JSON and redacted from logs.
type Subscription struct {
	ID             string            `json:"id"`
	URL            string            `json:"url"`
	EventTypes     []games.EventType `json:"events"`
	Secret         string            `json:"-"`
	Enabled        bool              `json:"enabled"`
	Circuit        CircuitState      `json:"circuit"`
	TotalAttempts  int64             `json:"total_attempts"`
	FailedAttempts int64             `json:"failed_attempts"`
	LastSuccessAt  time.Time         `json:"last_success_at"`
	LastFailureAt  time.Time         `json:"last_failure_at"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Wants reports whether the subscription is interested in et.
func (s Subscription) Wants(et games.EventType) bool {
	for _, want := range s.EventTypes {
		if want == et {
			return true
		}
	}
	return false
}

// FailureRate returns failed/total, or 0 before any attempt.
func (s Subscription) FailureRate() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.FailedAttempts) / float64(s.TotalAttempts)
}

// LogValue implements slog.LogValuer without the secret.
func (s Subscription) LogValue() slog.Value {
	types := make([]string, len(s.EventTypes))
	for i, et := range s.EventTypes {
		types[i] = string(et)
	}
	return slog.GroupValue(
		slog.String("id", s.ID),
		slog.String("url", redactURL(s.URL)),
		slog.String("events", strings.Join(types, ",")),
		slog.Bool("enabled", s.Enabled),
		slog.Int64("total_attempts", s.TotalAttempts),
		slog.Int64("failed_attempts", s.FailedAttempts),
	)
}

func (s Subscription) clone() Subscription {
	s.EventTypes = append([]games.EventType(nil), s.EventTypes...)
	return s
}

// redactURL drops userinfo and query so credentials embedded in a URL are not logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func validateTarget(rawURL string, events []games.EventType, secret string) ([]games.EventType, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: url: %v", ErrInvalidSubscription, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: url scheme must be http or https", ErrInvalidSubscription)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: url host is required", ErrInvalidSubscription)
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrInvalidSubscription)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: at least one event type is required", ErrInvalidSubscription)
	}

	seen := make(map[games.EventType]struct{}, len(events))
	out := make([]games.EventType, 0, len(events))
	for _, et := range events {
		known, ok := games.ParseEventType(string(et))
		if !ok {
			return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidSubscription, et)
		}
		if _, dup := seen[known]; dup {
			continue
		}
		seen[known] = struct{}{}
		out = append(out, known)
	}
	return out, nil
}

// ParseEventTypes converts raw names into event types, rejecting unknown ones.
func ParseEventTypes(raw []string) ([]games.EventType, error) {
	out := make([]games.EventType, 0, len(raw))
	for _, r := range raw {
		et, ok := games.ParseEventType(strings.TrimSpace(r))
		if !ok {
			return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidSubscription, r)
		}
		out = append(out, et)
	}
	return out, nil
}
