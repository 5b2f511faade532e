package webhooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/preston-bernstein/game-events-service/internal/logging"
)

// fileEntry is one subscription in the seed file. Either secret or
// secret_env must be set; secret_env names an environment variable.
type fileEntry struct {
	ID        string   `yaml:"id"`
	URL       string   `yaml:"url"`
	Events    []string `yaml:"events"`
	Secret    string   `yaml:"secret"`
	SecretEnv string   `yaml:"secret_env"`
	Enabled   *bool    `yaml:"enabled"`
}

type fileDoc struct {
	Subscriptions []fileEntry `yaml:"subscriptions"`
}

// LoadFile reads subscriptions from a YAML file. Entries without an id get
// one derived from their URL so reloads keep matching the same subscription.
func LoadFile(path string) ([]Subscription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read webhooks file %s: %w", path, err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse webhooks file %s: %w", path, err)
	}

	out := make([]Subscription, 0, len(doc.Subscriptions))
	var errs []error
	for i, fe := range doc.Subscriptions {
		sub, err := fe.subscription()
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		out = append(out, sub)
	}
	return out, errors.Join(errs...)
}

func (fe fileEntry) subscription() (Subscription, error) {
	events, err := ParseEventTypes(fe.Events)
	if err != nil {
		return Subscription{}, err
	}
	secret := fe.Secret
	if fe.SecretEnv != "" {
		secret = os.Getenv(fe.SecretEnv)
		if secret == "" {
			return Subscription{}, fmt.Errorf("%w: secret_env %s is empty", ErrInvalidSubscription, fe.SecretEnv)
		}
	}
	id := fe.ID
	if id == "" {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(fe.URL)).String()
	}
	enabled := true
	if fe.Enabled != nil {
		enabled = *fe.Enabled
	}
	return Subscription{
		ID:         id,
		URL:        fe.URL,
		EventTypes: events,
		Secret:     secret,
		Enabled:    enabled,
	}, nil
}

// Seed upserts subs into the registry and returns how many were added and updated.
func (r *Registry) Seed(subs []Subscription) (added, updated int, err error) {
	var errs []error
	for _, sub := range subs {
		isNew, upsertErr := r.Upsert(sub)
		switch {
		case upsertErr != nil:
			errs = append(errs, fmt.Errorf("subscription %s: %w", sub.ID, upsertErr))
		case isNew:
			added++
		default:
			updated++
		}
	}
	return added, updated, errors.Join(errs...)
}

// LoadAndSeed reads path and seeds r with it. A partially invalid file still
// seeds its valid entries.
func LoadAndSeed(r *Registry, path string, logger *slog.Logger) error {
	subs, loadErr := LoadFile(path)
	if subs == nil && loadErr != nil {
		return loadErr
	}
	added, updated, seedErr := r.Seed(subs)
	logging.Info(logger, "webhook subscriptions loaded",
		"path", path,
		"added", added,
		"updated", updated,
	)
	return errors.Join(loadErr, seedErr)
}

// Watch reloads path into r whenever it changes, until ctx is cancelled.
// The parent directory is watched so editors that replace the file by
// rename are picked up.
func Watch(ctx context.Context, r *Registry, path string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("webhooks watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("webhooks watcher add %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := LoadAndSeed(r, path, logger); err != nil {
					logging.Warn(logger, "webhook subscriptions reload failed", "path", path, "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logging.Warn(logger, "webhook subscriptions watcher error", "error", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
