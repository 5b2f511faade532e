// Package detector polls for game snapshots, diffs them against the last
// observation per game and emits game events.
package detector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/logging"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
	"github.com/preston-bernstein/game-events-service/internal/providers"
)

// DefaultInterval is the poll period used when Options.Interval is unset.
const DefaultInterval = 15 * time.Second

const (
	defaultFetchTimeout = 10 * time.Second
	readyFailureLimit   = 3
)

var (
	ErrNoProvider     = errors.New("detector: no provider configured")
	ErrAlreadyStarted = errors.New("detector: already started")
)

// Persister records snapshots without blocking.
type Persister interface {
	Persist(games.Snapshot)
}

// Emitter delivers events without blocking.
type Emitter interface {
	Dispatch(games.Event)
}

// Options tunes the poll loop. Zero values fall back to defaults.
type Options struct {
	Interval       time.Duration
	FetchTimeout   time.Duration
	FinalRetention time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Recorder
}

// Status describes the recent health of the poll loop.
type Status struct {
	ConsecutiveFailures int
	LastError           string
	LastAttempt         time.Time
	LastSuccess         time.Time
	TrackedGames        int
	EventsEmitted       int64
}

// IsReady reports whether the detector has had a recent success and is not failing repeatedly.
func (s Status) IsReady() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < readyFailureLimit
}

// Detector runs the poll cycle on a fixed interval.
type Detector struct {
	provider     providers.GameProvider
	persister    Persister
	emitter      Emitter
	states       *GameStates
	logger       *slog.Logger
	metrics      *metrics.Recorder
	interval     time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	ticker   *time.Ticker
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool

	statusMu sync.RWMutex
	status   Status
}

// New constructs a Detector. persister and emitter may be nil.
func New(provider providers.GameProvider, persister Persister, emitter Emitter, opts Options) *Detector {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	return &Detector{
		provider:     provider,
		persister:    persister,
		emitter:      emitter,
		states:       NewGameStates(opts.FinalRetention),
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		interval:     interval,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
	}
}

// Start runs an immediate cycle and then one per interval until ctx is
// cancelled or Stop is called. It fails only when the loop cannot start.
func (d *Detector) Start(ctx context.Context) error {
	if d.provider == nil {
		return ErrNoProvider
	}
	d.startMu.Lock()
	if d.started {
		d.startMu.Unlock()
		return ErrAlreadyStarted
	}
	d.started = true
	d.startMu.Unlock()

	d.ticker = time.NewTicker(d.interval)

	go func() {
		defer close(d.exited)
		logging.Info(d.logger, "detector started", logging.FieldDurationMS, d.interval.Milliseconds())
		d.cycle(ctx)

		for {
			select {
			case <-ctx.Done():
				d.ticker.Stop()
				logging.Info(d.logger, "detector stopped")
				return
			case <-d.done:
				d.ticker.Stop()
				logging.Info(d.logger, "detector stopped")
				return
			case <-d.ticker.C:
				d.cycle(ctx)
			}
		}
	}()
	return nil
}

// Stop halts the timer and waits for an in-progress cycle to finish, bounded by ctx.
func (d *Detector) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		close(d.done)
	})

	d.startMu.Lock()
	started := d.started
	d.startMu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-d.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cycle performs one fetch + diff pass. A failed fetch leaves every game state untouched.
func (d *Detector) cycle(ctx context.Context) {
	start := d.now()
	d.recordAttempt(start)

	fctx, cancel := context.WithTimeout(ctx, d.fetchTimeout)
	snaps, err := d.provider.FetchGames(fctx, "")
	cancel()
	elapsed := d.now().Sub(start)
	d.metrics.RecordPollerCycle(elapsed, err)
	if err != nil {
		logging.Error(d.logger, "detector fetch failed", err, logging.FieldDurationMS, elapsed.Milliseconds())
		d.recordFailure(err, start)
		return
	}

	ordered := make([]games.Snapshot, len(snaps))
	copy(ordered, snaps)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].GameID < ordered[j].GameID })

	now := d.now()
	emitted := 0
	for _, s := range ordered {
		emitted += d.processGame(s, now)
	}

	if removed := d.states.EvictRetired(now); removed > 0 {
		logging.Debug(d.logger, "retired final games", logging.FieldCount, removed)
	}
	d.recordSuccess(start, int64(emitted))
	logging.Debug(d.logger, "detector cycle complete",
		logging.FieldCount, len(ordered),
		"events", emitted,
		logging.FieldDurationMS, d.now().Sub(start).Milliseconds(),
	)
}

// processGame diffs one snapshot and hands it on. A panic is contained to this game.
func (d *Detector) processGame(s games.Snapshot, now time.Time) (emitted int) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error(d.logger, "game processing panicked", fmt.Errorf("%v", r), logging.FieldGameID, s.GameID)
			emitted = 0
		}
	}()

	if problems := s.Anomalies(); len(problems) > 0 {
		logging.Warn(d.logger, "snapshot data anomaly",
			logging.FieldGameID, s.GameID,
			logging.FieldLeague, string(s.League),
			"anomalies", problems,
		)
	}
	if s.GameID == "" {
		return 0
	}
	if s.ObservedAt.IsZero() {
		s.ObservedAt = now
	}

	var prevPtr *games.Snapshot
	if prev, ok := d.states.Get(s.GameID); ok {
		prevPtr = &prev
		if prev.Status == games.StatusLive && s.Status == games.StatusLive && scoreDecreased(prev, s) {
			logging.Warn(d.logger, "score decreased",
				logging.FieldGameID, s.GameID,
				"previous", prev.Score(),
				"current", s.Score(),
			)
		}
	}

	events := Diff(prevPtr, s, now)
	d.states.Put(s.GameID, s, now)

	if d.persister != nil {
		d.persister.Persist(s)
	}
	for _, ev := range events {
		d.metrics.RecordEvent(string(ev.Type))
		logging.Info(d.logger, "game event detected",
			logging.FieldEventType, string(ev.Type),
			logging.FieldGameID, ev.GameID,
			logging.FieldLeague, string(ev.League),
		)
		if d.emitter != nil {
			d.emitter.Dispatch(ev)
		}
	}
	return len(events)
}

func (d *Detector) recordAttempt(at time.Time) {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	d.status.LastAttempt = at
}

func (d *Detector) recordSuccess(at time.Time, emitted int64) {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	d.status.ConsecutiveFailures = 0
	d.status.LastError = ""
	d.status.LastSuccess = at
	d.status.EventsEmitted += emitted
}

func (d *Detector) recordFailure(err error, at time.Time) {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	d.status.ConsecutiveFailures++
	if err != nil {
		d.status.LastError = err.Error()
	}
	d.status.LastAttempt = at
}

// Status returns a snapshot of the detector's recent health.
func (d *Detector) Status() Status {
	d.statusMu.RLock()
	st := d.status
	d.statusMu.RUnlock()
	st.TrackedGames = d.states.Len()
	return st
}

// Games returns the tracked game states.
func (d *Detector) Games() []GameState {
	return d.states.List()
}
