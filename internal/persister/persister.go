// Package persister records game snapshots to the time-series store off the caller's path.
package persister

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/logging"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
	"github.com/preston-bernstein/game-events-service/internal/timeseries"
)

var (
	// ErrQueueFull is reported when a snapshot is rejected because every slot is taken.
	ErrQueueFull = errors.New("persist queue full")
	// ErrStopped is reported when a snapshot arrives after Shutdown.
	ErrStopped = errors.New("persister stopped")
)

const (
	defaultWorkers      = 4
	defaultQueueSize    = 1024
	defaultWriteTimeout = 5 * time.Second
)

// Options sizes the pool. Zero values fall back to defaults.
type Options struct {
	Workers      int
	QueueSize    int
	WriteTimeout time.Duration
	Measurement  string
	Logger       *slog.Logger
	Metrics      *metrics.Recorder
}

// Stats are observability counters; nothing branches on them.
type Stats struct {
	Written int64
	Failed  int64
	Dropped int64
	Queued  int
}

// Persister drains a bounded queue of snapshots into a Gateway using a fixed
// worker pool. When the queue is full new snapshots are rejected.
type Persister struct {
	gateway      timeseries.Gateway
	measurement  string
	workers      int
	writeTimeout time.Duration
	logger       *slog.Logger
	metrics      *metrics.Recorder

	queue chan games.Snapshot

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc

	written   atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	abandoned atomic.Int64
}

// New builds a Persister. Call Start to launch the workers.
func New(gateway timeseries.Gateway, opts Options) *Persister {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	measurement := opts.Measurement
	if measurement == "" {
		measurement = timeseries.DefaultMeasurement
	}
	return &Persister{
		gateway:      gateway,
		measurement:  measurement,
		workers:      workers,
		writeTimeout: timeout,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		queue:        make(chan games.Snapshot, size),
	}
}

// Start launches the worker pool. Calling it more than once is a no-op.
func (p *Persister) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.run(workerCtx)
		}()
	}
}

// Persist enqueues s and returns immediately. Write outcomes never reach the caller.
func (p *Persister) Persist(s games.Snapshot) {
	if err := p.submit(s); err != nil {
		p.dropped.Add(1)
		p.metrics.RecordPersist(metrics.OutcomeDropped, 0)
		logging.Warn(p.logger, "snapshot dropped",
			logging.FieldMeasurement, p.measurement,
			logging.FieldGameID, s.GameID,
			logging.FieldTimestamp, s.ObservedAt,
			"reason", err.Error(),
		)
	}
}

func (p *Persister) submit(s games.Snapshot) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrStopped
	}
	select {
	case p.queue <- s:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Persister) run(ctx context.Context) {
	for {
		select {
		case s, ok := <-p.queue:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				p.abandon()
				return
			}
			p.write(ctx, s)
		case <-ctx.Done():
			return
		}
	}
}

// abandon counts a snapshot given up on at shutdown.
func (p *Persister) abandon() {
	p.abandoned.Add(1)
	p.dropped.Add(1)
	p.metrics.RecordPersist(metrics.OutcomeDropped, 0)
}

func (p *Persister) write(ctx context.Context, s games.Snapshot) {
	wctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	start := time.Now()
	err := p.gateway.Write(wctx, timeseries.PointFromSnapshot(p.measurement, s))
	elapsed := time.Since(start)
	if err != nil && ctx.Err() != nil {
		p.abandon()
		logging.Debug(p.logger, "snapshot write cancelled at shutdown",
			logging.FieldMeasurement, p.measurement,
			logging.FieldGameID, s.GameID,
		)
		return
	}
	if err != nil {
		p.failed.Add(1)
		p.metrics.RecordPersist(metrics.OutcomeFailed, elapsed)
		logging.Error(p.logger, "snapshot write failed", err,
			logging.FieldMeasurement, p.measurement,
			logging.FieldGameID, s.GameID,
			logging.FieldTimestamp, s.ObservedAt,
			logging.FieldDurationMS, elapsed.Milliseconds(),
		)
		return
	}
	p.written.Add(1)
	p.metrics.RecordPersist(metrics.OutcomeWritten, elapsed)
}

// Shutdown stops accepting snapshots and waits for queued writes until ctx ends.
// Writes still pending at the deadline are cancelled and counted as dropped.
func (p *Persister) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		for range p.queue {
			p.abandon()
		}
		if left := p.abandoned.Load(); left > 0 {
			logging.Warn(p.logger, "persister shutdown abandoned queued snapshots", logging.FieldCount, left)
		}
		return ctx.Err()
	}
}

// Stats returns a copy of the counters.
func (p *Persister) Stats() Stats {
	return Stats{
		Written: p.written.Load(),
		Failed:  p.failed.Load(),
		Dropped: p.dropped.Load(),
		Queued:  len(p.queue),
	}
}
