package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/preston-bernstein/game-events-service/internal/cache"
	"github.com/preston-bernstein/game-events-service/internal/config"
	"github.com/preston-bernstein/game-events-service/internal/detector"
	httpserver "github.com/preston-bernstein/game-events-service/internal/http"
	"github.com/preston-bernstein/game-events-service/internal/http/handlers"
	"github.com/preston-bernstein/game-events-service/internal/logging"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
	"github.com/preston-bernstein/game-events-service/internal/persister"
	"github.com/preston-bernstein/game-events-service/internal/timeseries"
	"github.com/preston-bernstein/game-events-service/internal/webhooks"
)

var (
	metricsSetup = metrics.Setup
	openPostgres = func(ctx context.Context, url string) (postgresGateway, error) {
		return timeseries.OpenPostgres(ctx, url)
	}
	openNATS = func(ctx context.Context, url, bucket string, maxAge config.Duration) (natsStore, error) {
		return cache.OpenNATSStore(ctx, url, bucket, maxAge)
	}
)

type postgresGateway interface {
	timeseries.Gateway
	EnsureSchema(ctx context.Context) error
	Close()
}

type natsStore interface {
	cache.SharedStore
	Close() error
}

// eventDetector is the poll loop the server drives.
type eventDetector interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() detector.Status
}

// drainer is anything that finishes in-flight work before a deadline.
type drainer interface {
	Shutdown(ctx context.Context) error
}

// queue is the persister side the server starts and drains.
type queue interface {
	drainer
	Start(ctx context.Context)
}

type Server struct {
	cfg           config.Config
	logger        *slog.Logger
	metrics       *metrics.Recorder
	registry      *webhooks.Registry
	detector      eventDetector
	dispatcher    drainer
	persister     queue
	httpServer    httpServer
	metricsServer httpServer
	metricsStop   func(context.Context) error
	closers       []func()
}

// New wires every component from cfg. Unreachable optional backends (Postgres,
// NATS, metrics exporters) are logged and replaced by in-process fallbacks.
func New(cfg config.Config, logger *slog.Logger) *Server {
	return newServerWithMetrics(cfg, logger, nil)
}

func newServerWithMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) *Server {
	if logger == nil {
		logger = logging.NewLogger(logging.Config{})
	}
	recorder, metricsSrv, metricsShutdown := buildMetrics(cfg, logger, recorder)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	s := &Server{
		cfg:           cfg,
		logger:        logger,
		metrics:       recorder,
		metricsServer: metricsSrv,
		metricsStop:   metricsShutdown,
	}

	gateway := s.buildGateway(ctx)
	stateCache := s.buildCache(ctx)
	provider := newProviderFactory(logger, recorder).build(cfg, stateCache, gateway)

	p := persister.New(gateway, persister.Options{
		Workers:      cfg.Persister.Workers,
		QueueSize:    cfg.Persister.QueueSize,
		WriteTimeout: cfg.Persister.WriteTimeout,
		Measurement:  cfg.Timeseries.Measurement,
		Logger:       logger,
		Metrics:      recorder,
	})

	registry := webhooks.NewRegistry(webhooks.RegistryOptions{
		Policy: webhooks.CircuitPolicy{
			MinAttempts:      cfg.Webhooks.MinAttempts,
			FailureThreshold: cfg.Webhooks.FailureThreshold,
		},
		Logger:  logger,
		Metrics: recorder,
	})
	dispatcher := webhooks.NewDispatcher(registry, webhooks.DispatcherOptions{
		AttemptTimeout: cfg.Webhooks.Timeout,
		MaxAttempts:    cfg.Webhooks.MaxAttempts,
		InitialBackoff: cfg.Webhooks.InitialBackoff,
		Logger:         logger,
		Metrics:        recorder,
	})

	det := detector.New(provider, p, dispatcher, detector.Options{
		Interval:       cfg.Detector.PollInterval,
		FetchTimeout:   cfg.Detector.FetchTimeout,
		FinalRetention: cfg.Detector.FinalRetention,
		Logger:         logger,
		Metrics:        recorder,
	})

	s.registry = registry
	s.detector = det
	s.dispatcher = dispatcher
	s.persister = p
	s.httpServer = buildHTTPServer(cfg, logger, recorder, det, registry)
	return s
}

func (s *Server) buildGateway(ctx context.Context) timeseries.Gateway {
	if s.cfg.Timeseries.DatabaseURL == "" {
		return timeseries.NewMemoryGateway()
	}
	pg, err := openPostgres(ctx, s.cfg.Timeseries.DatabaseURL)
	if err == nil {
		err = pg.EnsureSchema(ctx)
		if err != nil {
			pg.Close()
		}
	}
	if err != nil {
		logging.Warn(s.logger, "postgres unavailable, keeping history in memory", "error", err)
		return timeseries.NewMemoryGateway()
	}
	s.closers = append(s.closers, pg.Close)
	logging.Info(s.logger, "time-series gateway connected", "backend", "postgres")
	return pg
}

func (s *Server) buildCache(ctx context.Context) *cache.StateCache {
	c := s.cfg.Cache
	opts := cache.Options{
		TTLs: cache.TTLs{
			cache.CategoryLiveGames:     c.LiveGamesTTL,
			cache.CategoryUpcomingGames: c.UpcomingGamesTTL,
			cache.CategoryTeamList:      c.TeamListTTL,
			cache.CategorySeasonStats:   c.SeasonStatsTTL,
		},
		SharedTimeout: c.SharedTimeout,
		Logger:        s.logger,
		Metrics:       s.metrics,
	}
	if c.NatsURL != "" {
		store, err := openNATS(ctx, c.NatsURL, c.NatsBucket, maxTTL(opts.TTLs))
		if err != nil {
			logging.Warn(s.logger, "nats unavailable, caching in process only", "error", err)
		} else {
			opts.Shared = store
			s.closers = append(s.closers, func() {
				if err := store.Close(); err != nil {
					logging.Warn(s.logger, "nats close failed", "error", err)
				}
			})
		}
	}
	return cache.New(opts)
}

func maxTTL(ttls cache.TTLs) config.Duration {
	var longest config.Duration
	for _, d := range ttls {
		if d > longest {
			longest = d
		}
	}
	return longest
}

func buildHTTPServer(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder, det *detector.Detector, registry *webhooks.Registry) httpServer {
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Handler:    handlers.NewHandler(det.Status, det.Games, logger),
		Webhooks:   handlers.NewWebhookHandler(registry, logger),
		AdminToken: cfg.AdminToken,
		Logger:     logger,
		Metrics:    recorder,
	})
	if cfg.AdminToken == "" {
		logging.Warn(logger, "ADMIN_TOKEN not set, webhook registration API disabled")
	}
	return newNetHTTPServer(":"+cfg.Port, router)
}

// Run starts the workers, the subscriptions file watcher, the HTTP servers and
// the detector, then blocks until ctx is cancelled. Only a detector that
// cannot start is fatal.
func (s *Server) Run(ctx context.Context, stop context.CancelFunc) error {
	s.persister.Start(ctx)
	s.loadSubscriptions(ctx)
	s.startMetrics()
	s.startServer(stop)

	if err := s.detector.Start(ctx); err != nil {
		logging.Error(s.logger, "detector failed to start", err)
		s.gracefulShutdown()
		return err
	}

	<-ctx.Done()
	logging.Info(s.logger, "shutdown signal received")

	s.gracefulShutdown()
	return nil
}

func (s *Server) loadSubscriptions(ctx context.Context) {
	path := s.cfg.Webhooks.File
	if path == "" || s.registry == nil {
		return
	}
	if err := webhooks.LoadAndSeed(s.registry, path, s.logger); err != nil {
		logging.Warn(s.logger, "webhook subscriptions file has errors", "path", path, "error", err)
	}
	if err := webhooks.Watch(ctx, s.registry, path, s.logger); err != nil {
		logging.Warn(s.logger, "webhook subscriptions file not watched", "path", path, "error", err)
	}
}

func (s *Server) startServer(stop context.CancelFunc) {
	launchServer("http", s.httpServer, s.logger, func(err error) {
		if stop != nil {
			stop()
		}
	})
}

func (s *Server) startMetrics() {
	if s.metricsServer == nil {
		return
	}
	launchServer("metrics", s.metricsServer, s.logger, nil)
}

// gracefulShutdown stops producers before consumers: the detector first so no
// new events or snapshots arrive, then the dispatcher and persister drain,
// then the listeners and backends close.
func (s *Server) gracefulShutdown() {
	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = shutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := s.detector.Stop(shutdownCtx); err != nil {
		logging.Error(s.logger, "failed to stop detector", err)
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Shutdown(shutdownCtx); err != nil {
			logging.Warn(s.logger, "webhook deliveries cancelled at shutdown", "error", err)
		}
	}
	if s.persister != nil {
		if err := s.persister.Shutdown(shutdownCtx); err != nil {
			logging.Warn(s.logger, "persist queue not fully drained", "error", err)
		}
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error(s.logger, "graceful shutdown failed", err)
	}

	if s.metricsStop != nil {
		if err := s.metricsStop(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics shutdown failed", "error", err)
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Warn(s.logger, "metrics server shutdown failed", "error", err)
		}
	}

	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}

	logging.Info(s.logger, "shutdown complete")
}

func buildMetrics(cfg config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*metrics.Recorder, httpServer, func(context.Context) error) {
	if recorder != nil {
		return recorder, nil, nil
	}

	recCfg := metrics.TelemetryConfig{
		Enabled:      cfg.Metrics.Enabled,
		Port:         cfg.Metrics.Port,
		ServiceName:  cfg.Metrics.ServiceName,
		OtlpEndpoint: cfg.Metrics.OtlpEndpoint,
		OtlpInsecure: cfg.Metrics.OtlpInsecure,
	}

	rec, handler, shutdown, err := metricsSetup(context.Background(), recCfg)
	if err != nil {
		logging.Warn(logger, "metrics setup failed, continuing without telemetry", "error", err)
		return metrics.NewRecorder(), nil, nil
	}

	var metricsSrv httpServer
	if handler != nil && recCfg.Enabled {
		logging.Info(logger, "metrics enabled", "port", recCfg.Port, "otlp", cfg.Metrics.PushesOTLP())
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		metricsSrv = newNetHTTPServer(":"+recCfg.Port, mux)
	}

	return rec, metricsSrv, shutdown
}

func launchServer(name string, srv httpServer, logger *slog.Logger, onError func(error)) {
	go func() {
		logging.Info(logger, "starting "+name+" server", "addr", srv.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Warn(logger, name+" server failed", "error", err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

// Handler exposes the HTTP handler (useful for tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler()
}

