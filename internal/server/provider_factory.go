package server

import (
	"log/slog"

	"github.com/preston-bernstein/game-events-service/internal/cache"
	"github.com/preston-bernstein/game-events-service/internal/config"
	"github.com/preston-bernstein/game-events-service/internal/detector"
	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/logging"
	"github.com/preston-bernstein/game-events-service/internal/metrics"
	"github.com/preston-bernstein/game-events-service/internal/providers"
	"github.com/preston-bernstein/game-events-service/internal/providers/balldontlie"
	"github.com/preston-bernstein/game-events-service/internal/providers/fixture"
	"github.com/preston-bernstein/game-events-service/internal/timeseries"
)

// providerFactory assembles the detector's source with shared wrappers
// (rate limit, circuit breaker, metrics, cache).
type providerFactory struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
}

func newProviderFactory(logger *slog.Logger, metrics *metrics.Recorder) providerFactory {
	return providerFactory{logger: logger, metrics: metrics}
}

// build returns the provider the detector polls. The timeseries source reads
// active games back from gateway; otherwise each configured league gets its
// own guarded upstream and the combined list is cached.
func (f providerFactory) build(cfg config.Config, stateCache *cache.StateCache, gateway timeseries.Gateway) providers.GameProvider {
	leagues := f.leagues(cfg.Provider.Leagues)

	if cfg.Detector.Source == config.SourceTimeseries && gateway != nil {
		source := timeseries.NewActiveGamesProvider(gateway, cfg.Timeseries.Measurement, cfg.Detector.SourceLookback, leagues)
		return providers.NewInstrumentedProvider(source, "timeseries", f.metrics)
	}

	members := make([]providers.LeagueProvider, 0, len(leagues))
	for _, league := range leagues {
		name := providerName(cfg.Provider.Name, league)
		upstream := f.upstream(cfg.Provider, league)
		limited := providers.NewRateLimitedProvider(upstream, cfg.Provider.RequestsPerMinute, f.logger)
		guarded := providers.NewCircuitBreakerProvider(limited, providers.DefaultBreakerConfig(name), f.logger, f.metrics)
		members = append(members, providers.LeagueProvider{
			League:   league,
			Provider: providers.NewInstrumentedProvider(guarded, name, f.metrics),
		})
	}
	combined := providers.NewMultiLeagueProvider(members...)
	if stateCache == nil {
		return combined
	}
	maxAge := cfg.Detector.PollInterval
	if maxAge <= 0 {
		maxAge = detector.DefaultInterval
	}
	return providers.NewCachingProvider(combined, stateCache, providerName(cfg.Provider.Name, ""), maxAge, f.logger)
}

func (f providerFactory) upstream(cfg config.ProviderConfig, league games.League) providers.GameProvider {
	switch cfg.Name {
	case "fixture", "":
		return fixture.New(league)
	case "balldontlie":
		baseURL := cfg.Balldontlie.NBABaseURL
		if league == games.LeagueNFL {
			baseURL = cfg.Balldontlie.NFLBaseURL
		}
		return balldontlie.NewClient(balldontlie.Config{
			League:   league,
			BaseURL:  baseURL,
			APIKey:   cfg.Balldontlie.APIKey,
			Timezone: cfg.Balldontlie.Timezone,
		})
	default:
		logging.Warn(f.logger, "unknown provider, falling back to fixture", "provider", cfg.Name)
		return fixture.New(league)
	}
}

func (f providerFactory) leagues(raw []string) []games.League {
	out := make([]games.League, 0, len(raw))
	seen := make(map[games.League]bool, len(raw))
	for _, r := range raw {
		league, err := games.ParseLeague(r)
		if err != nil {
			logging.Warn(f.logger, "ignoring unknown league", logging.FieldLeague, r)
			continue
		}
		if seen[league] {
			continue
		}
		seen[league] = true
		out = append(out, league)
	}
	if len(out) == 0 {
		out = append(out, games.LeagueNBA)
	}
	return out
}
