package config

import "time"

const (
	envPort          = "PORT"
	envAdminToken    = "ADMIN_TOKEN"
	envShutdownGrace = "SHUTDOWN_GRACE"

	envPollInterval   = "POLL_INTERVAL"
	envFetchTimeout   = "FETCH_TIMEOUT"
	envFinalRetention = "FINAL_RETENTION"
	envSource         = "SOURCE"
	envSourceLookback = "SOURCE_LOOKBACK"

	envProvider    = "PROVIDER"
	envLeagues     = "LEAGUES"
	envBdlAPIKey   = "BALLDONTLIE_API_KEY"
	envBdlNBAURL   = "BALLDONTLIE_NBA_BASE_URL"
	envBdlNFLURL   = "BALLDONTLIE_NFL_BASE_URL"
	envBdlTimezone = "BALLDONTLIE_TIMEZONE"
	envUpstreamRPM = "UPSTREAM_RPM"

	envCacheLiveTTL     = "CACHE_TTL_LIVE_GAMES"
	envCacheUpcomingTTL = "CACHE_TTL_UPCOMING_GAMES"
	envCacheTeamTTL     = "CACHE_TTL_TEAM_LIST"
	envCacheStatsTTL    = "CACHE_TTL_SEASON_STATS"
	envNatsURL          = "NATS_URL"
	envNatsBucket       = "NATS_KV_BUCKET"
	envCacheSharedTO    = "CACHE_SHARED_TIMEOUT"

	envDatabaseURL = "DATABASE_URL"
	envMeasurement = "TIMESERIES_MEASUREMENT"

	envPersistWorkers = "PERSIST_WORKERS"
	envPersistQueue   = "PERSIST_QUEUE"
	envPersistTimeout = "PERSIST_TIMEOUT"

	envWebhooksFile     = "WEBHOOKS_FILE"
	envWebhookTimeout   = "WEBHOOK_TIMEOUT"
	envWebhookAttempts  = "WEBHOOK_MAX_ATTEMPTS"
	envWebhookBackoff   = "WEBHOOK_INITIAL_BACKOFF"
	envWebhookMinSample = "WEBHOOK_MIN_ATTEMPTS"
	envWebhookThreshold = "WEBHOOK_FAILURE_THRESHOLD"

	envMetricsPort  = "METRICS_PORT"
	envMetricsOn    = "METRICS_ENABLED"
	envOtelEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envOtelService  = "OTEL_SERVICE_NAME"
	envOtelInsecure = "OTEL_EXPORTER_OTLP_INSECURE"

	defaultPort          = "4000"
	defaultShutdownGrace = 10 * Duration(time.Second)

	// Shorter intervals raise notification freshness and upstream/storage call volume linearly.
	defaultPollInterval   = 15 * Duration(time.Second)
	defaultFetchTimeout   = 10 * Duration(time.Second)
	defaultFinalRetention = 6 * Duration(time.Hour)
	defaultSource         = SourceProvider
	defaultSourceLookback = 6 * Duration(time.Hour)

	defaultProvider    = "fixture"
	defaultBdlNBAURL   = "https://api.balldontlie.io/v1"
	defaultBdlNFLURL   = "https://api.balldontlie.io/nfl/v1"
	defaultBdlTimezone = "America/New_York"
	// balldontlie free tier allows 5 req/min; two leagues per cycle at 15s needs more headroom.
	defaultUpstreamRPM = 60

	defaultCacheLiveTTL     = 10 * Duration(time.Second)
	defaultCacheUpcomingTTL = 60 * Duration(time.Second)
	defaultCacheTeamTTL     = 12 * Duration(time.Hour)
	defaultCacheStatsTTL    = 1 * Duration(time.Hour)
	defaultNatsBucket       = "game-state-cache"
	defaultCacheSharedTO    = 500 * Duration(time.Millisecond)

	defaultMeasurement = "game_snapshots"

	defaultPersistWorkers = 4
	defaultPersistQueue   = 1024
	defaultPersistTimeout = 5 * Duration(time.Second)

	defaultWebhookTimeout   = 5 * Duration(time.Second)
	defaultWebhookAttempts  = 3
	defaultWebhookBackoff   = 1 * Duration(time.Second)
	defaultWebhookMinSample = 10
	defaultWebhookThreshold = 0.5

	defaultMetricsPort = "9090"
	defaultServiceName = "game-events-service"
)

// Detector sources.
const (
	SourceProvider   = "provider"
	SourceTimeseries = "timeseries"
)

var defaultLeagues = []string{"nba", "nfl"}
