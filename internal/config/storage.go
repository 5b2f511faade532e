package config

// CacheConfig sets per-category TTLs and the optional shared tier.
type CacheConfig struct {
	LiveGamesTTL     Duration
	UpcomingGamesTTL Duration
	TeamListTTL      Duration
	SeasonStatsTTL   Duration
	NatsURL          string // empty disables the shared tier
	NatsBucket       string
	SharedTimeout    Duration
}

// TimeseriesConfig selects the time-series backend. An empty DatabaseURL keeps history in memory.
type TimeseriesConfig struct {
	DatabaseURL string
	Measurement string
}

// PersisterConfig sizes the async write pool.
type PersisterConfig struct {
	Workers      int
	QueueSize    int
	WriteTimeout Duration
}

func loadCache() CacheConfig {
	return CacheConfig{
		LiveGamesTTL:     durationEnvOrDefault(envCacheLiveTTL, defaultCacheLiveTTL),
		UpcomingGamesTTL: durationEnvOrDefault(envCacheUpcomingTTL, defaultCacheUpcomingTTL),
		TeamListTTL:      durationEnvOrDefault(envCacheTeamTTL, defaultCacheTeamTTL),
		SeasonStatsTTL:   durationEnvOrDefault(envCacheStatsTTL, defaultCacheStatsTTL),
		NatsURL:          envOrDefault(envNatsURL, ""),
		NatsBucket:       envOrDefault(envNatsBucket, defaultNatsBucket),
		SharedTimeout:    durationEnvOrDefault(envCacheSharedTO, defaultCacheSharedTO),
	}
}

func loadTimeseries() TimeseriesConfig {
	return TimeseriesConfig{
		DatabaseURL: envOrDefault(envDatabaseURL, ""),
		Measurement: envOrDefault(envMeasurement, defaultMeasurement),
	}
}

func loadPersister() PersisterConfig {
	return PersisterConfig{
		Workers:      intEnvOrDefault(envPersistWorkers, defaultPersistWorkers),
		QueueSize:    intEnvOrDefault(envPersistQueue, defaultPersistQueue),
		WriteTimeout: durationEnvOrDefault(envPersistTimeout, defaultPersistTimeout),
	}
}
