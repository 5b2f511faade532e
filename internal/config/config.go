package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
)

// Config holds runtime configuration for the service.
type Config struct {
	Port          string
	AdminToken    string
	ShutdownGrace Duration
	Detector      DetectorConfig
	Provider      ProviderConfig
	Cache         CacheConfig
	Timeseries    TimeseriesConfig
	Persister     PersisterConfig
	Webhooks      WebhooksConfig
	Metrics       MetricsConfig
}

// DetectorConfig controls the poll loop.
type DetectorConfig struct {
	PollInterval   Duration
	FetchTimeout   Duration
	FinalRetention Duration
	Source         string   // provider or timeseries
	SourceLookback Duration // window queried when Source is timeseries
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		Port:          envOrDefault(envPort, defaultPort),
		AdminToken:    envOrDefault(envAdminToken, ""),
		ShutdownGrace: durationEnvOrDefault(envShutdownGrace, defaultShutdownGrace),
		Detector:      loadDetector(),
		Provider:      loadProvider(),
		Cache:         loadCache(),
		Timeseries:    loadTimeseries(),
		Persister:     loadPersister(),
		Webhooks:      loadWebhooks(),
		Metrics:       loadMetrics(),
	}
}

// LoadDotEnv populates the environment from a .env file when one exists.
// Variables already set in the environment win.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func loadDetector() DetectorConfig {
	source := envOrDefault(envSource, defaultSource)
	if source != SourceProvider && source != SourceTimeseries {
		source = defaultSource
	}
	return DetectorConfig{
		PollInterval:   durationEnvOrDefault(envPollInterval, defaultPollInterval),
		FetchTimeout:   durationEnvOrDefault(envFetchTimeout, defaultFetchTimeout),
		FinalRetention: durationEnvOrDefault(envFinalRetention, defaultFinalRetention),
		Source:         source,
		SourceLookback: durationEnvOrDefault(envSourceLookback, defaultSourceLookback),
	}
}
