package config

// MetricsConfig controls telemetry export. The Prometheus scrape endpoint is
// served on Port; OTLP push is enabled only when OtlpEndpoint is set.
type MetricsConfig struct {
	Enabled      bool
	Port         string
	OtlpEndpoint string
	ServiceName  string
	OtlpInsecure bool
}

// PushesOTLP reports whether metrics are also pushed to an OTLP collector.
func (m MetricsConfig) PushesOTLP() bool {
	return m.Enabled && m.OtlpEndpoint != ""
}

func loadMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:      boolEnvOrDefault(envMetricsOn, true),
		Port:         envOrDefault(envMetricsPort, defaultMetricsPort),
		OtlpEndpoint: envOrDefault(envOtelEndpoint, ""),
		ServiceName:  envOrDefault(envOtelService, defaultServiceName),
		OtlpInsecure: boolEnvOrDefault(envOtelInsecure, true),
	}
}
