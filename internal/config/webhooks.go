package config

// WebhooksConfig controls subscriber delivery and circuit breaking.
type WebhooksConfig struct {
	File             string
	Timeout          Duration
	MaxAttempts      int
	InitialBackoff   Duration
	MinAttempts      int
	FailureThreshold float64
}

func loadWebhooks() WebhooksConfig {
	return WebhooksConfig{
		File:             envOrDefault(envWebhooksFile, ""),
		Timeout:          durationEnvOrDefault(envWebhookTimeout, defaultWebhookTimeout),
		MaxAttempts:      intEnvOrDefault(envWebhookAttempts, defaultWebhookAttempts),
		InitialBackoff:   durationEnvOrDefault(envWebhookBackoff, defaultWebhookBackoff),
		MinAttempts:      intEnvOrDefault(envWebhookMinSample, defaultWebhookMinSample),
		FailureThreshold: floatEnvOrDefault(envWebhookThreshold, defaultWebhookThreshold),
	}
}
