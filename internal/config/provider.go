package config

// ProviderConfig controls which upstream feeds the detector.
type ProviderConfig struct {
	Name              string
	Leagues           []string
	RequestsPerMinute int
	Balldontlie       BalldontlieConfig
}

// BalldontlieConfig controls how we talk to the balldontlie API.
type BalldontlieConfig struct {
	NBABaseURL string
	NFLBaseURL string
	APIKey     string
	Timezone   string
}

func loadProvider() ProviderConfig {
	return ProviderConfig{
		Name:              envOrDefault(envProvider, defaultProvider),
		Leagues:           listEnvOrDefault(envLeagues, defaultLeagues),
		RequestsPerMinute: intEnvOrDefault(envUpstreamRPM, defaultUpstreamRPM),
		Balldontlie: BalldontlieConfig{
			NBABaseURL: envOrDefault(envBdlNBAURL, defaultBdlNBAURL),
			NFLBaseURL: envOrDefault(envBdlNFLURL, defaultBdlNFLURL),
			APIKey:     envOrDefault(envBdlAPIKey, ""),
			Timezone:   envOrDefault(envBdlTimezone, defaultBdlTimezone),
		},
	}
}
