package balldontlie

import "time"

const (
	defaultNBABaseURL  = "https://api.balldontlie.io/v1"
	defaultNFLBaseURL  = "https://api.balldontlie.io/nfl/v1"
	defaultPerPage     = 100
	defaultHTTPTimeout = 10 * time.Second
	defaultTimezone    = "America/New_York"
	defaultMaxPages    = 5
	errorBodyLimit     = 512
)
