package server

import "time"

const (
	readTimeout       = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second

	// startupTimeout bounds connecting to Postgres and NATS.
	startupTimeout = 10 * time.Second
)

// shutdownTimeout remains a var for tests to override. A configured
// SHUTDOWN_GRACE takes precedence.
var shutdownTimeout = 10 * time.Second
