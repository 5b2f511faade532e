package server

import (
	"strings"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// providerName labels a league's upstream in metrics, logs and cache keys.
func providerName(raw string, league games.League) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		name = "provider"
	}
	if league == "" {
		return name
	}
	return name + "-" + string(league)
}
