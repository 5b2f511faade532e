package providers

import (
	"context"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// GameProvider defines how upstream game data is fetched and normalized.
// The date parameter, when provided, should be a YYYY-MM-DD string indicating which day's games to fetch.
// Providers should interpret an empty date as "today" in their configured timezone.
type GameProvider interface {
	FetchGames(ctx context.Context, date string) ([]games.Snapshot, error)
}

// ProviderFunc adapts a function into a GameProvider.
type ProviderFunc func(ctx context.Context, date string) ([]games.Snapshot, error)

// FetchGames calls f.
func (f ProviderFunc) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	return f(ctx, date)
}
