package providers

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// LeagueProvider pairs a league with the provider serving it.
type LeagueProvider struct {
	League   games.League
	Provider GameProvider
}

type multiLeagueProvider struct {
	leagues []LeagueProvider
}

// NewMultiLeagueProvider fetches every league concurrently. Any league failure
// fails the whole call so the detector never diffs a partial view.
func NewMultiLeagueProvider(leagues ...LeagueProvider) GameProvider {
	return &multiLeagueProvider{leagues: leagues}
}

func (p *multiLeagueProvider) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	if len(p.leagues) == 0 {
		return nil, ErrProviderUnavailable
	}
	results := make([][]games.Snapshot, len(p.leagues))

	g, gctx := errgroup.WithContext(ctx)
	for i, lp := range p.leagues {
		g.Go(func() error {
			snaps, err := lp.Provider.FetchGames(gctx, date)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", lp.League, err)
			}
			for j := range snaps {
				if snaps[j].League == "" {
					snaps[j].League = lp.League
				}
			}
			results[i] = snaps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]games.Snapshot, 0)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
