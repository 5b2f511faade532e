package providers

import (
	"context"
	"testing"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

type testProvider struct{}

func (t *testProvider) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	_ = ctx
	_ = date
	return nil, nil
}

func TestGameProviderInterfaceImplemented(t *testing.T) {
	var _ GameProvider = (*testProvider)(nil)
	var _ GameProvider = ProviderFunc(nil)
}

func TestProviderFuncDelegates(t *testing.T) {
	var gotDate string
	p := ProviderFunc(func(_ context.Context, date string) ([]games.Snapshot, error) {
		gotDate = date
		return []games.Snapshot{{GameID: "g"}}, nil
	})
	snaps, err := p.FetchGames(context.Background(), "2024-01-01")
	if err != nil || len(snaps) != 1 || gotDate != "2024-01-01" {
		t.Fatalf("unexpected delegation result %v %v %q", snaps, err, gotDate)
	}
}
