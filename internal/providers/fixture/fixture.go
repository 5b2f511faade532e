package fixture

import (
	"context"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/timeutil"
)

// script describes one synthetic game relative to the provider's anchor time.
type script struct {
	id        string
	league    games.League
	home      string
	away      string
	startsIn  time.Duration
	length    time.Duration
	periods   int
	homeEvery time.Duration
	homePts   int
	awayEvery time.Duration
	awayPts   int
}

var defaultScripts = []script{
	{id: "fixture-nba-1", league: games.LeagueNBA, home: "BOS", away: "LAL", startsIn: 30 * time.Second, length: 8 * time.Minute, periods: 4, homeEvery: 40 * time.Second, homePts: 2, awayEvery: 55 * time.Second, awayPts: 3},
	{id: "fixture-nba-2", league: games.LeagueNBA, home: "GSW", away: "MIA", startsIn: 3 * time.Minute, length: 8 * time.Minute, periods: 4, homeEvery: 50 * time.Second, homePts: 3, awayEvery: 35 * time.Second, awayPts: 2},
	{id: "fixture-nfl-1", league: games.LeagueNFL, home: "KC", away: "BUF", startsIn: time.Minute, length: 12 * time.Minute, periods: 4, homeEvery: 150 * time.Second, homePts: 7, awayEvery: 200 * time.Second, awayPts: 3},
}

// Provider serves deterministic games that move scheduled -> live -> final
// as wall time passes. It is the default upstream for local runs.
type Provider struct {
	now     func() time.Time
	anchor  time.Time
	league  games.League
	scripts []script
}

// New creates a fixture provider anchored at the current time. An empty league serves every league.
func New(league games.League) *Provider {
	p := &Provider{now: time.Now, league: league, scripts: defaultScripts}
	p.anchor = p.now()
	return p
}

// NewAt anchors the scripted games at anchor and reads time from now.
func NewAt(league games.League, anchor time.Time, now func() time.Time) *Provider {
	return &Provider{now: now, anchor: anchor, league: league, scripts: defaultScripts}
}

// FetchGames returns every scripted game as it stands right now. date is ignored.
func (p *Provider) FetchGames(ctx context.Context, date string) ([]games.Snapshot, error) {
	_ = date
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := p.now()
	out := make([]games.Snapshot, 0, len(p.scripts))
	for _, s := range p.scripts {
		if p.league != "" && s.league != p.league {
			continue
		}
		out = append(out, s.at(p.anchor, now))
	}
	return out, nil
}

func (s script) at(anchor, now time.Time) games.Snapshot {
	snap := games.Snapshot{
		GameID:     s.id,
		League:     s.league,
		HomeTeam:   s.home,
		AwayTeam:   s.away,
		Status:     games.StatusScheduled,
		ObservedAt: now.UTC(),
	}
	elapsed := now.Sub(anchor.Add(s.startsIn))
	if elapsed < 0 {
		return snap
	}
	if elapsed >= s.length {
		elapsed = s.length
		snap.Status = games.StatusFinal
		snap.Period = s.periods
		snap.TimeRemaining = "0:00"
	} else {
		snap.Status = games.StatusLive
		periodLen := s.length / time.Duration(s.periods)
		snap.Period = int(elapsed/periodLen) + 1
		left := periodLen - elapsed%periodLen
		snap.TimeRemaining = timeutil.FormatClock(left)
	}
	snap.HomeScore = int(elapsed/s.homeEvery) * s.homePts
	snap.AwayScore = int(elapsed/s.awayEvery) * s.awayPts
	return snap
}
