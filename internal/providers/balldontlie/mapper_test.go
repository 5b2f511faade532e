package balldontlie

import (
	"testing"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

func TestMapGameTransformsFields(t *testing.T) {
	home, away := 55, 50
	at := time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC)
	resp := gameResponse{
		ID:               42,
		Status:           "Halftime",
		Period:           2,
		HomeTeam:         teamResponse{ID: 10, Abbreviation: "bos"},
		VisitorTeam:      teamResponse{ID: 20, Name: "Knicks"},
		HomeTeamScore:    &home,
		VisitorTeamScore: &away,
	}

	s := mapGame(games.LeagueNBA, resp, at)

	if s.GameID != "balldontlie-nba-42" {
		t.Fatalf("unexpected id %s", s.GameID)
	}
	if s.Status != games.StatusLive {
		t.Fatalf("expected live status, got %s", s.Status)
	}
	if s.HomeScore != 55 || s.AwayScore != 50 {
		t.Fatalf("unexpected scores %+v", s)
	}
	if s.HomeTeam != "BOS" || s.AwayTeam != "Knicks" {
		t.Fatalf("unexpected teams home=%s away=%s", s.HomeTeam, s.AwayTeam)
	}
	if len(s.Anomalies()) != 0 {
		t.Fatalf("expected well formed snapshot, got %v", s.Anomalies())
	}
}

func TestMapGameNullScoresAreZero(t *testing.T) {
	s := mapGame(games.LeagueNFL, gameResponse{ID: 1, Status: "2024-01-14T18:00:00.000Z"}, time.Now())
	if s.HomeScore != 0 || s.AwayScore != 0 || s.Status != games.StatusScheduled {
		t.Fatalf("unexpected mapping %+v", s)
	}
}

func TestMapStatusCoversVariants(t *testing.T) {
	cases := []struct {
		input  string
		period int
		want   games.Status
	}{
		{"Final", 4, games.StatusFinal},
		{"Final/OT", 5, games.StatusFinal},
		{"1st Qtr", 1, games.StatusLive},
		{"3rd Quarter", 3, games.StatusLive},
		{"Halftime", 2, games.StatusLive},
		{"End of 2nd", 2, games.StatusLive},
		{"Postponed", 0, games.StatusScheduled},
		{"2024-01-15T00:30:00Z", 0, games.StatusScheduled},
		{"something new", 2, games.StatusLive},
	}

	for _, c := range cases {
		if got := mapStatus(c.input, c.period); got != c.want {
			t.Fatalf("status %q expected %s, got %s", c.input, c.want, got)
		}
	}
}
