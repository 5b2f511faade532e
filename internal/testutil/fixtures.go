package testutil

import (
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// SampleTime anchors fixtures to a fixed instant.
var SampleTime = time.Date(2024, 3, 1, 19, 30, 0, 0, time.UTC)

// SampleSnapshot returns an NBA snapshot with the provided id, status and score.
func SampleSnapshot(id string, status games.Status, home, away int) games.Snapshot {
	return games.Snapshot{
		GameID:        id,
		League:        games.LeagueNBA,
		HomeTeam:      "BOS",
		AwayTeam:      "LAL",
		HomeScore:     home,
		AwayScore:     away,
		Status:        status,
		Period:        1,
		TimeRemaining: "12:00",
		ObservedAt:    SampleTime,
	}
}

// SampleEvent builds a score_changed event moving id from 0-0 to home-away.
func SampleEvent(id string, home, away int) games.Event {
	prev := SampleSnapshot(id, games.StatusLive, 0, 0)
	cur := SampleSnapshot(id, games.StatusLive, home, away)
	return games.NewEvent(games.EventScoreChanged, cur, &prev, SampleTime)
}
