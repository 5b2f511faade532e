package webhooks

import (
	"github.com/goccy/go-json"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
	"github.com/preston-bernstein/game-events-service/internal/timeutil"
)

// Payload builds the JSON object delivered for ev. Maps encode with sorted
// keys, so the same event always serializes to the same bytes.
func Payload(ev games.Event) map[string]any {
	s := ev.Snapshot
	body := map[string]any{
		"event":          string(ev.Type),
		"game_id":        ev.GameID,
		"league":         string(ev.League),
		"home_team":      s.HomeTeam,
		"away_team":      s.AwayTeam,
		"score":          map[string]int{"home": s.HomeScore, "away": s.AwayScore},
		"status":         string(s.Status),
		"period":         s.Period,
		"time_remaining": s.TimeRemaining,
		"timestamp":      timeutil.FormatTimestamp(ev.DetectedAt),
	}
	if ev.Previous != nil {
		switch ev.Type {
		case games.EventScoreChanged, games.EventGameEnded:
			diff := ev.ScoreDiff()
			body["score_diff"] = map[string]int{"home": diff.Home, "away": diff.Away}
		}
		if ev.StatusChanged() {
			body["previous_status"] = string(ev.Previous.Status)
		}
	}
	return body
}

// EncodePayload serializes the payload for ev.
func EncodePayload(ev games.Event) ([]byte, error) {
	return json.Marshal(Payload(ev))
}
