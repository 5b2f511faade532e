package detector

import (
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

// Diff compares cur against the previous snapshot of the same game and
// returns the events the transition warrants. It has no side effects.
//
// A game first seen live emits game_started; first seen in any other status
// emits nothing. A status change into live emits game_started, into final
// emits game_ended. Otherwise a live game whose score moved emits
// score_changed. A final snapshot that also moved the score emits only
// game_ended; the event carries both snapshots so the last score change is
// visible in its payload.
func Diff(prev *games.Snapshot, cur games.Snapshot, now time.Time) []games.Event {
	if prev == nil {
		if cur.Status == games.StatusLive {
			return []games.Event{games.NewEvent(games.EventGameStarted, cur, nil, now)}
		}
		return nil
	}

	if prev.Status != cur.Status {
		switch cur.Status {
		case games.StatusLive:
			return []games.Event{games.NewEvent(games.EventGameStarted, cur, prev, now)}
		case games.StatusFinal:
			return []games.Event{games.NewEvent(games.EventGameEnded, cur, prev, now)}
		default:
			return nil
		}
	}

	if cur.Status == games.StatusLive && !cur.ScoreEquals(*prev) {
		return []games.Event{games.NewEvent(games.EventScoreChanged, cur, prev, now)}
	}
	return nil
}

// scoreDecreased flags a data anomaly: a side's score went down.
func scoreDecreased(prev games.Snapshot, cur games.Snapshot) bool {
	return cur.HomeScore < prev.HomeScore || cur.AwayScore < prev.AwayScore
}
