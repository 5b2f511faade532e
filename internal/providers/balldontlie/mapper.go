package balldontlie

import (
	"fmt"
	"strings"
	"time"

	"github.com/preston-bernstein/game-events-service/internal/domain/games"
)

func mapGame(league games.League, g gameResponse, observedAt time.Time) games.Snapshot {
	period := g.Period
	if period == 0 {
		period = g.Quarter
	}
	return games.Snapshot{
		GameID:        fmt.Sprintf("%s-%s-%d", providerName, league, g.ID),
		League:        league,
		HomeTeam:      abbreviation(g.HomeTeam),
		AwayTeam:      abbreviation(g.VisitorTeam),
		HomeScore:     intOrZero(g.HomeTeamScore),
		AwayScore:     intOrZero(g.VisitorTeamScore),
		Status:        mapStatus(g.Status, period),
		Period:        period,
		TimeRemaining: strings.TrimSpace(g.Time),
		ObservedAt:    observedAt,
	}
}

func abbreviation(t teamResponse) string {
	if t.Abbreviation != "" {
		return strings.ToUpper(t.Abbreviation)
	}
	return t.Name
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// mapStatus folds the upstream status strings into the three lifecycle states.
// Scheduled NBA games carry their tip-off time as the status, so anything
// unrecognised with no period played is scheduled.
func mapStatus(status string, period int) games.Status {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == "final", s == "ended", strings.HasPrefix(s, "final/"), strings.HasPrefix(s, "final "):
		return games.StatusFinal
	case s == "in progress", s == "halftime", strings.Contains(s, "qtr"), strings.Contains(s, "quarter"),
		strings.HasPrefix(s, "end of"), strings.Contains(s, "overtime"), s == "ot":
		return games.StatusLive
	case s == "postponed", s == "canceled", s == "cancelled", s == "scheduled":
		return games.StatusScheduled
	case period > 0:
		return games.StatusLive
	default:
		return games.StatusScheduled
	}
}
