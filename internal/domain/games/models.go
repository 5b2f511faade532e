package games

import (
	"fmt"
	"strings"
	"time"
)

// League identifies which upstream competition a game belongs to.
type League string

const (
	LeagueNBA League = "nba"
	LeagueNFL League = "nfl"
)

// ParseLeague normalizes a league name. Unknown leagues return an error.
func ParseLeague(raw string) (League, error) {
	switch League(strings.ToLower(strings.TrimSpace(raw))) {
	case LeagueNBA:
		return LeagueNBA, nil
	case LeagueNFL:
		return LeagueNFL, nil
	default:
		return "", fmt.Errorf("unknown league %q", raw)
	}
}

// Status mirrors the lifecycle of a game as seen by the detector.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinal     Status = "final"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusLive, StatusFinal:
		return true
	}
	return false
}

// Score captures home and away points.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Snapshot is a single observation of a game. Snapshots are values; a newer
// observation produces a new Snapshot rather than mutating an old one.
type Snapshot struct {
	GameID        string    `json:"game_id"`
	League        League    `json:"league"`
	HomeTeam      string    `json:"home_team"`
	AwayTeam      string    `json:"away_team"`
	HomeScore     int       `json:"home_score"`
	AwayScore     int       `json:"away_score"`
	Status        Status    `json:"status"`
	Period        int       `json:"period"`
	TimeRemaining string    `json:"time_remaining"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Score returns the snapshot's score pair.
func (s Snapshot) Score() Score {
	return Score{Home: s.HomeScore, Away: s.AwayScore}
}

// ScoreEquals reports whether both snapshots carry the same score.
func (s Snapshot) ScoreEquals(other Snapshot) bool {
	return s.HomeScore == other.HomeScore && s.AwayScore == other.AwayScore
}

// Anomalies lists data-quality problems with the snapshot. An empty result
// means the snapshot is well formed. Callers log these; they never reject.
func (s Snapshot) Anomalies() []string {
	var out []string
	if strings.TrimSpace(s.GameID) == "" {
		out = append(out, "missing game id")
	}
	if s.HomeTeam == "" || s.AwayTeam == "" {
		out = append(out, "missing team abbreviation")
	}
	if s.HomeScore < 0 || s.AwayScore < 0 {
		out = append(out, "negative score")
	}
	if !s.Status.Valid() {
		out = append(out, fmt.Sprintf("unknown status %q", s.Status))
	}
	if s.Period < 0 {
		out = append(out, "negative period")
	}
	return out
}
