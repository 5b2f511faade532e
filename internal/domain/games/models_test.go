package games

import (
	"reflect"
	"testing"
	"time"
)

func TestStatusValues(t *testing.T) {
	expected := map[Status]string{
		StatusScheduled: "scheduled",
		StatusLive:      "live",
		StatusFinal:     "final",
	}

	for status, want := range expected {
		if string(status) != want {
			t.Fatalf("expected %q got %q", want, status)
		}
		if !status.Valid() {
			t.Fatalf("expected %q to be valid", status)
		}
	}
	if Status("postponed").Valid() {
		t.Fatalf("expected unknown status to be invalid")
	}
}

func TestSnapshotJSONTags(t *testing.T) {
	type fieldCheck struct {
		name string
		tag  string
	}

	snapType := reflect.TypeOf(Snapshot{})
	fields := []fieldCheck{
		{"GameID", "game_id"},
		{"League", "league"},
		{"HomeTeam", "home_team"},
		{"AwayTeam", "away_team"},
		{"HomeScore", "home_score"},
		{"AwayScore", "away_score"},
		{"Status", "status"},
		{"Period", "period"},
		{"TimeRemaining", "time_remaining"},
		{"ObservedAt", "observed_at"},
	}

	for _, fc := range fields {
		field, ok := snapType.FieldByName(fc.name)
		if !ok {
			t.Fatalf("missing field %s", fc.name)
		}
		if jsonTag := field.Tag.Get("json"); jsonTag != fc.tag {
			t.Fatalf("field %s expected json tag %s, got %s", fc.name, fc.tag, jsonTag)
		}
	}
}

func TestParseLeague(t *testing.T) {
	cases := map[string]League{"nba": LeagueNBA, " NFL ": LeagueNFL}
	for raw, want := range cases {
		got, err := ParseLeague(raw)
		if err != nil || got != want {
			t.Fatalf("ParseLeague(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseLeague("mlb"); err == nil {
		t.Fatalf("expected error for unsupported league")
	}
}

func TestSnapshotAnomalies(t *testing.T) {
	ok := Snapshot{GameID: "g1", HomeTeam: "BOS", AwayTeam: "LAL", Status: StatusLive}
	if got := ok.Anomalies(); len(got) != 0 {
		t.Fatalf("expected no anomalies, got %v", got)
	}

	bad := Snapshot{HomeScore: -1, Status: "weird"}
	if got := bad.Anomalies(); len(got) != 4 {
		t.Fatalf("expected 4 anomalies, got %v", got)
	}
}

func TestEventScoreDiff(t *testing.T) {
	prev := Snapshot{GameID: "g1", HomeScore: 3, AwayScore: 7, Status: StatusLive}
	cur := Snapshot{GameID: "g1", HomeScore: 10, AwayScore: 7, Status: StatusLive}

	evt := NewEvent(EventScoreChanged, cur, &prev, time.Unix(0, 0))
	if diff := evt.ScoreDiff(); diff != (Score{Home: 7, Away: 0}) {
		t.Fatalf("unexpected diff %+v", diff)
	}
	if evt.StatusChanged() {
		t.Fatalf("expected no status change")
	}

	prev.HomeScore = 100
	if evt.Previous.HomeScore != 3 {
		t.Fatalf("expected event to hold its own copy of the previous snapshot")
	}

	first := NewEvent(EventGameStarted, cur, nil, time.Unix(0, 0))
	if diff := first.ScoreDiff(); diff != (Score{}) {
		t.Fatalf("expected zero diff without previous, got %+v", diff)
	}
}

func TestParseEventType(t *testing.T) {
	if et, ok := ParseEventType("game_ended"); !ok || et != EventGameEnded {
		t.Fatalf("expected game_ended, got %q %v", et, ok)
	}
	if _, ok := ParseEventType("touchdown"); ok {
		t.Fatalf("expected unknown event type to be rejected")
	}
}
