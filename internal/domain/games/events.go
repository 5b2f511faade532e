package games

import "time"

// EventType names a detected transition.
type EventType string

const (
	EventGameStarted  EventType = "game_started"
	EventScoreChanged EventType = "score_changed"
	EventGameEnded    EventType = "game_ended"
)

// AllEventTypes lists every event the detector can emit.
var AllEventTypes = []EventType{EventGameStarted, EventScoreChanged, EventGameEnded}

// ParseEventType returns the EventType for raw and whether it is known.
func ParseEventType(raw string) (EventType, bool) {
	for _, et := range AllEventTypes {
		if string(et) == raw {
			return et, true
		}
	}
	return "", false
}

// Event is a detected transition for a single game. Previous is nil when the
// game had not been observed before.
type Event struct {
	Type       EventType
	GameID     string
	League     League
	Snapshot   Snapshot
	Previous   *Snapshot
	DetectedAt time.Time
}

// NewEvent builds an Event from the triggering snapshot and its predecessor.
func NewEvent(t EventType, cur Snapshot, prev *Snapshot, at time.Time) Event {
	var p *Snapshot
	if prev != nil {
		cp := *prev
		p = &cp
	}
	return Event{
		Type:       t,
		GameID:     cur.GameID,
		League:     cur.League,
		Snapshot:   cur,
		Previous:   p,
		DetectedAt: at,
	}
}

// ScoreDiff returns the per-side change relative to the previous snapshot.
func (e Event) ScoreDiff() Score {
	if e.Previous == nil {
		return Score{}
	}
	return Score{
		Home: e.Snapshot.HomeScore - e.Previous.HomeScore,
		Away: e.Snapshot.AwayScore - e.Previous.AwayScore,
	}
}

// StatusChanged reports whether the event crossed a status boundary.
func (e Event) StatusChanged() bool {
	return e.Previous != nil && e.Previous.Status != e.Snapshot.Status
}
