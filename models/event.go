package models

import "time"

type EventKind string

const (
	EventGoal       EventKind = "goal"
	EventAssist     EventKind = "assist"
	EventYellowCard EventKind = "yellow_card"
	EventRedCard    EventKind = "red_card"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventGoal, EventAssist, EventYellowCard, EventRedCard:
		return true
	}
	return false
}

// MatchEvent is one row of a match's ledger. EventID is assigned on
// append and is monotonically increasing within its match; rows are
// never updated, only appended or hard-deleted while the match is live.
type MatchEvent struct {
	EventID   int       `json:"event_id"`
	MatchID   int       `json:"match_id"`
	PlayerID  int       `json:"player_id"`
	Kind      EventKind `json:"kind"`
	Minute    int       `json:"minute"`
	Note      *string   `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Player *Player `json:"player,omitempty"`
}
