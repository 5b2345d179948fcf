package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "scheduled"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusFinished   MatchStatus = "finished"
	MatchStatusCanceled   MatchStatus = "canceled"
)

func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusScheduled, MatchStatusInProgress, MatchStatusFinished, MatchStatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is legal from s.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusFinished || s == MatchStatusCanceled
}

// CanTransition is the full lifecycle table:
// scheduled -> in_progress -> finished, with canceled reachable from
// either non-terminal state. Everything else is illegal.
func (s MatchStatus) CanTransition(to MatchStatus) bool {
	switch s {
	case MatchStatusScheduled:
		return to == MatchStatusInProgress || to == MatchStatusCanceled
	case MatchStatusInProgress:
		return to == MatchStatusFinished || to == MatchStatusCanceled
	default:
		return false
	}
}

type Match struct {
	ID          int         `json:"id"`
	HomeTeamID  int         `json:"home_team_id"`
	AwayTeamID  int         `json:"away_team_id"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	Venue       string      `json:"venue"`
	RefereeID   *int        `json:"referee_id,omitempty"`
	Status      MatchStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`

	// Derived from the event ledger on read; never stored.
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`

	HomeTeam *Team    `json:"home_team,omitempty"`
	AwayTeam *Team    `json:"away_team,omitempty"`
	Referee  *Referee `json:"referee,omitempty"`
}
