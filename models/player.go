package models

import "time"

type Player struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	TeamID       *int      `json:"team_id,omitempty"`
	JerseyNumber int       `json:"jersey_number"`
	Position     string    `json:"position"`
	IsCaptain    bool      `json:"is_captain"`
	JoinedAt     time.Time `json:"joined_at"`
	Active       bool      `json:"active"`

	User *User `json:"user,omitempty"`
	Team *Team `json:"team,omitempty"`
}

// RosterEntry is the flat player view used on the referee's event entry
// screen: enough to pick who a goal or card belongs to.
type RosterEntry struct {
	PlayerID     int    `json:"player_id"`
	JerseyNumber int    `json:"jersey_number"`
	Position     string `json:"position"`
	Name         string `json:"name"`
}

type TeamRoster struct {
	TeamID   int           `json:"team_id"`
	TeamName string        `json:"team_name"`
	Players  []RosterEntry `json:"players"`
}

// MatchRoster carries both sides of a fixture.
type MatchRoster struct {
	Home TeamRoster `json:"home_team"`
	Away TeamRoster `json:"away_team"`
}

type PlayerStats struct {
	PlayerID      int     `json:"player_id"`
	MatchesPlayed int     `json:"matches_played"`
	Goals         int     `json:"goals"`
	Assists       int     `json:"assists"`
	YellowCards   int     `json:"yellow_cards"`
	RedCards      int     `json:"red_cards"`
	GoalsPerMatch float64 `json:"goals_per_match"`
}
