package models

import "time"

type Referee struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	LicenseNumber string    `json:"license_number"`
	RegisteredAt  time.Time `json:"registered_at"`
	Active        bool      `json:"active"`

	User *User `json:"user,omitempty"`
}

type RefereeStats struct {
	RefereeID         int     `json:"referee_id"`
	MatchesOfficiated int     `json:"matches_officiated"`
	YellowCardsIssued int     `json:"yellow_cards_issued"`
	RedCardsIssued    int     `json:"red_cards_issued"`
	CardsPerMatch     float64 `json:"cards_per_match"`
}
