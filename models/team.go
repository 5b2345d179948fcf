package models

import "time"

type Team struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CaptainID int       `json:"captain_id"`
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`

	LogoKey *string `json:"-"`
	LogoURL *string `json:"logo_url,omitempty"`

	Captain *User    `json:"captain,omitempty"`
	Players []Player `json:"players,omitempty"`
}
