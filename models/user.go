package models

import "time"

type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleCaptain UserRole = "captain"
	RolePlayer  UserRole = "player"
	RoleReferee UserRole = "referee"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCaptain, RolePlayer, RoleReferee:
		return true
	}
	return false
}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	Active       bool      `json:"active"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
