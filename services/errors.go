package services

import (
	"errors"

	"github.com/fieldref/league-system/models"
)

// Shared error taxonomy surfaced by the service layer and mapped to
// HTTP status codes in the handlers package.
var (
	// Authorization: caller lacks the role or relationship the action
	// requires. Never retried automatically.
	ErrNotAuthorized = errors.New("operation not allowed for the current user")

	// State conflicts: the action is illegal in the current lifecycle
	// state. Callers reconcile by re-reading the match.
	ErrInvalidTransition  = errors.New("invalid match status transition")
	ErrMatchNotInProgress = errors.New("match is not in progress")
	ErrMatchFinalized     = errors.New("match is finalized")

	// Token lifecycle: terminal for that token, a new one is needed.
	ErrTokenMalformed = errors.New("invitation token is malformed")
	ErrTokenExpired   = errors.New("invitation token has expired")
	ErrTokenConsumed  = errors.New("invitation token was already used")

	// Validation: caller-correctable input.
	ErrInvalidMinute       = errors.New("event minute is out of range")
	ErrInvalidEventKind    = errors.New("unknown event kind")
	ErrJerseyTaken         = errors.New("jersey number already taken in this team")
	ErrInvalidJerseyNumber = errors.New("jersey number must be positive")
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrTeamNameRequired    = errors.New("team name is required")
	ErrNameRequired        = errors.New("name is required")
	ErrEmailRequired       = errors.New("email is required")
	ErrLicenseRequired     = errors.New("referee license number is required")
	ErrPlayerNotInMatch    = errors.New("player does not belong to either team of the match")
	ErrUnsupportedLogoType = errors.New("unsupported logo content type")

	// Conflicts.
	ErrEmailConflict       = errors.New("email address is already in use")
	ErrTeamNameConflict    = errors.New("team name is already in use")
	ErrLicenseConflict     = errors.New("license number is already in use")
	ErrRefereeNotAssigned  = errors.New("match has no assigned referee")
	ErrRefereeNotAvailable = errors.New("referee profile not found for user")

	// Not found.
	ErrMatchNotFound      = errors.New("match not found")
	ErrEventNotFound      = errors.New("match event not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvitationNotFound = errors.New("invitation not found")

	// Authentication.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// StateConflictError carries the match status observed when a lifecycle
// action was rejected, so the caller can reconcile its view from the
// error body instead of issuing a second read. errors.Is still matches
// the wrapped sentinel.
type StateConflictError struct {
	Err          error
	CurrentState models.MatchStatus
}

func (e *StateConflictError) Error() string { return e.Err.Error() }

func (e *StateConflictError) Unwrap() error { return e.Err }

func stateConflict(err error, current models.MatchStatus) error {
	return &StateConflictError{Err: err, CurrentState: current}
}
