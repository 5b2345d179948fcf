package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldref/league-system/models"
	"github.com/fieldref/league-system/repositories"
	"golang.org/x/crypto/bcrypt"
)

// RegistrationInput carries the new-user details entered after a QR
// scan. Role-specific fields are validated per registration path.
type RegistrationInput struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Phone    *string `json:"phone,omitempty"`

	// Captain path.
	TeamName string `json:"team_name,omitempty"`

	// Player path.
	JerseyNumber int    `json:"jersey_number,omitempty"`
	Position     string `json:"position,omitempty"`

	// Referee path.
	LicenseNumber string `json:"license_number,omitempty"`
}

type RegistrationService interface {
	// Register consumes a scanned token exactly once and creates the
	// entity the token's role dictates. The returned user already
	// carries its role binding; the transport layer issues the session.
	Register(ctx context.Context, rawPayload string, role models.InvitationRole, input RegistrationInput) (*models.User, error)
}

type registrationService struct {
	registrationRepo repositories.RegistrationRepository
	invitations      InvitationService
}

func NewRegistrationService(
	registrationRepo repositories.RegistrationRepository,
	invitations InvitationService,
) RegistrationService {
	return &registrationService{
		registrationRepo: registrationRepo,
		invitations:      invitations,
	}
}

func (s *registrationService) Register(ctx context.Context, rawPayload string, role models.InvitationRole, input RegistrationInput) (*models.User, error) {
	// Re-validate at time of use; the preview scan may be minutes old.
	invitation, err := s.invitations.ResolveToken(ctx, rawPayload)
	if err != nil {
		return nil, err
	}
	if role != invitation.TargetRole {
		return nil, ErrTokenMalformed
	}

	if err := validateRegistrationInput(role, invitation, input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: string(hash),
	}

	switch role {
	case models.InviteCaptain:
		user.Role = models.RoleCaptain
		team := &models.Team{Name: input.TeamName}
		err = s.registrationRepo.CreateCaptain(ctx, invitation.ID, user, team)

	case models.InvitePlayer:
		user.Role = models.RolePlayer
		player := &models.Player{
			TeamID:       invitation.TeamID,
			JerseyNumber: input.JerseyNumber,
			Position:     input.Position,
		}
		err = s.registrationRepo.CreatePlayer(ctx, invitation.ID, user, player)

	case models.InviteReferee:
		user.Role = models.RoleReferee
		referee := &models.Referee{LicenseNumber: input.LicenseNumber}
		err = s.registrationRepo.CreateReferee(ctx, invitation.ID, user, referee)

	default:
		return nil, ErrTokenMalformed
	}

	if err != nil {
		return nil, translateRegistrationError(err)
	}

	user.PasswordHash = ""
	return user, nil
}

func validateRegistrationInput(role models.InvitationRole, invitation *models.Invitation, input RegistrationInput) error {
	if input.Name == "" {
		return ErrNameRequired
	}
	if input.Email == "" {
		return ErrEmailRequired
	}
	if len(input.Password) < minPasswordLength {
		return ErrPasswordTooShort
	}

	switch role {
	case models.InviteCaptain:
		if input.TeamName == "" {
			return ErrTeamNameRequired
		}
	case models.InvitePlayer:
		// Player tokens are minted with a team; a stored row without
		// one cannot be dispatched.
		if invitation.TeamID == nil {
			return ErrTokenMalformed
		}
		if input.JerseyNumber <= 0 {
			return ErrInvalidJerseyNumber
		}
	case models.InviteReferee:
		if input.LicenseNumber == "" {
			return ErrLicenseRequired
		}
	}
	return nil
}

func translateRegistrationError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrInvitationAlreadyConsumed):
		// Lost the consumption race to a concurrent Register.
		return ErrTokenConsumed
	case errors.Is(err, repositories.ErrUserEmailConflict):
		return ErrEmailConflict
	case errors.Is(err, repositories.ErrTeamNameConflict):
		return ErrTeamNameConflict
	case errors.Is(err, repositories.ErrPlayerJerseyTaken):
		return ErrJerseyTaken
	case errors.Is(err, repositories.ErrRefereeLicenseConflict):
		return ErrLicenseConflict
	case errors.Is(err, repositories.ErrPlayerTeamInvalid), errors.Is(err, repositories.ErrInvitationTeamInvalid):
		return ErrTeamNotFound
	default:
		return fmt.Errorf("registration failed: %w", err)
	}
}
