package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldref/league-system/models"
	"github.com/fieldref/league-system/repositories"
)

const (
	invitationTokenLength = 16 // bytes, 32 hex characters on the wire
	invitationDuration    = 7 * 24 * time.Hour
)

var ErrInvitationTokenGeneration = errors.New("failed to generate unique invitation token")

type InvitationService interface {
	// CreatePlayerInvitation mints a single-use player token for the
	// captain's own team.
	CreatePlayerInvitation(ctx context.Context, teamID int, currentUserID int) (*models.Invitation, error)
	// CreateAdminInvitation mints captain or referee tokens; admin only.
	CreateAdminInvitation(ctx context.Context, currentUserID int, role models.InvitationRole) (*models.Invitation, error)
	ListTeamInvitations(ctx context.Context, teamID int, currentUserID int) ([]*models.Invitation, error)
	RevokeInvitation(ctx context.Context, teamID, invitationID int, currentUserID int) error
	// ValidateToken decodes a scanned QR payload and checks the token
	// against storage. Read-only: scanning never consumes.
	ValidateToken(ctx context.Context, rawPayload string) (*models.TokenPreview, error)
	// ResolveToken is ValidateToken without the preview shaping; the
	// registration dispatcher re-validates through it at dispatch time.
	ResolveToken(ctx context.Context, rawPayload string) (*models.Invitation, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type invitationService struct {
	invitationRepo repositories.InvitationRepository
	teamRepo       repositories.TeamRepository
	userRepo       repositories.UserRepository
}

func NewInvitationService(
	invitationRepo repositories.InvitationRepository,
	teamRepo repositories.TeamRepository,
	userRepo repositories.UserRepository,
) InvitationService {
	return &invitationService{
		invitationRepo: invitationRepo,
		teamRepo:       teamRepo,
		userRepo:       userRepo,
	}
}

func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *invitationService) CreatePlayerInvitation(ctx context.Context, teamID int, currentUserID int) (*models.Invitation, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != currentUserID {
		return nil, ErrNotAuthorized
	}

	return s.mint(ctx, models.InvitePlayer, &teamID, currentUserID)
}

func (s *invitationService) CreateAdminInvitation(ctx context.Context, currentUserID int, role models.InvitationRole) (*models.Invitation, error) {
	if role != models.InviteCaptain && role != models.InviteReferee {
		return nil, ErrNotAuthorized
	}

	user, err := s.userRepo.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", currentUserID, err)
	}
	if user.Role != models.RoleAdmin {
		return nil, ErrNotAuthorized
	}

	return s.mint(ctx, role, nil, currentUserID)
}

func (s *invitationService) mint(ctx context.Context, role models.InvitationRole, teamID *int, issuedBy int) (*models.Invitation, error) {
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		token, err := generateSecureToken(invitationTokenLength)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvitationTokenGeneration, err)
		}

		invitation := &models.Invitation{
			Token:      token,
			TargetRole: role,
			TeamID:     teamID,
			IssuedBy:   issuedBy,
			ExpiresAt:  time.Now().Add(invitationDuration),
		}

		err = s.invitationRepo.Create(ctx, invitation)
		if err == nil {
			return invitation, nil
		}
		if errors.Is(err, repositories.ErrInvitationTokenConflict) {
			continue // collision, try a fresh token
		}
		if errors.Is(err, repositories.ErrInvitationTeamInvalid) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrInvitationTokenGeneration, maxAttempts)
}

func (s *invitationService) ListTeamInvitations(ctx context.Context, teamID int, currentUserID int) ([]*models.Invitation, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	if team.CaptainID != currentUserID {
		return nil, ErrNotAuthorized
	}

	invitations, err := s.invitationRepo.ListActiveByTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations for team %d: %w", teamID, err)
	}
	return invitations, nil
}

func (s *invitationService) RevokeInvitation(ctx context.Context, teamID, invitationID int, currentUserID int) error {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	if team.CaptainID != currentUserID {
		return ErrNotAuthorized
	}

	invitation, err := s.invitationRepo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("failed to get invitation %d: %w", invitationID, err)
	}
	if invitation.TeamID == nil || *invitation.TeamID != teamID {
		// Captains only manage their own team's tokens.
		return ErrInvitationNotFound
	}

	if err := s.invitationRepo.Delete(ctx, invitationID); err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			return ErrInvitationNotFound
		}
		return fmt.Errorf("failed to delete invitation %d: %w", invitationID, err)
	}
	return nil
}

func (s *invitationService) ValidateToken(ctx context.Context, rawPayload string) (*models.TokenPreview, error) {
	invitation, err := s.ResolveToken(ctx, rawPayload)
	if err != nil {
		return nil, err
	}

	preview := &models.TokenPreview{
		TargetRole: invitation.TargetRole,
		TeamID:     invitation.TeamID,
		ExpiresAt:  invitation.ExpiresAt,
	}

	if invitation.TeamID != nil {
		team, err := s.teamRepo.GetByID(ctx, *invitation.TeamID)
		if err == nil {
			preview.TeamName = team.Name
		}
		// A missing team only degrades the preview; registration will
		// fail on the foreign key if the team is truly gone.
	}

	return preview, nil
}

// ResolveToken decodes the QR JSON, loads the stored invitation and
// checks its lifecycle. The stored row is authoritative: a payload
// whose declared role or team disagrees with it is treated as
// malformed rather than trusted.
func (s *invitationService) ResolveToken(ctx context.Context, rawPayload string) (*models.Invitation, error) {
	var payload models.QRPayload
	dec := json.NewDecoder(strings.NewReader(rawPayload))
	if err := dec.Decode(&payload); err != nil {
		return nil, ErrTokenMalformed
	}
	if payload.Token == "" {
		return nil, ErrTokenMalformed
	}

	invitation, err := s.invitationRepo.GetByToken(ctx, payload.Token)
	if err != nil {
		if errors.Is(err, repositories.ErrInvitationNotFound) {
			return nil, ErrTokenMalformed
		}
		return nil, fmt.Errorf("failed to get invitation by token: %w", err)
	}

	if payload.Type != "" && payload.Type != invitation.TargetRole {
		return nil, ErrTokenMalformed
	}
	if payload.TeamID != nil && (invitation.TeamID == nil || *payload.TeamID != *invitation.TeamID) {
		return nil, ErrTokenMalformed
	}

	if invitation.Consumed {
		return nil, ErrTokenConsumed
	}
	if invitation.Expired(time.Now()) {
		return nil, ErrTokenExpired
	}

	return invitation, nil
}

func (s *invitationService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.invitationRepo.DeleteExpired(ctx)
}
