package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldref/league-system/models"
	"github.com/fieldref/league-system/repositories"
)

// MatchBroadcaster pushes live updates to spectators of a match room.
// Implemented by realtime.Hub; a nil-safe no-op is fine in tests.
type MatchBroadcaster interface {
	BroadcastMatch(matchID int, messageType string, payload interface{})
}

// Message types pushed over the live feed.
const (
	MessageMatchStatus  = "MATCH_STATUS"
	MessageEventAdded   = "EVENT_ADDED"
	MessageEventRemoved = "EVENT_REMOVED"
)

type CreateMatchInput struct {
	HomeTeamID  int       `json:"home_team_id"`
	AwayTeamID  int       `json:"away_team_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Venue       string    `json:"venue"`
	RefereeID   *int      `json:"referee_id,omitempty"`
}

type MatchService interface {
	// CreateMatch and AssignReferee are tournament-administration
	// operations; both require the admin role.
	CreateMatch(ctx context.Context, currentUserID int, input CreateMatchInput) (*models.Match, error)
	AssignReferee(ctx context.Context, currentUserID int, matchID, refereeID int) error

	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListRefereeMatches(ctx context.Context, currentUserID int, statusFilter *models.MatchStatus) ([]*models.Match, error)
	ListTeamMatches(ctx context.Context, teamID int, statusFilter *models.MatchStatus) ([]*models.Match, error)

	// Lifecycle transitions. Each is a no-op success when the match is
	// already in the requested state, which absorbs client retries
	// after network timeouts.
	StartMatch(ctx context.Context, matchID, callerID int) (*models.Match, error)
	FinishMatch(ctx context.Context, matchID, callerID int) (*models.Match, error)
	CancelMatch(ctx context.Context, matchID, callerID int) (*models.Match, error)
}

type matchService struct {
	matchRepo   repositories.MatchRepository
	refereeRepo repositories.RefereeRepository
	userRepo    repositories.UserRepository
	teamRepo    repositories.TeamRepository
	broadcaster MatchBroadcaster
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	refereeRepo repositories.RefereeRepository,
	userRepo repositories.UserRepository,
	teamRepo repositories.TeamRepository,
	broadcaster MatchBroadcaster,
) MatchService {
	return &matchService{
		matchRepo:   matchRepo,
		refereeRepo: refereeRepo,
		userRepo:    userRepo,
		teamRepo:    teamRepo,
		broadcaster: broadcaster,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, currentUserID int, input CreateMatchInput) (*models.Match, error) {
	if err := s.requireAdmin(ctx, currentUserID); err != nil {
		return nil, err
	}

	match := &models.Match{
		HomeTeamID:  input.HomeTeamID,
		AwayTeamID:  input.AwayTeamID,
		ScheduledAt: input.ScheduledAt,
		Venue:       input.Venue,
		RefereeID:   input.RefereeID,
		Status:      models.MatchStatusScheduled,
	}

	if err := s.matchRepo.Create(ctx, match); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMatchTeamInvalid):
			return nil, ErrTeamNotFound
		case errors.Is(err, repositories.ErrMatchRefereeInvalid):
			return nil, ErrRefereeNotAvailable
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func (s *matchService) AssignReferee(ctx context.Context, currentUserID int, matchID, refereeID int) error {
	if err := s.requireAdmin(ctx, currentUserID); err != nil {
		return err
	}

	if _, err := s.refereeRepo.GetByID(ctx, refereeID); err != nil {
		if errors.Is(err, repositories.ErrRefereeNotFound) {
			return ErrRefereeNotAvailable
		}
		return fmt.Errorf("failed to get referee %d: %w", refereeID, err)
	}

	err := s.matchRepo.AssignReferee(ctx, matchID, refereeID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			// Either the match does not exist or it already left the
			// scheduled state; the latter is a lifecycle conflict.
			if match, getErr := s.matchRepo.GetByID(ctx, matchID); getErr == nil {
				return stateConflict(ErrInvalidTransition, match.Status)
			}
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to assign referee to match %d: %w", matchID, err)
	}
	return nil
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}
	return match, nil
}

func (s *matchService) ListRefereeMatches(ctx context.Context, currentUserID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	referee, err := s.refereeRepo.GetByUserID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrRefereeNotFound) {
			return nil, ErrRefereeNotAvailable
		}
		return nil, fmt.Errorf("failed to get referee for user %d: %w", currentUserID, err)
	}

	matches, err := s.matchRepo.ListByReferee(ctx, referee.ID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for referee %d: %w", referee.ID, err)
	}
	return matches, nil
}

func (s *matchService) ListTeamMatches(ctx context.Context, teamID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	if _, err := s.teamRepo.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}

	matches, err := s.matchRepo.ListByTeam(ctx, teamID, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for team %d: %w", teamID, err)
	}
	return matches, nil
}

func (s *matchService) StartMatch(ctx context.Context, matchID, callerID int) (*models.Match, error) {
	return s.transition(ctx, matchID, callerID, models.MatchStatusInProgress)
}

func (s *matchService) FinishMatch(ctx context.Context, matchID, callerID int) (*models.Match, error) {
	return s.transition(ctx, matchID, callerID, models.MatchStatusFinished)
}

func (s *matchService) CancelMatch(ctx context.Context, matchID, callerID int) (*models.Match, error) {
	return s.transition(ctx, matchID, callerID, models.MatchStatusCanceled)
}

// transition applies one lifecycle change under the caller guard and a
// compare-and-swap on the stored status. A CAS miss means another
// request moved the match first; the loop re-reads and re-decides, so
// two racing Finish calls both return success while the status changes
// exactly once.
func (s *matchService) transition(ctx context.Context, matchID, callerID int, to models.MatchStatus) (*models.Match, error) {
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		match, err := s.GetMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}

		if err := s.authorizeTransition(ctx, match, callerID, to); err != nil {
			return nil, err
		}

		if match.Status == to {
			// Retried request, already there.
			return match, nil
		}
		if !match.Status.CanTransition(to) {
			return nil, stateConflict(ErrInvalidTransition, match.Status)
		}

		err = s.matchRepo.UpdateStatus(ctx, matchID, match.Status, to)
		if err == nil {
			match.Status = to
			s.broadcast(match)
			return match, nil
		}
		if !errors.Is(err, repositories.ErrMatchStatusConflict) {
			return nil, fmt.Errorf("failed to update match %d status: %w", matchID, err)
		}
	}

	if match, err := s.GetMatch(ctx, matchID); err == nil {
		return nil, stateConflict(ErrInvalidTransition, match.Status)
	}
	return nil, ErrInvalidTransition
}

// authorizeTransition resolves the guard column of the transition
// table: start/finish only by the match's assigned referee, cancel by
// that referee or an admin.
func (s *matchService) authorizeTransition(ctx context.Context, match *models.Match, callerID int, to models.MatchStatus) error {
	if to == models.MatchStatusCanceled {
		user, err := s.userRepo.GetByID(ctx, callerID)
		if err != nil && !errors.Is(err, repositories.ErrUserNotFound) {
			return fmt.Errorf("failed to get user %d: %w", callerID, err)
		}
		if err == nil && user.Role == models.RoleAdmin {
			return nil
		}
	}

	if match.RefereeID == nil {
		return ErrNotAuthorized
	}
	referee, err := s.refereeRepo.GetByUserID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repositories.ErrRefereeNotFound) {
			return ErrNotAuthorized
		}
		return fmt.Errorf("failed to get referee for user %d: %w", callerID, err)
	}
	if referee.ID != *match.RefereeID {
		return ErrNotAuthorized
	}
	return nil
}

func (s *matchService) requireAdmin(ctx context.Context, userID int) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrNotAuthorized
		}
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.Role != models.RoleAdmin {
		return ErrNotAuthorized
	}
	return nil
}

func (s *matchService) broadcast(match *models.Match) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastMatch(match.ID, MessageMatchStatus, map[string]interface{}{
		"match_id":   match.ID,
		"status":     match.Status,
		"home_score": match.HomeScore,
		"away_score": match.AwayScore,
	})
}
