package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldref/league-system/models"
	"github.com/fieldref/league-system/repositories"
)

// maxEventMinute leaves headroom for extra time beyond the regulation
// 90 minutes.
const maxEventMinute = 130

type EventInput struct {
	PlayerID int              `json:"player_id"`
	Kind     models.EventKind `json:"kind"`
	Minute   int              `json:"minute"`
	Note     *string          `json:"note,omitempty"`
}

// EventService is the ledger facade: appends and removals go through
// the assigned referee guard and are only legal while the match is in
// progress; reads are open.
type EventService interface {
	AppendEvent(ctx context.Context, matchID, callerID int, input EventInput) (*models.MatchEvent, error)
	RemoveEvent(ctx context.Context, matchID, eventID, callerID int) error
	ListEvents(ctx context.Context, matchID int) ([]*models.MatchEvent, error)
}

type eventService struct {
	eventRepo   repositories.EventRepository
	matchRepo   repositories.MatchRepository
	playerRepo  repositories.PlayerRepository
	refereeRepo repositories.RefereeRepository
	broadcaster MatchBroadcaster
}

func NewEventService(
	eventRepo repositories.EventRepository,
	matchRepo repositories.MatchRepository,
	playerRepo repositories.PlayerRepository,
	refereeRepo repositories.RefereeRepository,
	broadcaster MatchBroadcaster,
) EventService {
	return &eventService{
		eventRepo:   eventRepo,
		matchRepo:   matchRepo,
		playerRepo:  playerRepo,
		refereeRepo: refereeRepo,
		broadcaster: broadcaster,
	}
}

func (s *eventService) AppendEvent(ctx context.Context, matchID, callerID int, input EventInput) (*models.MatchEvent, error) {
	if !input.Kind.Valid() {
		return nil, ErrInvalidEventKind
	}
	if input.Minute < 0 || input.Minute > maxEventMinute {
		return nil, ErrInvalidMinute
	}

	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAssignedReferee(ctx, match, callerID); err != nil {
		return nil, err
	}

	player, err := s.playerRepo.GetByID(ctx, input.PlayerID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %d: %w", input.PlayerID, err)
	}
	if player.TeamID == nil || (*player.TeamID != match.HomeTeamID && *player.TeamID != match.AwayTeamID) {
		return nil, ErrPlayerNotInMatch
	}

	event := &models.MatchEvent{
		MatchID:  matchID,
		PlayerID: input.PlayerID,
		Kind:     input.Kind,
		Minute:   input.Minute,
		Note:     input.Note,
	}

	// The repository re-checks the in_progress state under the match
	// row lock, so a Finish observed by another caller can never be
	// followed by an accepted append.
	if err := s.eventRepo.Append(ctx, event); err != nil {
		return nil, s.ledgerConflict(ctx, matchID, err)
	}

	s.broadcastScore(ctx, matchID, MessageEventAdded, event)
	return event, nil
}

func (s *eventService) RemoveEvent(ctx context.Context, matchID, eventID, callerID int) error {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if err := s.requireAssignedReferee(ctx, match, callerID); err != nil {
		return err
	}

	if err := s.eventRepo.Remove(ctx, matchID, eventID); err != nil {
		return s.ledgerConflict(ctx, matchID, err)
	}

	s.broadcastScore(ctx, matchID, MessageEventRemoved, map[string]interface{}{
		"match_id": matchID,
		"event_id": eventID,
	})
	return nil
}

func (s *eventService) ListEvents(ctx context.Context, matchID int) ([]*models.MatchEvent, error) {
	if _, err := s.getMatch(ctx, matchID); err != nil {
		return nil, err
	}

	events, err := s.eventRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events for match %d: %w", matchID, err)
	}
	return events, nil
}

func (s *eventService) getMatch(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}
	return match, nil
}

func (s *eventService) requireAssignedReferee(ctx context.Context, match *models.Match, callerID int) error {
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

// ledgerConflict translates a repository error and, for lifecycle
// rejections, attaches the status the match holds now so the caller can
// reconcile without a second read.
func (s *eventService) ledgerConflict(ctx context.Context, matchID int, err error) error {
	translated := translateLedgerError(err)
	if errors.Is(translated, ErrMatchNotInProgress) || errors.Is(translated, ErrMatchFinalized) {
		if match, getErr := s.matchRepo.GetByID(ctx, matchID); getErr == nil {
			return stateConflict(translated, match.Status)
		}
	}
	return translated
}

func translateLedgerError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrEventMatchNotInProgress):
		return ErrMatchNotInProgress
	case errors.Is(err, repositories.ErrEventMatchFinalized):
		return ErrMatchFinalized
	case errors.Is(err, repositories.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repositories.ErrEventPlayerInvalid):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrMatchNotFound):
		return ErrMatchNotFound
	default:
		return fmt.Errorf("ledger operation failed: %w", err)
	}
}

// broadcastScore pushes the ledger change with the recomputed score so
// spectators never have to re-poll after a goal.
func (s *eventService) broadcastScore(ctx context.Context, matchID int, messageType string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	body := map[string]interface{}{"event": payload}
	if match, err := s.matchRepo.GetByID(ctx, matchID); err == nil {
		body["home_score"] = match.HomeScore
		body["away_score"] = match.AwayScore
	}
	s.broadcaster.BroadcastMatch(matchID, messageType, body)
}
