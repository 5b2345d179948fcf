package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldref/league-system/models"
	"github.com/fieldref/league-system/repositories"
	"golang.org/x/sync/errgroup"
)

type StatsService interface {
	RefereeStats(ctx context.Context, currentUserID int) (*models.RefereeStats, error)
	PlayerStats(ctx context.Context, playerID int) (*models.PlayerStats, error)
	// MatchRoster returns both team sheets for the referee's event
	// entry screen.
	MatchRoster(ctx context.Context, matchID int) (*models.MatchRoster, error)
}

type statsService struct {
	matchRepo   repositories.MatchRepository
	eventRepo   repositories.EventRepository
	playerRepo  repositories.PlayerRepository
	refereeRepo repositories.RefereeRepository
	teamRepo    repositories.TeamRepository
}

func NewStatsService(
	matchRepo repositories.MatchRepository,
	eventRepo repositories.EventRepository,
	playerRepo repositories.PlayerRepository,
	refereeRepo repositories.RefereeRepository,
	teamRepo repositories.TeamRepository,
) StatsService {
	return &statsService{
		matchRepo:   matchRepo,
		eventRepo:   eventRepo,
		playerRepo:  playerRepo,
		refereeRepo: refereeRepo,
		teamRepo:    teamRepo,
	}
}

func (s *statsService) RefereeStats(ctx context.Context, currentUserID int) (*models.RefereeStats, error) {
	referee, err := s.refereeRepo.GetByUserID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrRefereeNotFound) {
			return nil, ErrRefereeNotAvailable
		}
		return nil, fmt.Errorf("failed to get referee for user %d: %w", currentUserID, err)
	}

	stats := &models.RefereeStats{RefereeID: referee.ID}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.MatchesOfficiated, err = s.matchRepo.CountFinishedByReferee(gCtx, referee.ID)
		return err
	})
	g.Go(func() error {
		var err error
		stats.YellowCardsIssued, err = s.eventRepo.CountByRefereeAndKind(gCtx, referee.ID, models.EventYellowCard)
		return err
	})
	g.Go(func() error {
		var err error
		stats.RedCardsIssued, err = s.eventRepo.CountByRefereeAndKind(gCtx, referee.ID, models.EventRedCard)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate referee %d stats: %w", referee.ID, err)
	}

	if stats.MatchesOfficiated > 0 {
		stats.CardsPerMatch = float64(stats.YellowCardsIssued+stats.RedCardsIssued) / float64(stats.MatchesOfficiated)
	}
	return stats, nil
}

func (s *statsService) PlayerStats(ctx context.Context, playerID int) (*models.PlayerStats, error) {
	if _, err := s.playerRepo.GetByID(ctx, playerID); err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %d: %w", playerID, err)
	}

	stats := &models.PlayerStats{PlayerID: playerID}

	g, gCtx := errgroup.WithContext(ctx)
	counts := []struct {
		kind models.EventKind
		dst  *int
	}{
		{models.EventGoal, &stats.Goals},
		{models.EventAssist, &stats.Assists},
		{models.EventYellowCard, &stats.YellowCards},
		{models.EventRedCard, &stats.RedCards},
	}
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := s.eventRepo.CountByPlayerAndKind(gCtx, playerID, c.kind)
			*c.dst = n
			return err
		})
	}
	g.Go(func() error {
		var err error
		stats.MatchesPlayed, err = s.eventRepo.CountMatchesWithEventsByPlayer(gCtx, playerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate player %d stats: %w", playerID, err)
	}

	if stats.MatchesPlayed > 0 {
		stats.GoalsPerMatch = float64(stats.Goals) / float64(stats.MatchesPlayed)
	}
	return stats, nil
}

func (s *statsService) MatchRoster(ctx context.Context, matchID int) (*models.MatchRoster, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match %d: %w", matchID, err)
	}

	roster := &models.MatchRoster{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		side, err := s.teamSheet(gCtx, match.HomeTeamID)
		if err == nil {
			roster.Home = *side
		}
		return err
	})
	g.Go(func() error {
		side, err := s.teamSheet(gCtx, match.AwayTeamID)
		if err == nil {
			roster.Away = *side
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load roster for match %d: %w", matchID, err)
	}
	return roster, nil
}

func (s *statsService) teamSheet(ctx context.Context, teamID int) (*models.TeamRoster, error) {
	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	players, err := s.playerRepo.ListByTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return &models.TeamRoster{
		TeamID:   team.ID,
		TeamName: team.Name,
		Players:  players,
	}, nil
}
