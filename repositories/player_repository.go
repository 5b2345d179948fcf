package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fieldref/league-system/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound     = errors.New("player not found")
	ErrPlayerJerseyTaken  = errors.New("jersey number already taken in team")
	ErrPlayerUserConflict = errors.New("user already has a player profile")
	ErrPlayerTeamInvalid  = errors.New("player team conflict or invalid")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByUserID(ctx context.Context, userID int) (*models.Player, error)
	// ListByTeam returns roster entries joined with user names, ordered
	// by jersey number.
	ListByTeam(ctx context.Context, teamID int) ([]models.RosterEntry, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	query := `
		INSERT INTO players (user_id, team_id, jersey_number, position, is_captain)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, joined_at, active`

	err := exec.QueryRowContext(ctx, query,
		player.UserID,
		player.TeamID,
		player.JerseyNumber,
		player.Position,
		player.IsCaptain,
	).Scan(&player.ID, &player.JoinedAt, &player.Active)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				switch pqErr.Constraint {
				case "players_team_id_jersey_number_key":
					return ErrPlayerJerseyTaken
				case "players_user_id_key":
					return ErrPlayerUserConflict
				}
			case "23503": // foreign_key_violation
				if pqErr.Constraint == "players_team_id_fkey" {
					return ErrPlayerTeamInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `
		SELECT id, user_id, team_id, jersey_number, position, is_captain, joined_at, active
		FROM players
		WHERE id = $1`

	return r.scanPlayer(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetByUserID(ctx context.Context, userID int) (*models.Player, error) {
	query := `
		SELECT id, user_id, team_id, jersey_number, position, is_captain, joined_at, active
		FROM players
		WHERE user_id = $1`

	return r.scanPlayer(r.db.QueryRowContext(ctx, query, userID))
}

func (r *postgresPlayerRepository) ListByTeam(ctx context.Context, teamID int) ([]models.RosterEntry, error) {
	query := `
		SELECT p.id, p.jersey_number, p.position, u.name
		FROM players p
		JOIN users u ON u.id = p.user_id
		WHERE p.team_id = $1 AND p.active
		ORDER BY p.jersey_number`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.RosterEntry, 0)
	for rows.Next() {
		var e models.RosterEntry
		if scanErr := rows.Scan(&e.PlayerID, &e.JerseyNumber, &e.Position, &e.Name); scanErr != nil {
			return nil, scanErr
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *postgresPlayerRepository) scanPlayer(row *sql.Row) (*models.Player, error) {
	player := &models.Player{}
	err := row.Scan(
		&player.ID,
		&player.UserID,
		&player.TeamID,
		&player.JerseyNumber,
		&player.Position,
		&player.IsCaptain,
		&player.JoinedAt,
		&player.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}
