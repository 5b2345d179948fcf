package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fieldref/league-system/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchStatusConflict = errors.New("match status changed concurrently")
	ErrMatchTeamInvalid    = errors.New("match team conflict or invalid")
	ErrMatchRefereeInvalid = errors.New("match referee conflict or invalid")
)

// matchColumns selects a match row with both scores derived from goal
// events on the fly. The ledger stays the single source of truth for
// score; matches has no score columns to drift out of sync.
const matchColumns = `
	m.id, m.home_team_id, m.away_team_id, m.scheduled_at, m.venue,
	m.referee_id, m.status, m.created_at,
	(SELECT COUNT(*) FROM match_events e JOIN players p ON p.id = e.player_id
	 WHERE e.match_id = m.id AND e.kind = 'goal' AND p.team_id = m.home_team_id) AS home_score,
	(SELECT COUNT(*) FROM match_events e JOIN players p ON p.id = e.player_id
	 WHERE e.match_id = m.id AND e.kind = 'goal' AND p.team_id = m.away_team_id) AS away_score`

type MatchRepository interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByReferee(ctx context.Context, refereeID int, statusFilter *models.MatchStatus) ([]*models.Match, error)
	ListByTeam(ctx context.Context, teamID int, statusFilter *models.MatchStatus) ([]*models.Match, error)
	// UpdateStatus performs a compare-and-swap on the status column.
	// Zero affected rows means the stored status no longer matches
	// `from`; callers reconcile by re-reading.
	UpdateStatus(ctx context.Context, id int, from, to models.MatchStatus) error
	AssignReferee(ctx context.Context, id int, refereeID int) error
	CountFinishedByReferee(ctx context.Context, refereeID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (home_team_id, away_team_id, scheduled_at, venue, referee_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		match.HomeTeamID,
		match.AwayTeamID,
		match.ScheduledAt,
		match.Venue,
		match.RefereeID,
		match.Status,
	).Scan(&match.ID, &match.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "matches_home_team_id_fkey", "matches_away_team_id_fkey":
				return ErrMatchTeamInvalid
			case "matches_referee_id_fkey":
				return ErrMatchRefereeInvalid
			}
		}
		return err
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches m
		WHERE m.id = $1`

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByReferee(ctx context.Context, refereeID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches m
		WHERE m.referee_id = $1`
	args := []interface{}{refereeID}

	if statusFilter != nil {
		query += ` AND m.status = $2`
		args = append(args, *statusFilter)
	}
	query += ` ORDER BY m.scheduled_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListByTeam(ctx context.Context, teamID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	query := `SELECT` + matchColumns + `
		FROM matches m
		WHERE (m.home_team_id = $1 OR m.away_team_id = $1)`
	args := []interface{}{teamID}

	if statusFilter != nil {
		query += ` AND m.status = $2`
		args = append(args, *statusFilter)
	}
	query += ` ORDER BY m.scheduled_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		match, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, match)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) UpdateStatus(ctx context.Context, id int, from, to models.MatchStatus) error {
	query := `UPDATE matches SET status = $3 WHERE id = $1 AND status = $2`

	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchStatusConflict)
}

func (r *postgresMatchRepository) AssignReferee(ctx context.Context, id int, refereeID int) error {
	query := `UPDATE matches SET referee_id = $2 WHERE id = $1 AND status = $3`

	result, err := r.db.ExecContext(ctx, query, id, refereeID, models.MatchStatusScheduled)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrMatchRefereeInvalid
		}
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountFinishedByReferee(ctx context.Context, refereeID int) (int, error) {
	query := `SELECT COUNT(*) FROM matches WHERE referee_id = $1 AND status = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, refereeID, models.MatchStatusFinished).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.HomeTeamID,
		&match.AwayTeamID,
		&match.ScheduledAt,
		&match.Venue,
		&match.RefereeID,
		&match.Status,
		&match.CreatedAt,
		&match.HomeScore,
		&match.AwayScore,
	)
	if err != nil {
		return nil, err
	}
	return match, nil
}
