package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fieldref/league-system/models"
	"github.com/lib/pq"
)

var (
	ErrEventNotFound           = errors.New("match event not found")
	ErrEventMatchNotInProgress = errors.New("match is not in progress")
	ErrEventMatchFinalized     = errors.New("match is finalized")
	ErrEventPlayerInvalid      = errors.New("event player conflict or invalid")
)

type EventRepository interface {
	// Append inserts the event with the next per-match event id. The
	// whole unit runs in one transaction holding the match row lock, so
	// a concurrent Finish cannot slip between the status check and the
	// insert. Fills EventID and CreatedAt.
	Append(ctx context.Context, event *models.MatchEvent) error
	// Remove hard-deletes an event while the match is still live.
	Remove(ctx context.Context, matchID, eventID int) error
	// ListByMatch returns events ordered by (minute, event_id).
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error)
	CountByPlayerAndKind(ctx context.Context, playerID int, kind models.EventKind) (int, error)
	CountByRefereeAndKind(ctx context.Context, refereeID int, kind models.EventKind) (int, error)
	CountMatchesWithEventsByPlayer(ctx context.Context, playerID int) (int, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) Append(ctx context.Context, event *models.MatchEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin append transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := lockMatchStatus(ctx, tx, event.MatchID)
	if err != nil {
		return err
	}
	if status != models.MatchStatusInProgress {
		return ErrEventMatchNotInProgress
	}

	query := `
		INSERT INTO match_events (match_id, event_id, player_id, kind, minute, note)
		VALUES ($1,
			(SELECT COALESCE(MAX(event_id), 0) + 1 FROM match_events WHERE match_id = $1),
			$2, $3, $4, $5)
		RETURNING event_id, created_at`

	err = tx.QueryRowContext(ctx, query,
		event.MatchID,
		event.PlayerID,
		event.Kind,
		event.Minute,
		event.Note,
	).Scan(&event.EventID, &event.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23503" && pqErr.Constraint == "match_events_player_id_fkey" {
				return ErrEventPlayerInvalid
			}
		}
		return err
	}

	return tx.Commit()
}

func (r *postgresEventRepository) Remove(ctx context.Context, matchID, eventID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin remove transaction: %w", err)
	}
	defer tx.Rollback()

	status, err := lockMatchStatus(ctx, tx, matchID)
	if err != nil {
		return err
	}
	if status.Terminal() {
		return ErrEventMatchFinalized
	}
	if status != models.MatchStatusInProgress {
		return ErrEventMatchNotInProgress
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM match_events WHERE match_id = $1 AND event_id = $2`,
		matchID, eventID)
	if err != nil {
		return err
	}
	if err := checkAffectedRows(result, ErrEventNotFound); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresEventRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error) {
	query := `
		SELECT event_id, match_id, player_id, kind, minute, note, created_at
		FROM match_events
		WHERE match_id = $1
		ORDER BY minute, event_id`

	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*models.MatchEvent, 0)
	for rows.Next() {
		event := &models.MatchEvent{}
		if scanErr := rows.Scan(
			&event.EventID,
			&event.MatchID,
			&event.PlayerID,
			&event.Kind,
			&event.Minute,
			&event.Note,
			&event.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *postgresEventRepository) CountByPlayerAndKind(ctx context.Context, playerID int, kind models.EventKind) (int, error) {
	query := `SELECT COUNT(*) FROM match_events WHERE player_id = $1 AND kind = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, playerID, kind).Scan(&count)
	return count, err
}

func (r *postgresEventRepository) CountByRefereeAndKind(ctx context.Context, refereeID int, kind models.EventKind) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM match_events e
		JOIN matches m ON m.id = e.match_id
		WHERE m.referee_id = $1 AND e.kind = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, refereeID, kind).Scan(&count)
	return count, err
}

func (r *postgresEventRepository) CountMatchesWithEventsByPlayer(ctx context.Context, playerID int) (int, error) {
	query := `SELECT COUNT(DISTINCT match_id) FROM match_events WHERE player_id = $1`

	var count int
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(&count)
	return count, err
}

func lockMatchStatus(ctx context.Context, exec SQLExecutor, matchID int) (models.MatchStatus, error) {
	var status models.MatchStatus
	err := exec.QueryRowContext(ctx,
		`SELECT status FROM matches WHERE id = $1 FOR UPDATE`, matchID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrMatchNotFound
		}
		return "", err
	}
	return status, nil
}
