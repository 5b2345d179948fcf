package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fieldref/league-system/models"
	"github.com/lib/pq"
)

var (
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationTokenConflict = errors.New("invitation token conflict")
	ErrInvitationTeamInvalid   = errors.New("invitation team conflict or invalid")
	// ErrInvitationAlreadyConsumed is the compare-and-swap miss: the
	// token's consumed flag was already set when Consume ran.
	ErrInvitationAlreadyConsumed = errors.New("invitation already consumed")
)

type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.Invitation) error
	GetByID(ctx context.Context, id int) (*models.Invitation, error)
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	ListActiveByTeam(ctx context.Context, teamID int) ([]*models.Invitation, error)
	Delete(ctx context.Context, id int) error
	DeleteExpired(ctx context.Context) (int64, error)
	// Consume flips consumed false -> true in a single statement. At
	// most one caller ever sees success for a given token; every other
	// concurrent or later attempt gets ErrInvitationAlreadyConsumed.
	Consume(ctx context.Context, exec SQLExecutor, id int, consumedBy int) error
}

type postgresInvitationRepository struct {
	db *sql.DB
}

func NewPostgresInvitationRepository(db *sql.DB) InvitationRepository {
	return &postgresInvitationRepository{db: db}
}

func (r *postgresInvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	query := `
		INSERT INTO invitations (token, target_role, team_id, issued_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, issued_at, consumed`

	err := r.db.QueryRowContext(ctx, query,
		invitation.Token,
		invitation.TargetRole,
		invitation.TeamID,
		invitation.IssuedBy,
		invitation.ExpiresAt,
	).Scan(&invitation.ID, &invitation.IssuedAt, &invitation.Consumed)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "invitations_token_key" {
					return ErrInvitationTokenConflict
				}
			case "23503":
				if pqErr.Constraint == "invitations_team_id_fkey" {
					return ErrInvitationTeamInvalid
				}
			}
		}
		return err
	}
	return nil
}

func (r *postgresInvitationRepository) GetByID(ctx context.Context, id int) (*models.Invitation, error) {
	query := `
		SELECT id, token, target_role, team_id, issued_by, issued_at, expires_at, consumed, consumed_by
		FROM invitations
		WHERE id = $1`

	return r.scanInvitation(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresInvitationRepository) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	query := `
		SELECT id, token, target_role, team_id, issued_by, issued_at, expires_at, consumed, consumed_by
		FROM invitations
		WHERE token = $1`

	return r.scanInvitation(r.db.QueryRowContext(ctx, query, token))
}

func (r *postgresInvitationRepository) scanInvitation(row *sql.Row) (*models.Invitation, error) {
	invitation := &models.Invitation{}
	err := row.Scan(
		&invitation.ID,
		&invitation.Token,
		&invitation.TargetRole,
		&invitation.TeamID,
		&invitation.IssuedBy,
		&invitation.IssuedAt,
		&invitation.ExpiresAt,
		&invitation.Consumed,
		&invitation.ConsumedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return invitation, nil
}

func (r *postgresInvitationRepository) ListActiveByTeam(ctx context.Context, teamID int) ([]*models.Invitation, error) {
	query := `
		SELECT id, token, target_role, team_id, issued_by, issued_at, expires_at, consumed, consumed_by
		FROM invitations
		WHERE team_id = $1 AND NOT consumed AND expires_at > NOW()
		ORDER BY issued_at DESC`

	rows, err := r.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invitations := make([]*models.Invitation, 0)
	for rows.Next() {
		invitation := &models.Invitation{}
		if scanErr := rows.Scan(
			&invitation.ID,
			&invitation.Token,
			&invitation.TargetRole,
			&invitation.TeamID,
			&invitation.IssuedBy,
			&invitation.IssuedAt,
			&invitation.ExpiresAt,
			&invitation.Consumed,
			&invitation.ConsumedBy,
		); scanErr != nil {
			return nil, scanErr
		}
		invitations = append(invitations, invitation)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *postgresInvitationRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInvitationNotFound)
}

func (r *postgresInvitationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM invitations WHERE expires_at <= NOW() AND NOT consumed`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresInvitationRepository) Consume(ctx context.Context, exec SQLExecutor, id int, consumedBy int) error {
	query := `
		UPDATE invitations
		SET consumed = TRUE, consumed_by = $2
		WHERE id = $1 AND NOT consumed`

	result, err := exec.ExecContext(ctx, query, id, consumedBy)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrInvitationAlreadyConsumed)
}
