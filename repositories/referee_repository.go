package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fieldref/league-system/models"
	"github.com/lib/pq"
)

var (
	ErrRefereeNotFound        = errors.New("referee not found")
	ErrRefereeLicenseConflict = errors.New("referee license number conflict")
)

type RefereeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, referee *models.Referee) error
	GetByID(ctx context.Context, id int) (*models.Referee, error)
	GetByUserID(ctx context.Context, userID int) (*models.Referee, error)
}

type postgresRefereeRepository struct {
	db *sql.DB
}

func NewPostgresRefereeRepository(db *sql.DB) RefereeRepository {
	return &postgresRefereeRepository{db: db}
}

func (r *postgresRefereeRepository) Create(ctx context.Context, exec SQLExecutor, referee *models.Referee) error {
	query := `
		INSERT INTO referees (user_id, license_number)
		VALUES ($1, $2)
		RETURNING id, registered_at, active`

	err := exec.QueryRowContext(ctx, query,
		referee.UserID,
		referee.LicenseNumber,
	).Scan(&referee.ID, &referee.RegisteredAt, &referee.Active)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "referees_license_number_key" {
				return ErrRefereeLicenseConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresRefereeRepository) GetByID(ctx context.Context, id int) (*models.Referee, error) {
	query := `
		SELECT id, user_id, license_number, registered_at, active
		FROM referees
		WHERE id = $1`

	return r.scanReferee(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresRefereeRepository) GetByUserID(ctx context.Context, userID int) (*models.Referee, error) {
	query := `
		SELECT id, user_id, license_number, registered_at, active
		FROM referees
		WHERE user_id = $1`

	return r.scanReferee(r.db.QueryRowContext(ctx, query, userID))
}

func (r *postgresRefereeRepository) scanReferee(row *sql.Row) (*models.Referee, error) {
	referee := &models.Referee{}
	err := row.Scan(
		&referee.ID,
		&referee.UserID,
		&referee.LicenseNumber,
		&referee.RegisteredAt,
		&referee.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefereeNotFound
		}
		return nil, err
	}
	return referee, nil
}
