package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fieldref/league-system/models"
)

// RegistrationRepository is the one place accounts come into existence.
// Each method runs a single transaction covering account creation and
// token consumption, so a token is either consumed together with a
// visible account or not at all.
type RegistrationRepository interface {
	CreateCaptain(ctx context.Context, invitationID int, user *models.User, team *models.Team) error
	CreatePlayer(ctx context.Context, invitationID int, user *models.User, player *models.Player) error
	CreateReferee(ctx context.Context, invitationID int, user *models.User, referee *models.Referee) error
}

type postgresRegistrationRepository struct {
	db          *sql.DB
	users       UserRepository
	teams       TeamRepository
	players     PlayerRepository
	referees    RefereeRepository
	invitations InvitationRepository
}

func NewPostgresRegistrationRepository(
	db *sql.DB,
	users UserRepository,
	teams TeamRepository,
	players PlayerRepository,
	referees RefereeRepository,
	invitations InvitationRepository,
) RegistrationRepository {
	return &postgresRegistrationRepository{
		db:          db,
		users:       users,
		teams:       teams,
		players:     players,
		referees:    referees,
		invitations: invitations,
	}
}

func (r *postgresRegistrationRepository) CreateCaptain(ctx context.Context, invitationID int, user *models.User, team *models.Team) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.users.Create(ctx, tx, user); err != nil {
			return err
		}
		team.CaptainID = user.ID
		if err := r.teams.Create(ctx, tx, team); err != nil {
			return err
		}
		return r.invitations.Consume(ctx, tx, invitationID, user.ID)
	})
}

func (r *postgresRegistrationRepository) CreatePlayer(ctx context.Context, invitationID int, user *models.User, player *models.Player) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.users.Create(ctx, tx, user); err != nil {
			return err
		}
		player.UserID = user.ID
		player.IsCaptain = false
		if err := r.players.Create(ctx, tx, player); err != nil {
			return err
		}
		return r.invitations.Consume(ctx, tx, invitationID, user.ID)
	})
}

func (r *postgresRegistrationRepository) CreateReferee(ctx context.Context, invitationID int, user *models.User, referee *models.Referee) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.users.Create(ctx, tx, user); err != nil {
			return err
		}
		referee.UserID = user.ID
		if err := r.referees.Create(ctx, tx, referee); err != nil {
			return err
		}
		return r.invitations.Consume(ctx, tx, invitationID, user.ID)
	})
}

func (r *postgresRegistrationRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin registration transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
