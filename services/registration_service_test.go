package services

import (
	"context"
	"testing"

	"github.com/fieldref/league-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type registrationFixture struct {
	users       *fakeUserRepo
	teams       *fakeTeamRepo
	players     *fakePlayerRepo
	referees    *fakeRefereeRepo
	invitations *fakeInvitationRepo
	service     RegistrationService

	admin   *models.User
	captain *models.User
	team    *models.Team
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()

	f := &registrationFixture{
		users:       newFakeUserRepo(),
		teams:       newFakeTeamRepo(),
		players:     newFakePlayerRepo(),
		referees:    newFakeRefereeRepo(),
		invitations: newFakeInvitationRepo(),
	}

	invitationService := NewInvitationService(f.invitations, f.teams, f.users)
	registrationRepo := &fakeRegistrationRepo{
		users:       f.users,
		teams:       f.teams,
		players:     f.players,
		referees:    f.referees,
		invitations: f.invitations,
	}
	f.service = NewRegistrationService(registrationRepo, invitationService)

	f.admin = f.users.add(&models.User{Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin})
	f.captain = f.users.add(&models.User{Name: "Cap", Email: "cap@example.com", Role: models.RoleCaptain})
	f.team = f.teams.add(&models.Team{Name: "Rovers", CaptainID: f.captain.ID})
	return f
}

func (f *registrationFixture) mintPlayerToken(t *testing.T) string {
	t.Helper()
	invitationService := NewInvitationService(f.invitations, f.teams, f.users)
	invitation, err := invitationService.CreatePlayerInvitation(context.Background(), f.team.ID, f.captain.ID)
	require.NoError(t, err)
	return marshalPayload(t, invitation.QRPayload())
}

func (f *registrationFixture) mintAdminToken(t *testing.T, role models.InvitationRole) string {
	t.Helper()
	invitationService := NewInvitationService(f.invitations, f.teams, f.users)
	invitation, err := invitationService.CreateAdminInvitation(context.Background(), f.admin.ID, role)
	require.NoError(t, err)
	return marshalPayload(t, invitation.QRPayload())
}

func playerInput() RegistrationInput {
	return RegistrationInput{
		Name:         "New Player",
		Email:        "player@example.com",
		Password:     "longenough",
		JerseyNumber: 10,
		Position:     "forward",
	}
}

func TestRegisterPlayer(t *testing.T) {
	f := newRegistrationFixture(t)
	payload := f.mintPlayerToken(t)

	user, err := f.service.Register(context.Background(), payload, models.InvitePlayer, playerInput())
	require.NoError(t, err)

	assert.Equal(t, models.RolePlayer, user.Role)
	assert.Empty(t, user.PasswordHash)

	player, err := f.players.GetByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, player.TeamID)
	assert.Equal(t, f.team.ID, *player.TeamID)
	assert.Equal(t, 10, player.JerseyNumber)
}

func TestRegisterConsumesTokenExactlyOnce(t *testing.T) {
	f := newRegistrationFixture(t)
	payload := f.mintPlayerToken(t)

	_, err := f.service.Register(context.Background(), payload, models.InvitePlayer, playerInput())
	require.NoError(t, err)

	second := playerInput()
	second.Email = "second@example.com"
	second.JerseyNumber = 11
	_, err = f.service.Register(context.Background(), payload, models.InvitePlayer, second)
	assert.ErrorIs(t, err, ErrTokenConsumed)
}

func TestRegisterCaptainCreatesTeam(t *testing.T) {
	f := newRegistrationFixture(t)
	payload := f.mintAdminToken(t, models.InviteCaptain)

	input := RegistrationInput{
		Name:     "New Captain",
		Email:    "newcap@example.com",
		Password: "longenough",
		TeamName: "Wanderers",
	}
	user, err := f.service.Register(context.Background(), payload, models.InviteCaptain, input)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCaptain, user.Role)

	var created *models.Team
	for _, team := range f.teams.teams {
		if team.Name == "Wanderers" {
			created = team
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, user.ID, created.CaptainID)
}

func TestRegisterReferee(t *testing.T) {
	f := newRegistrationFixture(t)
	payload := f.mintAdminToken(t, models.InviteReferee)

	input := RegistrationInput{
		Name:          "New Ref",
		Email:         "newref@example.com",
		Password:      "longenough",
		LicenseNumber: "L-500",
	}
	user, err := f.service.Register(context.Background(), payload, models.InviteReferee, input)
	require.NoError(t, err)
	assert.Equal(t, models.RoleReferee, user.Role)

	referee, err := f.referees.GetByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "L-500", referee.LicenseNumber)
}

func TestRegisterRoleMustMatchToken(t *testing.T) {
	f := newRegistrationFixture(t)
	payload := f.mintPlayerToken(t)

	input := playerInput()
	input.LicenseNumber = "L-1"
	_, err := f.service.Register(context.Background(), payload, models.InviteReferee, input)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestRegisterValidation(t *testing.T) {
	f := newRegistrationFixture(t)

	cases := []struct {
		name    string
		mutate  func(*RegistrationInput)
		wantErr error
	}{
		{"missing name", func(in *RegistrationInput) { in.Name = "" }, ErrNameRequired},
		{"missing email", func(in *RegistrationInput) { in.Email = "" }, ErrEmailRequired},
		{"short password", func(in *RegistrationInput) { in.Password = "short" }, ErrPasswordTooShort},
		{"zero jersey", func(in *RegistrationInput) { in.JerseyNumber = 0 }, ErrInvalidJerseyNumber},
		{"negative jersey", func(in *RegistrationInput) { in.JerseyNumber = -4 }, ErrInvalidJerseyNumber},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			payload := f.mintPlayerToken(t)
			input := playerInput()
			c.mutate(&input)
			_, err := f.service.Register(context.Background(), payload, models.InvitePlayer, input)
			assert.ErrorIs(t, err, c.wantErr)
		})
	}
}

func TestRegisterJerseyConflict(t *testing.T) {
	f := newRegistrationFixture(t)

	first := f.mintPlayerToken(t)
	_, err := f.service.Register(context.Background(), first, models.InvitePlayer, playerInput())
	require.NoError(t, err)

	second := f.mintPlayerToken(t)
	input := playerInput()
	input.Email = "another@example.com"
	_, err = f.service.Register(context.Background(), second, models.InvitePlayer, input)
	assert.ErrorIs(t, err, ErrJerseyTaken)
}

func TestRegisterEmailConflict(t *testing.T) {
	f := newRegistrationFixture(t)
	payload := f.mintPlayerToken(t)

	input := playerInput()
	input.Email = f.captain.Email
	_, err := f.service.Register(context.Background(), payload, models.InvitePlayer, input)
	assert.ErrorIs(t, err, ErrEmailConflict)
}

func TestRegisterCaptainTeamNameConflict(t *testing.T) {
	f := newRegistrationFixture(t)
	payload := f.mintAdminToken(t, models.InviteCaptain)

	input := RegistrationInput{
		Name:     "New Captain",
		Email:    "newcap@example.com",
		Password: "longenough",
		TeamName: "Rovers", // already taken
	}
	_, err := f.service.Register(context.Background(), payload, models.InviteCaptain, input)
	assert.ErrorIs(t, err, ErrTeamNameConflict)
}
