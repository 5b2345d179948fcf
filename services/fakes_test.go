package services

import (
	"context"
	"sort"
	"time"

	"github.com/fieldref/league-system/models"
	"github.com/fieldref/league-system/repositories"
)

// In-memory repository fakes. They mirror the sentinel contracts of
// the postgres implementations closely enough for service-level tests.

type fakeUserRepo struct {
	users  map[int]*models.User
	nextID int

	// getErr fails every GetByID, as if the store were unreachable.
	getErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]*models.User), nextID: 1}
}

func (r *fakeUserRepo) add(user *models.User) *models.User {
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepo) Create(ctx context.Context, exec repositories.SQLExecutor, user *models.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.CreatedAt = time.Now()
	user.Active = true
	r.add(user)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	user, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	stored, ok := r.users[user.ID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	for id, existing := range r.users {
		if id != user.ID && existing.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.Phone = user.Phone
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(ctx context.Context, id int, hash string) error {
	user, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	user.PasswordHash = hash
	return nil
}

type fakeTeamRepo struct {
	teams  map[int]*models.Team
	nextID int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[int]*models.Team), nextID: 1}
}

func (r *fakeTeamRepo) add(team *models.Team) *models.Team {
	team.ID = r.nextID
	r.nextID++
	r.teams[team.ID] = team
	return team
}

func (r *fakeTeamRepo) Create(ctx context.Context, exec repositories.SQLExecutor, team *models.Team) error {
	for _, existing := range r.teams {
		if existing.Name == team.Name {
			return repositories.ErrTeamNameConflict
		}
	}
	team.CreatedAt = time.Now()
	team.Active = true
	r.add(team)
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) UpdateLogoKey(ctx context.Context, id int, logoKey *string) error {
	team, ok := r.teams[id]
	if !ok {
		return repositories.ErrTeamNotFound
	}
	team.LogoKey = logoKey
	return nil
}

type fakePlayerRepo struct {
	players map[int]*models.Player
	nextID  int
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{players: make(map[int]*models.Player), nextID: 1}
}

func (r *fakePlayerRepo) add(player *models.Player) *models.Player {
	player.ID = r.nextID
	r.nextID++
	r.players[player.ID] = player
	return player
}

func (r *fakePlayerRepo) Create(ctx context.Context, exec repositories.SQLExecutor, player *models.Player) error {
	for _, existing := range r.players {
		if existing.UserID == player.UserID {
			return repositories.ErrPlayerUserConflict
		}
		if player.TeamID != nil && existing.TeamID != nil &&
			*existing.TeamID == *player.TeamID && existing.JerseyNumber == player.JerseyNumber {
			return repositories.ErrPlayerJerseyTaken
		}
	}
	player.JoinedAt = time.Now()
	player.Active = true
	r.add(player)
	return nil
}

func (r *fakePlayerRepo) GetByID(ctx context.Context, id int) (*models.Player, error) {
	player, ok := r.players[id]
	if !ok {
		return nil, repositories.ErrPlayerNotFound
	}
	copied := *player
	return &copied, nil
}

func (r *fakePlayerRepo) GetByUserID(ctx context.Context, userID int) (*models.Player, error) {
	for _, player := range r.players {
		if player.UserID == userID {
			copied := *player
			return &copied, nil
		}
	}
	return nil, repositories.ErrPlayerNotFound
}

func (r *fakePlayerRepo) ListByTeam(ctx context.Context, teamID int) ([]models.RosterEntry, error) {
	var entries []models.RosterEntry
	for _, player := range r.players {
		if player.TeamID != nil && *player.TeamID == teamID {
			entries = append(entries, models.RosterEntry{
				PlayerID:     player.ID,
				JerseyNumber: player.JerseyNumber,
				Position:     player.Position,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].JerseyNumber < entries[j].JerseyNumber
	})
	return entries, nil
}

type fakeRefereeRepo struct {
	referees map[int]*models.Referee
	nextID   int
}

func newFakeRefereeRepo() *fakeRefereeRepo {
	return &fakeRefereeRepo{referees: make(map[int]*models.Referee), nextID: 1}
}

func (r *fakeRefereeRepo) add(referee *models.Referee) *models.Referee {
	referee.ID = r.nextID
	r.nextID++
	r.referees[referee.ID] = referee
	return referee
}

func (r *fakeRefereeRepo) Create(ctx context.Context, exec repositories.SQLExecutor, referee *models.Referee) error {
	for _, existing := range r.referees {
		if existing.LicenseNumber == referee.LicenseNumber {
			return repositories.ErrRefereeLicenseConflict
		}
	}
	referee.RegisteredAt = time.Now()
	referee.Active = true
	r.add(referee)
	return nil
}

func (r *fakeRefereeRepo) GetByID(ctx context.Context, id int) (*models.Referee, error) {
	referee, ok := r.referees[id]
	if !ok {
		return nil, repositories.ErrRefereeNotFound
	}
	copied := *referee
	return &copied, nil
}

func (r *fakeRefereeRepo) GetByUserID(ctx context.Context, userID int) (*models.Referee, error) {
	for _, referee := range r.referees {
		if referee.UserID == userID {
			copied := *referee
			return &copied, nil
		}
	}
	return nil, repositories.ErrRefereeNotFound
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int

	// Wired by newFakeEventRepo so that reads derive scores from the
	// ledger the same way the SQL subqueries do. Nil when a test has
	// no ledger; scores then stay zero.
	events  *fakeEventRepo
	players *fakePlayerRepo

	// statusConflictOnce makes the next UpdateStatus lose the CAS and
	// land the match in conflictWinner, as if a racing caller won.
	statusConflictOnce bool
	conflictWinner     models.MatchStatus
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) add(match *models.Match) *models.Match {
	match.ID = r.nextID
	r.nextID++
	r.matches[match.ID] = match
	return match
}

func (r *fakeMatchRepo) Create(ctx context.Context, match *models.Match) error {
	match.CreatedAt = time.Now()
	r.add(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *match
	r.deriveScores(&copied)
	return &copied, nil
}

// deriveScores folds goal events into the score columns, mirroring the
// subqueries the postgres repository selects with.
func (r *fakeMatchRepo) deriveScores(match *models.Match) {
	if r.events == nil || r.players == nil {
		return
	}
	match.HomeScore, match.AwayScore = 0, 0
	for _, event := range r.events.events[match.ID] {
		if event.Kind != models.EventGoal {
			continue
		}
		player, ok := r.players.players[event.PlayerID]
		if !ok || player.TeamID == nil {
			continue
		}
		switch *player.TeamID {
		case match.HomeTeamID:
			match.HomeScore++
		case match.AwayTeamID:
			match.AwayScore++
		}
	}
}

func (r *fakeMatchRepo) ListByReferee(ctx context.Context, refereeID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var matches []*models.Match
	for _, match := range r.matches {
		if match.RefereeID == nil || *match.RefereeID != refereeID {
			continue
		}
		if statusFilter != nil && match.Status != *statusFilter {
			continue
		}
		copied := *match
		r.deriveScores(&copied)
		matches = append(matches, &copied)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *fakeMatchRepo) ListByTeam(ctx context.Context, teamID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	var matches []*models.Match
	for _, match := range r.matches {
		if match.HomeTeamID != teamID && match.AwayTeamID != teamID {
			continue
		}
		if statusFilter != nil && match.Status != *statusFilter {
			continue
		}
		copied := *match
		r.deriveScores(&copied)
		matches = append(matches, &copied)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (r *fakeMatchRepo) UpdateStatus(ctx context.Context, id int, from, to models.MatchStatus) error {
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if r.statusConflictOnce {
		r.statusConflictOnce = false
		match.Status = r.conflictWinner
		return repositories.ErrMatchStatusConflict
	}
	if match.Status != from {
		return repositories.ErrMatchStatusConflict
	}
	match.Status = to
	return nil
}

func (r *fakeMatchRepo) AssignReferee(ctx context.Context, id int, refereeID int) error {
	match, ok := r.matches[id]
	if !ok || match.Status != models.MatchStatusScheduled {
		return repositories.ErrMatchNotFound
	}
	match.RefereeID = &refereeID
	return nil
}

func (r *fakeMatchRepo) CountFinishedByReferee(ctx context.Context, refereeID int) (int, error) {
	count := 0
	for _, match := range r.matches {
		if match.Status == models.MatchStatusFinished &&
			match.RefereeID != nil && *match.RefereeID == refereeID {
			count++
		}
	}
	return count, nil
}

type fakeEventRepo struct {
	matchRepo *fakeMatchRepo
	events    map[int][]*models.MatchEvent // keyed by match id
}

func newFakeEventRepo(matchRepo *fakeMatchRepo, playerRepo *fakePlayerRepo) *fakeEventRepo {
	repo := &fakeEventRepo{
		matchRepo: matchRepo,
		events:    make(map[int][]*models.MatchEvent),
	}
	matchRepo.events = repo
	matchRepo.players = playerRepo
	return repo
}

func (r *fakeEventRepo) Append(ctx context.Context, event *models.MatchEvent) error {
	match, ok := r.matchRepo.matches[event.MatchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if match.Status != models.MatchStatusInProgress {
		return repositories.ErrEventMatchNotInProgress
	}

	maxID := 0
	for _, existing := range r.events[event.MatchID] {
		if existing.EventID > maxID {
			maxID = existing.EventID
		}
	}
	event.EventID = maxID + 1
	event.CreatedAt = time.Now()
	r.events[event.MatchID] = append(r.events[event.MatchID], event)
	return nil
}

func (r *fakeEventRepo) Remove(ctx context.Context, matchID, eventID int) error {
	match, ok := r.matchRepo.matches[matchID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if match.Status.Terminal() {
		return repositories.ErrEventMatchFinalized
	}
	if match.Status != models.MatchStatusInProgress {
		return repositories.ErrEventMatchNotInProgress
	}

	events := r.events[matchID]
	for i, event := range events {
		if event.EventID == eventID {
			r.events[matchID] = append(events[:i], events[i+1:]...)
			return nil
		}
	}
	return repositories.ErrEventNotFound
}

func (r *fakeEventRepo) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchEvent, error) {
	events := append([]*models.MatchEvent(nil), r.events[matchID]...)
	sort.Slice(events, func(i, j int) bool {
		if events[i].Minute != events[j].Minute {
			return events[i].Minute < events[j].Minute
		}
		return events[i].EventID < events[j].EventID
	})
	return events, nil
}

func (r *fakeEventRepo) CountByPlayerAndKind(ctx context.Context, playerID int, kind models.EventKind) (int, error) {
	count := 0
	for _, events := range r.events {
		for _, event := range events {
			if event.PlayerID == playerID && event.Kind == kind {
				count++
			}
		}
	}
	return count, nil
}

func (r *fakeEventRepo) CountByRefereeAndKind(ctx context.Context, refereeID int, kind models.EventKind) (int, error) {
	count := 0
	for matchID, events := range r.events {
		match, ok := r.matchRepo.matches[matchID]
		if !ok || match.RefereeID == nil || *match.RefereeID != refereeID {
			continue
		}
		for _, event := range events {
			if event.Kind == kind {
				count++
			}
		}
	}
	return count, nil
}

func (r *fakeEventRepo) CountMatchesWithEventsByPlayer(ctx context.Context, playerID int) (int, error) {
	count := 0
	for _, events := range r.events {
		for _, event := range events {
			if event.PlayerID == playerID {
				count++
				break
			}
		}
	}
	return count, nil
}

type fakeInvitationRepo struct {
	invitations map[int]*models.Invitation
	nextID      int
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{invitations: make(map[int]*models.Invitation), nextID: 1}
}

func (r *fakeInvitationRepo) add(invitation *models.Invitation) *models.Invitation {
	invitation.ID = r.nextID
	r.nextID++
	r.invitations[invitation.ID] = invitation
	return invitation
}

func (r *fakeInvitationRepo) Create(ctx context.Context, invitation *models.Invitation) error {
	for _, existing := range r.invitations {
		if existing.Token == invitation.Token {
			return repositories.ErrInvitationTokenConflict
		}
	}
	invitation.IssuedAt = time.Now()
	r.add(invitation)
	return nil
}

func (r *fakeInvitationRepo) GetByID(ctx context.Context, id int) (*models.Invitation, error) {
	invitation, ok := r.invitations[id]
	if !ok {
		return nil, repositories.ErrInvitationNotFound
	}
	copied := *invitation
	return &copied, nil
}

func (r *fakeInvitationRepo) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	for _, invitation := range r.invitations {
		if invitation.Token == token {
			copied := *invitation
			return &copied, nil
		}
	}
	return nil, repositories.ErrInvitationNotFound
}

func (r *fakeInvitationRepo) ListActiveByTeam(ctx context.Context, teamID int) ([]*models.Invitation, error) {
	now := time.Now()
	var invitations []*models.Invitation
	for _, invitation := range r.invitations {
		if invitation.TeamID == nil || *invitation.TeamID != teamID {
			continue
		}
		if invitation.Consumed || invitation.Expired(now) {
			continue
		}
		copied := *invitation
		invitations = append(invitations, &copied)
	}
	sort.Slice(invitations, func(i, j int) bool { return invitations[i].ID < invitations[j].ID })
	return invitations, nil
}

func (r *fakeInvitationRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.invitations[id]; !ok {
		return repositories.ErrInvitationNotFound
	}
	delete(r.invitations, id)
	return nil
}

func (r *fakeInvitationRepo) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	var removed int64
	for id, invitation := range r.invitations {
		if !invitation.Consumed && invitation.Expired(now) {
			delete(r.invitations, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeInvitationRepo) Consume(ctx context.Context, exec repositories.SQLExecutor, id int, consumedBy int) error {
	invitation, ok := r.invitations[id]
	if !ok || invitation.Consumed {
		return repositories.ErrInvitationAlreadyConsumed
	}
	invitation.Consumed = true
	invitation.ConsumedBy = &consumedBy
	return nil
}

// fakeRegistrationRepo composes the entity fakes the way the postgres
// implementation composes repositories in one transaction. Rollback is
// not simulated; tests assert on the first error instead.
type fakeRegistrationRepo struct {
	users       *fakeUserRepo
	teams       *fakeTeamRepo
	players     *fakePlayerRepo
	referees    *fakeRefereeRepo
	invitations *fakeInvitationRepo
}

func (r *fakeRegistrationRepo) CreateCaptain(ctx context.Context, invitationID int, user *models.User, team *models.Team) error {
	if err := r.users.Create(ctx, nil, user); err != nil {
		return err
	}
	team.CaptainID = user.ID
	if err := r.teams.Create(ctx, nil, team); err != nil {
		return err
	}
	return r.invitations.Consume(ctx, nil, invitationID, user.ID)
}

func (r *fakeRegistrationRepo) CreatePlayer(ctx context.Context, invitationID int, user *models.User, player *models.Player) error {
	if err := r.users.Create(ctx, nil, user); err != nil {
		return err
	}
	player.UserID = user.ID
	if err := r.players.Create(ctx, nil, player); err != nil {
		return err
	}
	return r.invitations.Consume(ctx, nil, invitationID, user.ID)
}

func (r *fakeRegistrationRepo) CreateReferee(ctx context.Context, invitationID int, user *models.User, referee *models.Referee) error {
	if err := r.users.Create(ctx, nil, user); err != nil {
		return err
	}
	referee.UserID = user.ID
	if err := r.referees.Create(ctx, nil, referee); err != nil {
		return err
	}
	return r.invitations.Consume(ctx, nil, invitationID, user.ID)
}

type broadcastCall struct {
	matchID     int
	messageType string
	payload     interface{}
}

type fakeBroadcaster struct {
	calls []broadcastCall
}

func (b *fakeBroadcaster) BroadcastMatch(matchID int, messageType string, payload interface{}) {
	b.calls = append(b.calls, broadcastCall{matchID: matchID, messageType: messageType, payload: payload})
}
