package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fieldref/league-system/middleware"
	"github.com/fieldref/league-system/models"
	"github.com/fieldref/league-system/services"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

// stubMatchService lets each test pin the behavior of the one method a
// request exercises.
type stubMatchService struct {
	getMatch    func(ctx context.Context, matchID int) (*models.Match, error)
	startMatch  func(ctx context.Context, matchID, callerID int) (*models.Match, error)
	finishMatch func(ctx context.Context, matchID, callerID int) (*models.Match, error)
}

func (s *stubMatchService) CreateMatch(ctx context.Context, currentUserID int, input services.CreateMatchInput) (*models.Match, error) {
	panic("not stubbed")
}

func (s *stubMatchService) AssignReferee(ctx context.Context, currentUserID int, matchID, refereeID int) error {
	panic("not stubbed")
}

func (s *stubMatchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	return s.getMatch(ctx, matchID)
}

func (s *stubMatchService) ListRefereeMatches(ctx context.Context, currentUserID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	panic("not stubbed")
}

func (s *stubMatchService) ListTeamMatches(ctx context.Context, teamID int, statusFilter *models.MatchStatus) ([]*models.Match, error) {
	panic("not stubbed")
}

func (s *stubMatchService) StartMatch(ctx context.Context, matchID, callerID int) (*models.Match, error) {
	return s.startMatch(ctx, matchID, callerID)
}

func (s *stubMatchService) FinishMatch(ctx context.Context, matchID, callerID int) (*models.Match, error) {
	return s.finishMatch(ctx, matchID, callerID)
}

func (s *stubMatchService) CancelMatch(ctx context.Context, matchID, callerID int) (*models.Match, error) {
	panic("not stubbed")
}

func signTestToken(t *testing.T, userID int, role models.UserRole) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newMatchRouter(stub *stubMatchService) *chi.Mux {
	handler := NewMatchHandler(stub, nil)
	router := chi.NewRouter()
	router.Get("/matches/{matchID}", handler.GetMatch)
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate([]byte(testSecret)))
		r.Use(middleware.RequireRoles(models.RoleReferee))
		r.Post("/matches/{matchID}/start", handler.StartMatch)
	})
	return router
}

func TestGetMatchHandler(t *testing.T) {
	stub := &stubMatchService{
		getMatch: func(ctx context.Context, matchID int) (*models.Match, error) {
			return &models.Match{ID: matchID, Status: models.MatchStatusInProgress, HomeScore: 2, AwayScore: 1}, nil
		},
	}
	router := newMatchRouter(stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/matches/7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Match models.Match `json:"match"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body.Match.ID)
	assert.Equal(t, 2, body.Match.HomeScore)
}

func TestGetMatchHandlerNotFound(t *testing.T) {
	stub := &stubMatchService{
		getMatch: func(ctx context.Context, matchID int) (*models.Match, error) {
			return nil, services.ErrMatchNotFound
		},
	}
	router := newMatchRouter(stub)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/matches/404", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/matches/not-a-number", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartMatchHandlerAuth(t *testing.T) {
	var gotCallerID int
	stub := &stubMatchService{
		startMatch: func(ctx context.Context, matchID, callerID int) (*models.Match, error) {
			gotCallerID = callerID
			return &models.Match{ID: matchID, Status: models.MatchStatusInProgress}, nil
		},
	}
	router := newMatchRouter(stub)

	// No token.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/matches/7/start", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong role.
	req := httptest.NewRequest(http.MethodPost, "/matches/7/start", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, 3, models.RolePlayer))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Assigned referee.
	req = httptest.NewRequest(http.MethodPost, "/matches/7/start", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, 3, models.RoleReferee))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, gotCallerID)
}

func TestStartMatchHandlerConflict(t *testing.T) {
	stub := &stubMatchService{
		startMatch: func(ctx context.Context, matchID, callerID int) (*models.Match, error) {
			return nil, &services.StateConflictError{
				Err:          services.ErrInvalidTransition,
				CurrentState: models.MatchStatusFinished,
			}
		},
	}
	router := newMatchRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/matches/7/start", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, 3, models.RoleReferee))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusConflict, rec.Code)

	// The 409 body names the state the match holds now, so a stale
	// client can reconcile without a second request.
	var body struct {
		Error        string             `json:"error"`
		CurrentState models.MatchStatus `json:"current_state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, services.ErrInvalidTransition.Error(), body.Error)
	assert.Equal(t, models.MatchStatusFinished, body.CurrentState)
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrMatchNotFound, http.StatusNotFound},
		{services.ErrInvalidTransition, http.StatusConflict},
		{services.ErrTokenConsumed, http.StatusConflict},
		{services.ErrTokenExpired, http.StatusGone},
		{services.ErrTokenMalformed, http.StatusUnprocessableEntity},
		{services.ErrJerseyTaken, http.StatusConflict},
		{services.ErrPasswordTooShort, http.StatusUnprocessableEntity},
		{services.ErrNotAuthorized, http.StatusForbidden},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		mapServiceErrorToHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil), c.err)
		assert.Equalf(t, c.want, rec.Code, "error %v", c.err)
		assert.True(t, strings.Contains(rec.Body.String(), "error"))
	}
}
