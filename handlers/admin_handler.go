package handlers

import (
	"errors"
	"net/http"

	"github.com/fieldref/league-system/middleware"
	"github.com/fieldref/league-system/models"
	"github.com/fieldref/league-system/services"
)

// AdminHandler groups the tournament-administration surface: fixture
// creation, referee assignment and captain/referee token minting.
type AdminHandler struct {
	matchService      services.MatchService
	invitationService services.InvitationService
}

func NewAdminHandler(matchService services.MatchService, invitationService services.InvitationService) *AdminHandler {
	return &AdminHandler{
		matchService:      matchService,
		invitationService: invitationService,
	}
}

func (h *AdminHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if input.HomeTeamID <= 0 || input.AwayTeamID <= 0 {
		badRequestResponse(w, r, errors.New("home_team_id and away_team_id are required"))
		return
	}

	match, err := h.matchService.CreateMatch(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"match": match}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *AdminHandler) AssignReferee(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		RefereeID int `json:"referee_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.RefereeID <= 0 {
		badRequestResponse(w, r, errors.New("referee_id is required"))
		return
	}

	if err := h.matchService.AssignReferee(r.Context(), currentUserID, matchID, input.RefereeID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		Role models.InvitationRole `json:"role"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	invitation, err := h.invitationService.CreateAdminInvitation(r.Context(), currentUserID, input.Role)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"invitation": invitation,
		"qr_payload": invitation.QRPayload(),
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
