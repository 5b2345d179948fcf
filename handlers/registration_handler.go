package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fieldref/league-system/models"
	"github.com/fieldref/league-system/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
	invitationService   services.InvitationService
	jwtSecret           []byte
}

func NewRegistrationHandler(
	registrationService services.RegistrationService,
	invitationService services.InvitationService,
	jwtSecret string,
) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		invitationService:   invitationService,
		jwtSecret:           []byte(jwtSecret),
	}
}

// ValidateToken previews a scanned QR payload without consuming it, so
// the client can show the registration form for the right role.
func (h *RegistrationHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Payload string `json:"payload"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Payload == "" {
		badRequestResponse(w, r, errors.New("payload is required"))
		return
	}

	preview, err := h.invitationService.ValidateToken(r.Context(), input.Payload)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{"invitation": preview}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Payload string                     `json:"payload"`
		Role    models.InvitationRole      `json:"role"`
		Details services.RegistrationInput `json:"details"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.Payload == "" {
		badRequestResponse(w, r, errors.New("payload is required"))
		return
	}

	user, err := h.registrationService.Register(r.Context(), input.Payload, input.Role, input.Details)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// The mobile flow goes straight from registration into a session.
	tokenString, err := signSessionToken(h.jwtSecret, user)
	if err != nil {
		serverErrorResponse(w, r, fmt.Errorf("failed to sign token: %w", err))
		return
	}

	response := jsonResponse{
		"token": tokenString,
		"user":  user,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
