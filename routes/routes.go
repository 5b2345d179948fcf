package routes

import (
	"github.com/fieldref/league-system/handlers"
	"github.com/fieldref/league-system/middleware"
	"github.com/fieldref/league-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes wires the HTTP surface. Registration and token preview
// stay public: the people hitting them do not have accounts yet.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	allowedOrigins []string,
	authHandler *handlers.AuthHandler,
	registrationHandler *handlers.RegistrationHandler,
	invitationHandler *handlers.InvitationHandler,
	teamHandler *handlers.TeamHandler,
	matchHandler *handlers.MatchHandler,
	eventHandler *handlers.EventHandler,
	statsHandler *handlers.StatsHandler,
	adminHandler *handlers.AdminHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))

	// Public.
	router.Post("/auth/login", authHandler.Login)
	router.Post("/registrations/validate", registrationHandler.ValidateToken)
	router.Post("/registrations", registrationHandler.Register)
	router.Get("/ws/matches/{matchID}", webSocketHandler.SubscribeMatch)

	// Any authenticated user.
	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/auth/password", authHandler.ChangePassword)
		r.Put("/users/me", authHandler.UpdateProfile)

		r.Get("/teams/{teamID}", teamHandler.GetTeam)
		r.Get("/teams/{teamID}/matches", matchHandler.ListTeamMatches)
		r.Get("/matches/{matchID}", matchHandler.GetMatch)
		r.Get("/matches/{matchID}/events", eventHandler.ListEvents)
		r.Get("/matches/{matchID}/roster", matchHandler.GetMatchRoster)
		r.Get("/players/{playerID}/stats", statsHandler.PlayerStats)
	})

	// Captain.
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireRoles(models.RoleCaptain))

		r.Post("/teams/{teamID}/logo", teamHandler.UploadLogo)
		r.Post("/teams/{teamID}/invitations", invitationHandler.CreatePlayerInvitation)
		r.Get("/teams/{teamID}/invitations", invitationHandler.ListTeamInvitations)
		r.Delete("/teams/{teamID}/invitations/{invitationID}", invitationHandler.RevokeInvitation)
	})

	// Referee. Cancel is also open to admins: fixtures get called off
	// from the office, not just from the pitch.
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireRoles(models.RoleReferee))

		r.Get("/referees/me/matches", matchHandler.ListMyMatches)
		r.Get("/referees/me/stats", statsHandler.MyRefereeStats)

		r.Post("/matches/{matchID}/start", matchHandler.StartMatch)
		r.Post("/matches/{matchID}/finish", matchHandler.FinishMatch)

		r.Post("/matches/{matchID}/events", eventHandler.AppendEvent)
		r.Delete("/matches/{matchID}/events/{eventID}", eventHandler.RemoveEvent)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireRoles(models.RoleReferee, models.RoleAdmin))

		r.Post("/matches/{matchID}/cancel", matchHandler.CancelMatch)
	})

	// Admin.
	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(middleware.RequireRoles(models.RoleAdmin))

		r.Post("/matches", adminHandler.CreateMatch)
		r.Put("/matches/{matchID}/referee", adminHandler.AssignReferee)
		r.Post("/invitations", adminHandler.CreateInvitation)
	})
}
