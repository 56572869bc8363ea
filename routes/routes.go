package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/rgalymov/gameclub-backend/handlers"
	"github.com/rgalymov/gameclub-backend/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	clubHandler *handlers.ClubHandler,
	memberHandler *handlers.MemberHandler,
	inviteHandler *handlers.InviteHandler,
	roundHandler *handlers.RoundHandler,
	gameHandler *handlers.GameHandler,
	notificationHandler *handlers.NotificationHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler())

	authenticate := middleware.Authenticate([]byte(jwtSecret))

	// Аутентификация
	router.Post("/users/signup", authHandler.Register)
	router.Post("/users/signin", authHandler.Login)

	// Каталог игр — просмотр без токена
	router.Route("/games", func(r chi.Router) {
		r.Get("/", gameHandler.ListGames)
		r.Get("/{gameID}", gameHandler.GetGameByID)
	})

	router.Route("/clubs", func(r chi.Router) {
		// Публичный просмотр клубов
		r.Get("/", clubHandler.ListClubs)
		r.Get("/{clubID}", clubHandler.GetClubByID)
		r.Get("/{clubID}/members", memberHandler.ListMembers)

		// Защищённые операции
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", clubHandler.CreateClub)
			r.Put("/{clubID}", clubHandler.UpdateClub)
			r.Delete("/{clubID}", clubHandler.DeleteClub)
			r.Post("/{clubID}/cover", clubHandler.UploadClubCover)

			r.Post("/{clubID}/join", clubHandler.JoinClub)
			r.Post("/{clubID}/leave", memberHandler.Leave)
			r.Delete("/{clubID}/members/{userID}", memberHandler.RemoveMember)
			r.Put("/{clubID}/members/{userID}/role", memberHandler.UpdateMemberRole)
			r.Post("/{clubID}/transfer", memberHandler.TransferOwnership)

			r.Post("/{clubID}/invites", inviteHandler.InviteMember)

			r.Post("/{clubID}/rounds", roundHandler.CreateRound)
		})
	})

	router.Route("/rounds", func(r chi.Router) {
		r.Get("/{roundID}", roundHandler.GetRound)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/{roundID}/advance", roundHandler.AdvanceRound)
			r.Post("/{roundID}/nominations", roundHandler.Nominate)
			r.Post("/{roundID}/votes", roundHandler.Vote)
			r.Post("/{roundID}/reviews", roundHandler.SubmitReview)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/users/me", userHandler.GetMe)
		r.Post("/users/me/avatar", userHandler.UploadAvatar)

		r.Get("/invites", inviteHandler.ListMyInvites)
		r.Post("/invites/{inviteID}/respond", inviteHandler.RespondToInvite)

		r.Get("/notifications", notificationHandler.ListNotifications)
		r.Post("/notifications/{notificationID}/read", notificationHandler.MarkRead)

		r.Get("/ws/clubs/{clubID}", webSocketHandler.ServeWs)
	})
}
