package routes

import (
	"github.com/Dosada05/forecast-league/handlers"
	"github.com/Dosada05/forecast-league/middleware"
	"github.com/Dosada05/forecast-league/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// SetupRoutes собирает все маршруты приложения.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	playerHandler *handlers.PlayerHandler,
	tournamentHandler *handlers.TournamentHandler,
	forecastHandler *handlers.ForecastHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	statsHandler *handlers.StatsHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(jwtSecret))
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	router.Route("/players", func(r chi.Router) {
		r.Get("/", playerHandler.ListHandler)
		r.Get("/{playerID}", playerHandler.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", playerHandler.CreateHandler)
			r.Patch("/{playerID}", playerHandler.UpdateHandler)
			r.Delete("/{playerID}", playerHandler.ArchiveHandler)
			r.Post("/{playerID}/restore", playerHandler.RestoreHandler)
			r.Put("/{playerID}/photo", playerHandler.UploadPhotoHandler)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)
		r.Get("/{tournamentID}/forecasts", forecastHandler.ListByTournamentHandler)
		r.Get("/{tournamentID}/analytics", analyticsHandler.PopularityHandler)
		r.Get("/{tournamentID}/overview", analyticsHandler.OverviewHandler)

		// Прогнозы принимаются от любого авторизованного пользователя.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Put("/{tournamentID}/forecast", forecastHandler.SubmitHandler)
			r.Get("/{tournamentID}/forecast", forecastHandler.GetOwnHandler)
			r.Delete("/{tournamentID}/forecast", forecastHandler.WithdrawHandler)
		})

		// Управление турниром — только администраторы.
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", tournamentHandler.CreateHandler)
			r.Patch("/{tournamentID}", tournamentHandler.UpdateHandler)
			r.Delete("/{tournamentID}", tournamentHandler.DeleteHandler)

			r.Post("/{tournamentID}/participants", tournamentHandler.AddParticipantHandler)
			r.Delete("/{tournamentID}/participants/{playerID}", tournamentHandler.RemoveParticipantHandler)

			r.Post("/{tournamentID}/publish", tournamentHandler.PublishHandler)
			r.Post("/{tournamentID}/close-bets", tournamentHandler.CloseBetsHandler)
			r.Put("/{tournamentID}/result", tournamentHandler.StageResultHandler)
			r.Post("/{tournamentID}/finish", tournamentHandler.FinishHandler)
		})
	})

	router.Get("/leaderboard", statsHandler.LeaderboardHandler)
	router.Route("/seasons", func(r chi.Router) {
		r.Get("/current", statsHandler.CurrentSeasonHandler)
		r.Get("/{seasonNumber}", statsHandler.SeasonHandler)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/users/me/stats", statsHandler.MyStatsHandler)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
