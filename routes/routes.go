package routes

import (
	"net/http"

	"github.com/campusfest/tournament-live/handlers"
	"github.com/campusfest/tournament-live/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *chi.Mux,
	authHandler *handlers.AuthHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
	allowedOrigins []string,
	jwtSecret string,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Post("/api/admin/login", authHandler.Login)

	router.Route("/api/matches", func(r chi.Router) {
		// Публичные маршруты для просмотра расписания
		r.Get("/", matchHandler.ListMatchesHandler)
		r.Get("/{matchID}", matchHandler.GetMatchHandler)

		// Защищенные маршруты только для администратора
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin([]byte(jwtSecret)))

			r.Post("/", matchHandler.CreateMatchHandler)
			r.Put("/{matchID}", matchHandler.UpdateMatchDetailsHandler)
			r.Patch("/{matchID}/status", matchHandler.UpdateMatchStateHandler)
			r.Delete("/{matchID}", matchHandler.DeleteMatchHandler)
		})
	})

	router.Get("/ws/live", webSocketHandler.ServeWs)
}
