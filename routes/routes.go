package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/athleon/academy-engine/handlers"
)

func SetupRoutes(
	router *chi.Mux,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	rewardHandler *handlers.RewardHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.List)
		r.Post("/", tournamentHandler.Create)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", tournamentHandler.Get)
			r.Post("/start", tournamentHandler.Start)
			r.Post("/phase", tournamentHandler.Transition)
			r.Get("/matches", tournamentHandler.ListMatches)
			r.Get("/standings", tournamentHandler.Standings)
			r.Get("/snapshot", tournamentHandler.Snapshot)
			r.Post("/finalize", tournamentHandler.Finalize)
			r.Post("/rewards", rewardHandler.Distribute)
			r.Get("/participations", rewardHandler.ListParticipations)
		})
	})

	router.Post("/matches/{matchID}/result", matchHandler.SubmitResult)

	router.Route("/users/{userID}", func(r chi.Router) {
		r.Get("/badges", rewardHandler.UserBadges)
		r.Get("/skills", rewardHandler.UserSkills)
		r.Get("/participations", rewardHandler.UserHistory)
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
