package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)
		r.Get("/ai/status", apiHandler.AIStatusHandler)
		r.Get("/layouts", apiHandler.LayoutsHandler)

		r.Route("/readings", func(r chi.Router) {
			r.Post("/tarot", apiHandler.TarotReadingHandler)
			r.Post("/iching", apiHandler.IChingReadingHandler)
			r.Post("/zodiac", apiHandler.ZodiacReadingHandler)
		})

		// History is kept per reading type
		r.Route("/history", func(r chi.Router) {
			r.Delete("/", apiHandler.ClearAllHistoryHandler)
			r.Get("/{readingType}", apiHandler.ListHistoryHandler)
			r.Delete("/{readingType}", apiHandler.ClearHistoryHandler)
			r.Delete("/{readingType}/{readingID}", apiHandler.DeleteReadingHandler)
		})
	})

	return r
}
