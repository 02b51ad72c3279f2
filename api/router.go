package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	// mint requests wait for confirmation, so this follows the transaction timeout
	RequestTimeout time.Duration
	// exact origins allowed to call the API from a browser, none by default
	AllowedOrigins []string
	// bearer token required on the routes that sign and send transactions
	AuthToken string
}

func NewRouter(h *Handler, c RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(c.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return originAllowed(c.AllowedOrigins, origin)
		},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, "Not found", http.StatusNotFound)
	})

	r.Get("/health", h.HandleHealth)

	r.Route("/api/v1/drop", func(r chi.Router) {
		r.Get("/status", h.HandleGetStatus)
		r.Get("/history", h.HandleGetHistory)

		r.Group(func(r chi.Router) {
			r.Use(sameOriginOnly(c.AllowedOrigins))
			r.Use(requireToken(c.AuthToken))
			r.Post("/refresh", h.HandleRefresh)
			r.Post("/mint", h.HandleMint)
		})
	})

	return r
}
