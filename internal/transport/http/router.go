package http

import (
	"net/http"

	"github.com/Gwishyman/emailotp/internal/application/verify"
	"github.com/Gwishyman/emailotp/internal/config"
	"github.com/Gwishyman/emailotp/internal/transport/http/handler"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the ops API router: liveness plus a read-only view of
// the ledger.
func NewRouter(cfg *config.Config, ledger verify.Ledger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthH := handler.NewHealthHandler()
	verifiedH := handler.NewVerifiedHandler(ledger)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/ping", healthH.Ping)
		r.Get("/verified", verifiedH.Get)
	})

	return r
}
