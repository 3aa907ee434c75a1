// Package http builds the chi router for the API. The webhook route is
// deliberately outside the authenticated group: the provider calls it, not a
// user.
package http

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"vibevids/internal/http/handlers"
	"vibevids/internal/infra"
	"vibevids/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
	r.Use(middleware.Logger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/vibes", func(r chi.Router) {
		// Provider-facing: no user auth, always acknowledged.
		r.Post("/webhook", app.VibesWebhook)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(cfg.JWTSecret))
			r.Post("/generate", app.VibesGenerate)
			r.Get("/", app.VibesList)
			r.Get("/{video_id}", app.VibesGet)
			r.Delete("/{video_id}", app.VibesDelete)
		})
	})

	r.Route("/v1/referrals", func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))
		r.Get("/stats", app.ReferralStats)
	})

	return r
}
