package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FACorreiaa/couple-finance/pkg/interceptors"
)

// RouteHandlers are the feature handlers mounted by NewRouter
type RouteHandlers interface {
	Routes(r chi.Router)
}

// NewRouter builds the HTTP surface: health check, then the group-scoped v1 API
func NewRouter(d *Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(interceptors.Logging(d.Logger, d.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(interceptors.CORS(d.Config.Server.CORSAllowedOrigins))
	r.Use(interceptors.RateLimit(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(interceptors.RequireGroup)
		mount(r, "/recurring", d.RecurringHandler)
		mount(r, "/forecast", d.ForecastHandler)
	})

	return r
}

func mount(r chi.Router, pattern string, h RouteHandlers) {
	r.Route(pattern, h.Routes)
}
