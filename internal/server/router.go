package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/promptfolio/api/internal/handler"
	"github.com/promptfolio/api/internal/ratelimit"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter creates a new HTTP router with all routes registered.
// A nil limiter disables rate limiting; an empty allowedOrigins disables CORS.
func NewRouter(h *handler.Handler, limiter *ratelimit.Limiter, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Middleware. RealIP runs first so the access log and the rate limiter
	// see the same client address.
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{requestIDHeader, "Retry-After"},
			MaxAge:         86400,
		}))
	}

	r.Use(ratelimit.Middleware(limiter))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/companies", h.ListCompanies)
		r.Get("/companies/{token}", h.GetCompany)
		r.Get("/companies/{token}/jobs", h.ListCompanyJobs)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{token}", h.GetJob)
		r.Post("/link-preview", h.LinkPreview)
	})

	return otelhttp.NewHandler(r, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	)
}
