package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/seetuai/seetu/internal/http/handlers"
	"github.com/seetuai/seetu/internal/infra"
	"github.com/seetuai/seetu/internal/metrics"
	"github.com/seetuai/seetu/internal/middleware"
)

// Options configures the router's cross-cutting concerns.
type Options struct {
	JWTSecret       string
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
	AllowedOrigins  []string
	RateLimitPerMin int
	StaticDir       string
	Logger          infra.Logger
}

// NewRouter assembles the HTTP surface.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/presets", app.Presets)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Route("/v1/batch", func(r chi.Router) {
			r.Post("/", app.BatchCreate)
			r.Get("/", app.BatchList)
			r.Get("/{id}", app.BatchProgress)
			r.Post("/{id}/cancel", app.BatchCancel)
			r.Get("/{id}/download", app.BatchDownload)
		})
	})

	if opts.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
