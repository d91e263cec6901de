package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/infra"
	"server/internal/middleware"
)

// Options carries the router-level tunables taken from configuration.
type Options struct {
	CORSOrigins     []string
	RateLimitPerMin int
}

// NewRouter assembles the chi router with the service middleware stack.
func NewRouter(app *handlers.App, logger infra.Logger, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(logger),
	)
	if len(opts.CORSOrigins) > 0 {
		r.Use(middleware.CORS(opts.CORSOrigins))
	}
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	r.Method(stdhttp.MethodGet, "/metrics", app.Metrics.Handler())

	r.Route("/v1/videos", func(r chi.Router) {
		r.Post("/", app.VideosCreate)
		r.Get("/", app.VideosList)
		r.Get("/{job_id}", app.VideosStatus)
		r.Get("/{job_id}/result", app.VideosResult)
		r.Post("/{job_id}/cancel", app.VideosCancel)
		r.Delete("/{job_id}", app.VideosDelete)
	})

	r.Route("/v1/batches", func(r chi.Router) {
		r.Post("/", app.BatchesCreate)
		r.Get("/{batch_id}", app.BatchesStatus)
		r.Post("/{batch_id}/cancel", app.BatchesCancel)
	})

	return r
}
