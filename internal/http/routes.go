package httpx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/target/harvester/internal/observability/statsd"
	"github.com/target/harvester/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sources  *service.SourceService
	Dispatch *service.DispatchService
	Catalog  *service.CatalogService
	Ingest   Ingester

	// Health probes keyed by dependency name (postgres, redis).
	Health map[string]HealthCheck

	Logger  *slog.Logger // Optional
	Metrics statsd.Sink  // Optional
}

// NewRouter creates the chi router for the JSON API.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logging(logger))
	r.Use(Recover(logger))
	r.Use(Metrics(services.Metrics))
	r.Use(middleware.Compress(5, "application/json"))

	health := &HealthHandler{Checks: services.Health}
	r.Method(http.MethodGet, "/healthz", health)
	r.Method(http.MethodHead, "/healthz", health)

	sources := &SourceHandlers{
		Sources:  services.Sources,
		Dispatch: services.Dispatch,
		Catalog:  services.Catalog,
		Ingest:   services.Ingest,
	}
	jobs := &JobHandlers{Dispatch: services.Dispatch}
	postings := &PostingHandlers{Catalog: services.Catalog}

	r.Route("/api", func(r chi.Router) {
		r.Route("/sources", func(r chi.Router) {
			r.Put("/", sources.Upsert)
			r.Get("/", sources.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sources.Get)
				r.Delete("/", sources.Delete)
				r.Post("/runs", sources.EnqueueRun)
				r.Post("/runs/sync", sources.RunSync)
				r.Get("/runs", sources.ListRuns)
				r.Get("/jobs", sources.ListJobs)
				r.Get("/summary", sources.Summary)
			})
		})
		r.Get("/jobs/stats", jobs.Stats)
		r.Get("/jobs/{id}", jobs.Get)
		r.Get("/postings", postings.List)
		r.Get("/postings/{id}", postings.Get)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusNotFound, ErrorBody{Error: "route not found", Code: "not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: "method not allowed", Code: "method_not_allowed"})
	})

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
