package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/prometheus"
)

// ReadinessCheck verifies one downstream dependency for /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RouterParams bundles the router's collaborators.  MetricsHandler and Checks
// are optional.
type RouterParams struct {
	Service        AnalysisService
	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler
	Checks         []ReadinessCheck
}

// NewRouter wires the full API surface onto a chi router.
func NewRouter(p RouterParams) *chi.Mux {
	h := &handlers{svc: p.Service, logger: p.Logger, metrics: p.Metrics}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestObserver(p.Logger, p.Metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(p.Checks, p.Metrics))
	if p.MetricsHandler != nil {
		r.Handle("/metrics", p.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/datasets", func(r chi.Router) {
			r.Post("/", h.uploadDataset)
			r.Get("/", h.listDatasets)
			r.Route("/{datasetID}", func(r chi.Router) {
				r.Get("/", h.getDataset)
				r.Delete("/", h.deleteDataset)
				r.Post("/pareto", h.rankDataset)
				r.Get("/rankings", h.listRankings)
				r.Get("/rankings/latest", h.latestRanking)
				r.Post("/profile", h.compareProfiles)
			})
		})
		r.Route("/rankings", func(r chi.Router) {
			r.Get("/{rankingID}", h.getRanking)
			r.Post("/preview", h.previewRank)
		})
		r.Post("/polygons/metrics", h.polygonMetrics)
	})
	return r
}

func readinessHandler(checks []ReadinessCheck, metrics *prometheus.AppMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, c := range checks {
			err := c.Check(ctx)
			prometheus.RecordHealthCheck(metrics, c.Name, err == nil)
			if err != nil {
				results[c.Name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[c.Name] = "ok"
		}
		writeJSON(w, status, results)
	}
}
