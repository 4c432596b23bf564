package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Priya8975/webhook-relay/internal/metrics"
	"github.com/Priya8975/webhook-relay/internal/queue"
	"github.com/Priya8975/webhook-relay/internal/store"
)

// NewRouter wires the relay's HTTP surface: health, metrics, ingest,
// and search.
func NewRouter(es *store.EventStore, q *queue.Queue, secretKey string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(withRequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	ingestHandler := NewIngestHandler(es, q, secretKey, logger)
	searchHandler := NewSearchHandler(es, logger)

	r.Get("/health", HealthHandler())
	r.Handle("/metrics", metrics.Handler())

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/ingest", ingestHandler.Ingest)
		r.Post("/search", searchHandler.Search)
	})

	return r
}
