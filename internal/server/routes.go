package server

import (
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kwintel/internal/engine"
	"kwintel/internal/handlers/api"
)

// Deps are the collaborators the routes are wired to. Metrics, Sink and
// Suggestions may be nil.
type Deps struct {
	Engine      *engine.Engine
	Metrics     engine.MetricsProvider
	Sink        engine.Sink
	Suggestions api.SuggestionStore
	Health      api.Pinger
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(deps Deps) {
	keywordHandler := api.NewKeywordHandler(deps.Engine, deps.Metrics, deps.Sink, s.Cfg.MaxBatchSize)
	healthHandler := api.NewHealthHandler(deps.Health)

	s.App.Get("/healthz", healthHandler.Healthz)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := s.App.Group("/api/v1")
	v1.Post("/normalize", keywordHandler.Normalize)
	v1.Post("/classify", keywordHandler.Classify)
	v1.Post("/decide", keywordHandler.Decide)
	v1.Post("/batch", keywordHandler.Batch)
	v1.Get("/versions", keywordHandler.Versions)

	// Review queue routes need persistent storage
	if deps.Suggestions != nil {
		suggestionHandler := api.NewSuggestionHandler(deps.Suggestions)
		v1.Get("/suggestions", suggestionHandler.List)
		v1.Post("/suggestions/:id/accept", suggestionHandler.Accept)
		v1.Post("/suggestions/:id/dismiss", suggestionHandler.Dismiss)
	}
}
