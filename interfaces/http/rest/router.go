// Package rest wires the HTTP surface of the service.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"conexiones-backend/application/ports"
	"conexiones-backend/application/services/composer"
	"conexiones-backend/infrastructure/observability"
	"conexiones-backend/interfaces/http/rest/handlers"
	"conexiones-backend/interfaces/http/rest/middleware"
	ws "conexiones-backend/interfaces/websocket"
	"conexiones-backend/pkg/api"
)

// Router creates and configures the HTTP router
type Router struct {
	session    *composer.Session
	repo       ports.FragmentRepository
	completion ports.CompletionClient
	hub        *ws.Hub
	metrics    *observability.Collector
	logger     *zap.Logger
	enableCORS bool
}

// NewRouter creates a new router instance. hub and metrics may be nil.
func NewRouter(
	session *composer.Session,
	repo ports.FragmentRepository,
	completion ports.CompletionClient,
	hub *ws.Hub,
	metrics *observability.Collector,
	logger *zap.Logger,
	enableCORS bool,
) *Router {
	return &Router{
		session:    session,
		repo:       repo,
		completion: completion,
		hub:        hub,
		metrics:    metrics,
		logger:     logger,
		enableCORS: enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(rt.logger))
	if rt.enableCORS {
		router.Use(middleware.CORS())
	}
	if rt.metrics != nil {
		router.Use(rt.metrics.HTTPMiddleware)
	}

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.Error(w, http.StatusNotFound, "Not found")
	})

	// Health check
	router.Get("/health", rt.healthCheck)

	if rt.metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	if rt.hub != nil {
		router.Get("/ws", ws.ServeWS(rt.hub, rt.logger))
	}

	// API routes
	router.Route("/api", func(r chi.Router) {
		fragmentHandler := handlers.NewFragmentHandler(rt.session, rt.repo, rt.metrics, rt.logger)
		r.Post("/fragments", fragmentHandler.CreateFragment)
		r.Get("/fragments", fragmentHandler.ListRecent)
		r.Get("/search", fragmentHandler.Search)

		storyHandler := handlers.NewStoryHandler(rt.session, rt.completion, rt.metrics, rt.logger)
		r.Get("/story", storyHandler.GetStory)

		// Direct generation talks to the external provider, so it sits
		// behind its own breaker.
		r.Route("/story/generate", func(r chi.Router) {
			r.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("story-generate"), rt.logger))
			r.Post("/", storyHandler.GenerateStory)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
