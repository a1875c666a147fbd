package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jtomic/farewatch/internal/config"
	"github.com/jtomic/farewatch/internal/provider"
	"github.com/jtomic/farewatch/internal/storage/sqlite"
	"github.com/jtomic/farewatch/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(p provider.Provider, alerts *sqlite.AlertStorage, prices *sqlite.PriceStorage, cfg *config.Config, logger *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(p, alerts, prices, logger),
		middleware: NewMiddleware(logger),
		config:     cfg,
		logger:     logger.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Interactive search flow
		router.Post("/search", r.handler.Search)

		// Alert management
		router.Get("/alerts", r.handler.ListAlerts)
		router.Put("/alerts/{id}/price", r.handler.UpdateAlertPrice)
		router.Delete("/alerts/{id}", r.handler.DeleteAlert)

		// Price history for charting
		router.Get("/insights", r.handler.GetPriceHistory)

		// Health check
		router.Get("/health", r.handler.GetHealth)
	})

	return router
}
