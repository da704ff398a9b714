package api

import (
	"context"
	"net/http"
	"time"

	"example.com/stockflow/config"
	"example.com/stockflow/internal/api/handlers"
	"example.com/stockflow/internal/metrics"
	"example.com/stockflow/internal/services"
	"example.com/stockflow/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP server
type Server struct {
	config         config.Config
	router         *gin.Engine
	httpServer     *http.Server
	fulfillment    *services.FulfillmentService
	orderStatuses  *services.OrderStatusService
	purchaseOrders *services.PurchaseOrderService
	inventory      *services.InventoryService
	credentials    *services.CredentialService
	metrics        *metrics.Metrics
	tracer         tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	fulfillment *services.FulfillmentService,
	orderStatuses *services.OrderStatusService,
	purchaseOrders *services.PurchaseOrderService,
	inventory *services.InventoryService,
	credentials *services.CredentialService,
	m *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:         cfg,
		fulfillment:    fulfillment,
		orderStatuses:  orderStatuses,
		purchaseOrders: purchaseOrders,
		inventory:      inventory,
		credentials:    credentials,
		metrics:        m,
		tracer:         tracer,
	}

	server.router = server.setupRouter()

	server.httpServer = &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      server.router,
		ReadTimeout:  cfg.ServerTimeout,
		WriteTimeout: cfg.ServerTimeout,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLogger())

	orderStatusHandler := handlers.NewOrderStatusHandler(s.fulfillment, s.orderStatuses, s.tracer)
	orderStatusHandler.RegisterRoutes(router)

	purchaseOrderHandler := handlers.NewPurchaseOrderHandler(s.purchaseOrders, s.tracer)
	purchaseOrderHandler.RegisterRoutes(router)

	inventoryHandler := handlers.NewInventoryHandler(s.inventory, s.tracer)
	inventoryHandler.RegisterRoutes(router)

	credentialsHandler := handlers.NewCredentialsHandler(s.credentials)
	credentialsHandler.RegisterRoutes(router)

	metricsHandler := handlers.NewMetricsHandler(s.metrics, s.tracer)
	metricsHandler.RegisterRoutes(router)

	return router
}

// requestLogger emits one structured log line per request and feeds the
// request timers
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		s.metrics.RecordTimer("http_request", duration.Milliseconds())

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("HTTP request")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
