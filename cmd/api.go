package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"example.com/stockflow/config"
	"example.com/stockflow/internal/api"
	"example.com/stockflow/internal/cache"
	"example.com/stockflow/internal/metrics"
	"example.com/stockflow/internal/models"
	"example.com/stockflow/internal/repositories"
	"example.com/stockflow/internal/search"
	"example.com/stockflow/internal/services"
	"example.com/stockflow/internal/shopify"
	"example.com/stockflow/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server handling order status changes, purchase orders and the inventory ledger`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize database connections
	db, readOnlyDB, err := initDatabases(cfg)
	if err != nil {
		return err
	}

	deps, err := buildServices(cfg, db, readOnlyDB)
	if err != nil {
		return err
	}
	defer deps.tracer.Close()

	// Initialize and start the server
	server := api.NewServer(cfg, deps.fulfillment, deps.orderStatuses, deps.purchaseOrders, deps.inventory, deps.credentials, deps.metrics, deps.tracer)

	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

// serviceDeps bundles the wired service layer shared by the api and worker
// commands
type serviceDeps struct {
	fulfillment    *services.FulfillmentService
	orderStatuses  *services.OrderStatusService
	purchaseOrders *services.PurchaseOrderService
	inventory      *services.InventoryService
	credentials    *services.CredentialService
	metrics        *metrics.Metrics
	tracer         tracing.Tracer
}

func buildServices(cfg config.Config, db, readOnlyDB *gorm.DB) (*serviceDeps, error) {
	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache = nil
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		return nil, err
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
		elasticClient = nil
	}

	// Initialize metrics
	metricsCollector := metrics.NewMetrics()

	// Initialize repositories
	credentialRepo := repositories.NewCredentialRepository(db, readOnlyDB)
	orderStatusRepo := repositories.NewOrderStatusRepository(db, readOnlyDB)
	purchaseOrderRepo := repositories.NewPurchaseOrderRepository(db, readOnlyDB)
	inventoryRepo := repositories.NewInventoryRepository(db, readOnlyDB)

	// Initialize the Shopify Admin API client
	shopifyClient := shopify.NewClient(cfg.Shopify)

	// Initialize services
	orderStatusService := services.NewOrderStatusService(orderStatusRepo, tracer, metricsCollector)
	purchaseOrderService := services.NewPurchaseOrderService(
		credentialRepo, purchaseOrderRepo, shopifyClient,
		cacheOrNil(redisCache), indexerOrNil(elasticClient),
		tracer, metricsCollector,
	)
	fulfillmentService := services.NewFulfillmentService(
		credentialRepo, orderStatusService, purchaseOrderService,
		tracer, metricsCollector,
	)
	inventoryService := services.NewInventoryService(inventoryRepo, metricsCollector)
	credentialService := services.NewCredentialService(credentialRepo)

	return &serviceDeps{
		fulfillment:    fulfillmentService,
		orderStatuses:  orderStatusService,
		purchaseOrders: purchaseOrderService,
		inventory:      inventoryService,
		credentials:    credentialService,
		metrics:        metricsCollector,
		tracer:         tracer,
	}, nil
}

// cacheOrNil converts a possibly nil concrete cache into the interface the
// service layer accepts without producing a non-nil interface holding a nil
// pointer
func cacheOrNil(c *cache.RedisCache) services.OrderNameCache {
	if c == nil {
		return nil
	}
	return c
}

// indexerOrNil does the same for the search client
func indexerOrNil(c *search.ElasticClient) services.PurchaseOrderIndexer {
	if c == nil {
		return nil
	}
	return c
}

func initDatabases(cfg config.Config) (*gorm.DB, *gorm.DB, error) {
	// Initialize write database
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to write database")
	}

	// Initialize read-only database
	readOnlyDB, err := gorm.Open(postgres.Open(cfg.DB.ReadOnlyDSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	// Auto-migrate only the write database
	if err := models.SetupModels(db); err != nil {
		return nil, nil, errors.Wrap(err, "failed to run migrations")
	}

	// Configure connection pools for both databases
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get underlying write DB connection")
	}
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	readSqlDB, err := readOnlyDB.DB()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get underlying read-only DB connection")
	}
	readSqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns * 2)
	readSqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns * 2)
	readSqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	return db, readOnlyDB, nil
}
