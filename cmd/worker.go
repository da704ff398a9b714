package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"example.com/stockflow/config"
	"example.com/stockflow/internal/messaging"
	"example.com/stockflow/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to process status change events from Azure Service Bus and run the low stock sweep`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
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

	g, ctx := errgroup.WithContext(ctx)

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

	// Initialize Azure Service Bus client
	serviceBus, err := messaging.NewServiceBusClient(cfg.Azure)
	if err != nil {
		return err
	}
	defer serviceBus.Close(context.Background())

	// Start the service bus processor
	g.Go(func() error {
		log.Info().Str("queue", cfg.Azure.QueueName).Msg("Starting Azure Service Bus processor")
		return serviceBus.ProcessMessages(ctx, statusChangeHandler(deps.fulfillment))
	})

	// Start the periodic low stock sweep
	g.Go(func() error {
		log.Info().Dur("interval", cfg.Worker.LowStockInterval).Msg("Starting low stock sweep")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.LowStockInterval),
			gocron.NewTask(func() {
				if err := deps.inventory.SweepLowStock(ctx); err != nil {
					log.Error().Err(err).Msg("Low stock sweep failed")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// statusChangeHandler adapts the fulfillment service to the message bus
// handler contract. Malformed or permanently unprocessable messages are
// completed rather than redelivered; transient failures are abandoned so the
// broker retries them.
func statusChangeHandler(fulfillment *services.FulfillmentService) messaging.Handler {
	return func(ctx context.Context, body []byte) error {
		var req services.StatusChangeRequest
		if err := json.Unmarshal(body, &req); err != nil {
			log.Error().Err(err).Msg("Dropping malformed status change message")
			return nil
		}

		result, err := fulfillment.HandleStatusChange(ctx, req)
		if err != nil {
			if errors.Is(err, services.ErrInvalidInput) || errors.Is(err, services.ErrNotInstalled) {
				log.Error().
					Err(err).
					Str("order_id", req.OrderID).
					Str("shop", req.Shop).
					Msg("Dropping unprocessable status change message")
				return nil
			}
			return err
		}

		log.Info().
			Str("order_id", req.OrderID).
			Str("status", req.NewStatus).
			Bool("purchase_order_created", result.PurchaseOrderCreated).
			Msg("Status change event processed")

		return nil
	}
}
