package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stockflow",
	Short: "Order status and procurement service for Shopify shops",
	Long: `A service that tracks order fulfillment status with a full audit
history, generates purchase orders when orders go out of stock, and keeps a
per-SKU inventory ledger. Runs as an HTTP API or as a background worker
consuming status change events from Azure Service Bus.`,
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			log.Error().Err(err).Msg("Failed to display help")
		}
	},
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize()
}
