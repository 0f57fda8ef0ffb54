package cmd

import (
	"github.com/spf13/cobra"

	"pizzas-pos/internal/config"
	"pizzas-pos/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "pos",
	Short: "Point-of-sale terminal for a pizza counter",
	Long: `pos keeps every terminal's view of the active orders in sync through a
shared document store, and broadcasts order status changes to the other
terminals over RabbitMQ.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./config.yaml)")
}

// setup loads the configuration named by --config and a logger for service.
func setup(cmd *cobra.Command, service string) (*config.Config, *logger.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(service, cfg.Logging.Level), nil
}
