package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pizzas-pos/internal/messaging"
	"pizzas-pos/internal/services/notification"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Print order status changes announced by other terminals",
	RunE:  runNotify,
}

func init() {
	notifyCmd.Flags().Int("prefetch", 10, "unacknowledged messages held at once")
	rootCmd.AddCommand(notifyCmd)
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd, "notify")
	if err != nil {
		return err
	}
	if !cfg.NotificationsEnabled() {
		return errors.New("rabbitmq.host is not configured")
	}
	prefetch, err := cmd.Flags().GetInt("prefetch")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return err
	}
	terminal := cfg.Session.Terminal
	consumer := messaging.NewConsumer(conn, log, messaging.QueueName(terminal), "pos-"+terminal, prefetch)

	return notification.NewSubscriber(consumer, log, cmd.OutOrStdout(), terminal).Start(ctx)
}
