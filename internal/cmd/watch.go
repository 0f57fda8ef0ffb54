package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pizzas-pos/internal/app"
	"pizzas-pos/internal/logger"
	"pizzas-pos/internal/metrics"
	"pizzas-pos/internal/services/syncer"
	"pizzas-pos/internal/services/tracking"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the active orders of this terminal's store",
	Long: `Watch opens the realtime order feed and prints the active orders every
time they change, either here or on another terminal. Sync metrics and a
read-only order status API (/orders, /orders/{code}/status, /health) are
served on metrics.addr while it runs.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd, "watch")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	term, err := app.Open(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer term.Close()

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metrics.Handler(reg))
		tracker := tracking.NewService(term.Engine, term.Store, log)
		tracking.NewHandler(tracker, log, cfg.Session.Terminal).Register(mux)

		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go serveHTTP(srv, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	out := cmd.OutOrStdout()
	if err := term.Start(ctx, func(s syncer.State) { printState(out, s) }); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("graceful_shutdown", "Stopping order feed", nil)
	return nil
}

func serveHTTP(srv *http.Server, log *logger.Logger) {
	log.Info("http_listening", "Serving metrics and order status", map[string]any{"addr": srv.Addr})
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("http_server_failed", "HTTP server stopped", err, nil)
	}
}

func printState(w io.Writer, s syncer.State) {
	source := "local"
	if s.Remote {
		source = "remote"
	}
	fmt.Fprintf(w, "%s: %d active orders\n", source, len(s.Active))
	for _, o := range s.Active {
		marker := " "
		if s.Selected != nil && s.Selected.ID == o.ID {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %-12s %-10s %3d u  %8s  %s\n",
			marker, o.Code, o.Status, o.TotalUnits, o.TotalAmount.StringFixed(2), o.CreatedAt.Format("15:04"))
	}
}
