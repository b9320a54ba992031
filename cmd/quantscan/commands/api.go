package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Laimiu-debug/quantscan/internal/api"
	"github.com/Laimiu-debug/quantscan/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Serves the backtest, matrix and pool endpoints.

Endpoints:
  GET    /health
  GET    /metrics
  POST   /api/backtest/run
  POST   /api/matrix/build
  DELETE /api/matrix/cache
  GET    /api/pool/{date}
  POST   /api/pool/refresh`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	a, err := initApp()
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer a.Close()

	backtestHandler := handlers.NewBacktestHandler(a.engine, a.pools, a.log)
	matrixHandler := handlers.NewMatrixHandler(a.builder, a.log)
	poolHandler := handlers.NewPoolHandler(a.builder, a.computer, a.pools, a.log)

	router := api.NewRouter(backtestHandler, matrixHandler, poolHandler, a.rds, a.cfg, a.metrics, a.log)
	server := api.New(a.cfg, a.log, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		a.log.WithField("signal", sig.String()).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
