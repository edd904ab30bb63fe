package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/toozej/go-thoroughbred/internal/server"
	"github.com/toozej/go-thoroughbred/internal/services/search"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Start the HTTP API for fetching, refreshing and searching horses`,
	Args:  cobra.NoArgs,
	RunE:  runServeCommand,
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, conf, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.WithComponent("server").WithError(err).Warn("Failed to release resources")
		}
	}()

	srv := server.NewServer(&conf, a.logger, server.Dependencies{
		Fetcher:  a.scraper,
		Store:    a.store,
		Searcher: search.NewFuzzyHorseSearcher(a.store, a.logger.Logger),
		Metrics:  a.metrics,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.WithComponent("server").Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		a.logger.WithComponent("server").WithError(err).Error("Server forced to shutdown")
		return err
	}

	a.logger.WithComponent("server").Info("Server exited")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
