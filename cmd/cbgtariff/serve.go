package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyeh/cbgtariff/internal/adjudicate"
	"github.com/gyeh/cbgtariff/internal/api"
	"github.com/gyeh/cbgtariff/internal/grouping"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the adjudication HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ref := openReference(context.Background(), "serve", 0)
	defer ref.Close()

	svc := adjudicate.NewService(ref.repo, grouping.Options{MinDiagnosisCases: cfg.MinDiagnosisCases}, log)
	e := api.NewServer(api.NewHandler(svc, ref.live, log), log)

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Str("reference_mode", cfg.ReferenceMode).Msg("starting server")
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
