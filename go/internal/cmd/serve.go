package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mcdev12/timekeep/go/internal/expiry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *Config) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server with the expiry monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")
	return cmd
}

func serve(ctx context.Context, cfg *Config, migrate bool) error {
	ctx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer services.Close()

	if migrate {
		if err := services.Store.Migrate(ctx); err != nil {
			return err
		}
	}

	server, err := setupServer(cfg, services)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				log.Error().Err(err).Str("component", name).Msg("background component stopped")
			}
		}()
	}

	run("connections", func(ctx context.Context) error {
		services.Connections.Start(ctx)
		return nil
	})
	run("expiry-monitor", services.Monitor.Run)
	run("expiry-advisor", services.Advisor.Run)
	if services.Relay != nil {
		run("notification-relay", services.Relay.Run)
	}
	if cfg.Store == "postgres" {
		feed, err := expiry.NewChangeFeed(cfg.database.DSN(), services.Advisor.Nudge)
		if err != nil {
			log.Warn().Err(err).Msg("clock event change feed unavailable")
		} else {
			run("change-feed", feed.Run)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancelAll()
	wg.Wait()
	log.Info().Msg("timekeep shutdown complete")
	return serveErr
}
