package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"voice-notes-service/internal/app"
	apihttp "voice-notes-service/internal/http"
	"voice-notes-service/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the recorder API and the observability server",
		Long: `Start the recorder API and the observability server.

The API listens on HTTP_PORT and serves uploads, destination management
and processing runs. Metrics and health probes are served on METRICS_PORT.
The service starts even when credentials are missing; every run then
fails with a configuration error until they are provided.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application := app.New(ctx, cfg)
			defer application.Shutdown()
			if err := application.Start(ctx); err != nil {
				return fmt.Errorf("start application: %w", err)
			}

			api := &http.Server{
				Addr:              ":" + cfg.Service.HTTPPort,
				Handler:           apihttp.NewRouter(application),
				ReadHeaderTimeout: 10 * time.Second,
			}
			obs := observability.NewServer(":"+cfg.Observability.MetricsPort, cfg.Validate)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info().Str("addr", api.Addr).Msg("Voice notes API started")
				if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("api server: %w", err)
				}
				return nil
			})
			g.Go(obs.ListenAndServe)
			g.Go(func() error {
				<-gctx.Done()
				log.Info().Msg("Shutting down HTTP servers")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return errors.Join(api.Shutdown(shutdownCtx), obs.Shutdown(shutdownCtx))
			})

			return g.Wait()
		},
	}
}
