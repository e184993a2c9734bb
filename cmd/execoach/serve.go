package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/execoach/llm"
	coachapi "github.com/c360studio/execoach/processor/coach-api"
)

const apiPrefix = "/api/v1"

func (c *cli) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return c.withApp(ctx, func(app *App) error {
				ln, err := net.Listen("tcp", c.cfg.Server.Addr)
				if err != nil {
					return fmt.Errorf("listen on %s: %w", c.cfg.Server.Addr, err)
				}
				return app.Serve(ctx, ln)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

// Handler builds the root mux: the coaching API under /api/v1 and the
// Prometheus endpoint at /metrics.
func (a *App) Handler() http.Handler {
	api := coachapi.NewHandler(a.coach, a.store,
		coachapi.WithLogger(a.logger),
		coachapi.WithHealthInfo(coachapi.HealthInfo{
			Provider:           a.cfg.Model.Provider,
			Model:              a.cfg.Model.Name,
			ModelConfigured:    a.cfg.ModelConfigured(),
			AvailableProviders: llm.ListProviders(),
			DataDir:            a.cfg.Storage.DataDir,
			Version:            Version,
		}),
	)

	mux := http.NewServeMux()
	api.RegisterHTTPHandlers(apiPrefix, mux)
	mux.Handle("GET /metrics", a.metrics.Handler())
	return mux
}

// Serve runs the HTTP server on ln until ctx is canceled, then shuts down
// gracefully within the configured timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: a.cfg.Server.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("execoach ready",
			"version", Version,
			"addr", ln.Addr().String(),
			"provider", a.cfg.Model.Provider,
			"model", a.cfg.Model.Name)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("execoach shutdown complete")
	return nil
}
