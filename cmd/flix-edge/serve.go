package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flix-app/flix-cache/internal/config"
	"github.com/flix-app/flix-cache/pkg/lifecycle"
	"github.com/flix-app/flix-cache/pkg/tracing"
	"github.com/flix-app/flix-cache/pkg/worker"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const serviceName = "flix-edge"

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Install the configured version and run the edge proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			listener, err := net.Listen("tcp", cfg.ListenAddr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.ListenAddr, err)
			}
			return serve(runCtx, cfg, ctx.logger, listener)
		},
	}
}

// serve runs the edge until ctx is done. It owns listener.
func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger, listener net.Listener) error {
	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Endpoint:       cfg.OTelEndpoint,
	})
	if err != nil {
		listener.Close()
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("Trace flush failed")
		}
	}()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		listener.Close()
		return err
	}
	defer a.Close()

	if err := a.worker.Dispatch(ctx, worker.InstallEvent{}); err != nil && !errors.Is(err, lifecycle.ErrAlreadyInstalled) {
		listener.Close()
		return fmt.Errorf("install version %s: %w", cfg.Version, err)
	}
	a.worker.SyncOnRestore(ctx, a.tracker)

	srv := &http.Server{
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-a.responses.StartJanitor(gctx, cfg.SweepInterval)
		return nil
	})
	g.Go(func() error {
		<-a.tracker.StartProbe(gctx, cfg.ProbeInterval, a.probe)
		return nil
	})
	g.Go(func() error {
		logger.Info().
			Str("addr", listener.Addr().String()).
			Str("upstream", cfg.UpstreamURL).
			Str("version", cfg.Version).
			Str("store", cfg.Store).
			Msg("Edge proxy listening")
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.worker.Wait()
	logger.Info().Msg("Edge proxy stopped")
	return err
}
