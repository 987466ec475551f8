package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-hpc/jobmeta/internal/auth"
	"github.com/meridian-hpc/jobmeta/internal/config"
	"github.com/meridian-hpc/jobmeta/internal/lookup"
	"github.com/meridian-hpc/jobmeta/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the attribute lookup service",
		Long: `Start the jobmeta HTTP service.

The service answers per-job attribute lookups against the configured
store backend. Requests are authorized against the instance owner id
and per-job guest access derived from the job event log.

Example:
  jobmeta serve --config /etc/jobmeta/config.yaml
  JOBMETA_LISTEN=:8720 jobmeta serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	logger := newLogger(opts.Verbose)
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger.Info("opening store", "backend", cfg.Store.Backend)
	store, png, err := openStore(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()

	svc := lookup.New(store, cfg.Auth.OwnerID,
		lookup.WithLogger(logger),
		lookup.WithAuthCache(auth.NewCache(cfg.Auth.CacheCapacity)))
	handler := server.New(svc, png, logger)

	httpSrv := &http.Server{
		Addr:        cfg.Server.Listen,
		Handler:     handler,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Server.Listen, "owner_id", cfg.Auth.OwnerID)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		// Fail lookups still in flight before closing the listener,
		// so they return UNAVAILABLE instead of hanging on reads.
		svc.Shutdown()

		sctx, scancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer scancel()
		return httpSrv.Shutdown(sctx)
	})

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s. Press Ctrl-C to stop.\n", cfg.Server.Listen)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("server stopped")
	return nil
}
