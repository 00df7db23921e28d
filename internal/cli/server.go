package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/vecsearch/internal/ingest"
	"github.com/hyperjump/vecsearch/internal/server"
	"github.com/hyperjump/vecsearch/internal/watcher"
)

func newServerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long: `Start the HTTP API. The configured collection and index are created if missing,
and files dropped into the watch directories are ingested as they appear.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(opts)
		},
	}
}

func runServer(opts *rootOptions) error {
	cfg, resolvedConfigPath, logger, err := opts.load()
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || opts.debug))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Error("failed to initialize components", zap.Error(err))
		return err
	}
	defer components.Close()

	ingestor := ingest.New(components.svc,
		ingest.WithLogger(logger),
		ingest.WithMaxTextLength(cfg.Collection.MaxTextLength))
	filter, err := watcher.NewFilter(cfg.Watch.Include, cfg.Watch.Exclude)
	if err != nil {
		return err
	}
	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		filter,
		cfg.Watch.RecursiveOrDefault(),
		ingestor.Handler(watchCtx),
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Error("failed to start watcher", zap.Error(err))
		return err
	}
	go watchSvc.SyncExistingFiles()

	srv := server.NewServer(components.svc, cfg, logger, watchSvc, resolvedConfigPath)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
			return err
		}
	}

	logger.Info("Shutting down...")
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
