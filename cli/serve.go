package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camden-git/peoplegraph/handlers"
	"github.com/camden-git/peoplegraph/media"
	"github.com/camden-git/peoplegraph/metrics"
	"github.com/camden-git/peoplegraph/realtime"
	"github.com/camden-git/peoplegraph/services"
	"github.com/camden-git/peoplegraph/workers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg, log := a.cfg, a.log

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics, err := metrics.NewEngineMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	mediaStore, err := media.NewLocalStorage(
		cfg.MediaStoragePath,
		map[media.AssetType]string{media.AssetTypeFace: cfg.FacesSubDir},
		cfg.ImageURLPrefix,
		cfg.ImageURLCacheTTL,
		log,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}
	if _, err := mediaStore.EnsureDir(media.AssetTypeFace); err != nil {
		return err
	}

	log.Info("starting image cleanup workers",
		zap.Int("workers", cfg.NumCleanupWorkers),
		zap.Int("queue_size", cfg.CleanupQueueSize))
	cleanup := workers.NewImageCleanup(mediaStore, engineMetrics, log, cfg.CleanupQueueSize, cfg.NumCleanupWorkers)
	defer cleanup.Stop()

	hub := realtime.NewHub(log)
	go hub.Run(ctx)

	router := handlers.NewRouter(handlers.Dependencies{
		Store:          a.store,
		Media:          mediaStore,
		Processor:      media.NewProcessor(mediaStore, cfg.FaceMaxSize, log),
		Duplicates:     services.NewDuplicateService(a.store, engineMetrics, log, cfg.DuplicateScanLimit),
		Merges:         services.NewMergeService(a.store, cleanup, engineMetrics, log, cfg.MergeMaxAttempts),
		Graph:          services.NewGraphService(a.store, log),
		Connections:    services.NewConnectionService(a.store, log),
		Hub:            hub,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Log:            log,
		FacesPath:      cfg.FacesPath,
		ImageURLPrefix: cfg.ImageURLPrefix,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.AppEnv),
			zap.String("database", cfg.DatabasePath),
			zap.String("faces", cfg.FacesPath))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
