package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/comex-reports-etl/internal/bootstrap"
	"github.com/kirillkom/comex-reports-etl/internal/config"
	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{
		ConnectQueue:   true,
		MetricsService: "worker",
	})
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           app.IngestMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker metrics listening", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSFilesSubject)
	err = app.Queue.SubscribeFiles(ctx, func(handlerCtx context.Context, path string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		outcome, err := app.IngestUC.IngestPath(processCtx, path, cfg.Reprocess)
		if err != nil {
			return err
		}
		if outcome.Status == domain.StatusSuccess && !outcome.AlreadyDone && cfg.ArchiveOnSuccess {
			app.IngestUC.Archive(processCtx, outcome.Path)
		}
		return nil
	})
	if err != nil {
		logger.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}
