package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/comex-reports-etl/internal/config"
	"github.com/kirillkom/comex-reports-etl/internal/core/ports"
	"github.com/kirillkom/comex-reports-etl/internal/core/usecase"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/extractor/delivery"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/extractor/inventory"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/queue/nats"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/repository/sqlstore"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/resilience"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/comex-reports-etl/internal/observability/metrics"
)

// Options selects the optional pieces a process needs.
type Options struct {
	// ConnectQueue dials NATS even when events are disabled, e.g. for workers.
	ConnectQueue bool
	// MetricsService names the ingest metrics registry. Empty disables ingest metrics.
	MetricsService string
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Store         *sqlstore.Store
	Queue         *nats.Queue
	IngestMetrics *metrics.IngestMetrics

	IngestUC  *usecase.IngestUseCase
	ReportsUC *usecase.ReportQueryUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialect, err := sqlstore.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	if dialect == sqlstore.DialectSQLite {
		if err := ensureSQLiteDir(cfg.DatabaseDSN); err != nil {
			return nil, err
		}
	}
	db, err := sqlstore.OpenDB(dialect, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	store := sqlstore.NewStore(db, dialect)
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	inbox, err := localfs.NewInbox(cfg.DataDir, cfg.FilePatterns, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init inbox: %w", err)
	}
	archiver, err := localfs.NewArchiver(cfg.ArchiveDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init archive: %w", err)
	}

	var queue *nats.Queue
	if opts.ConnectQueue || cfg.PublishEvents {
		queue, err = nats.New(cfg.NATSURL, nats.Options{
			FilesSubject:       cfg.NATSFilesSubject,
			EventsSubject:      cfg.NATSEventsSubject,
			ResilienceExecutor: resilience.NewExecutor(publishPolicy(cfg), logger),
			Logger:             logger,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	var events ports.EventPublisher
	if queue != nil && cfg.PublishEvents {
		events = queue
	}
	var (
		observer      ports.IngestObserver
		ingestMetrics *metrics.IngestMetrics
	)
	if opts.MetricsService != "" {
		ingestMetrics = metrics.NewIngestMetrics(opts.MetricsService)
		observer = ingestMetrics
	}

	ingestUC := usecase.NewIngestUseCase(
		inventory.NewExtractor(logger),
		delivery.NewExtractor(logger),
		store,
		store,
		inbox,
		archiver,
		events,
		observer,
		logger,
	)

	return &App{
		Config:        cfg,
		Logger:        logger,
		Store:         store,
		Queue:         queue,
		IngestMetrics: ingestMetrics,
		IngestUC:      ingestUC,
		ReportsUC:     usecase.NewReportQueryUseCase(store, store),
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func publishPolicy(cfg config.Config) resilience.PublishPolicy {
	return resilience.PublishPolicy{
		Attempts:       cfg.PublishAttempts,
		InitialBackoff: time.Duration(cfg.PublishBackoffMS) * time.Millisecond,
		MaxBackoff:     time.Duration(cfg.PublishMaxBackoffMS) * time.Millisecond,
		AttemptTimeout: time.Duration(cfg.PublishTimeoutMS) * time.Millisecond,
		BreakerEnabled: cfg.BreakerEnabled,
		TripAfter:      uint32(cfg.BreakerTripAfter),
		OpenFor:        time.Duration(cfg.BreakerOpenSeconds) * time.Second,
		HalfOpenProbes: uint32(cfg.BreakerHalfOpenProbes),
	}
}

// ensureSQLiteDir creates the parent directory of a file-backed sqlite DSN.
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	return nil
}

