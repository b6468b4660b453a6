package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kirillkom/comex-reports-etl/internal/bootstrap"
	"github.com/kirillkom/comex-reports-etl/internal/config"
	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/core/ports"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/comex-reports-etl/internal/observability/logging"
)

type options struct {
	stats   bool
	enqueue bool
	quiet   bool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	opts, cfg, err := parseFlags(os.Args[1:], cfg, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	level := cfg.LogLevel
	if opts.quiet {
		level = "error"
	}
	logger := logging.NewJSONLoggerTo(os.Stderr, "etl", level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout, logger); err != nil {
		logger.Error("etl failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string, cfg config.Config, output io.Writer) (options, config.Config, error) {
	var opts options
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding downloaded report files")
	fs.StringVar(&cfg.DatabaseDSN, "db-dsn", cfg.DatabaseDSN, "database DSN (sqlite file path or postgres URL)")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "database driver: sqlite or postgres")
	fs.StringVar(&cfg.ArchiveDir, "archive-dir", cfg.ArchiveDir, "directory receiving archived files")
	fs.BoolVar(&cfg.Reprocess, "reprocess", cfg.Reprocess, "ingest files even if already processed")
	fs.BoolVar(&cfg.ArchiveOnSuccess, "archive", cfg.ArchiveOnSuccess, "archive files after successful ingestion")
	fs.BoolVar(&opts.stats, "stats", false, "print store statistics and exit")
	fs.BoolVar(&opts.enqueue, "enqueue", false, "publish pending file paths to NATS instead of ingesting")
	fs.BoolVar(&opts.quiet, "quiet", false, "log errors only")

	if err := fs.Parse(args); err != nil {
		return options{}, cfg, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(output, "unexpected arguments: %v\n", fs.Args())
		return options{}, cfg, fmt.Errorf("unexpected arguments")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(output, err)
		return options{}, cfg, err
	}
	return opts, cfg, nil
}

func run(ctx context.Context, cfg config.Config, opts options, stdout io.Writer, logger *slog.Logger) error {
	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{ConnectQueue: opts.enqueue})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	switch {
	case opts.stats:
		stats, err := app.ReportsUC.Stats(ctx)
		if err != nil {
			return err
		}
		printStats(stdout, stats)
		return nil
	case opts.enqueue:
		return enqueue(ctx, app, cfg, stdout)
	}

	summary, err := app.IngestUC.Run(ctx, ports.RunOptions{
		Reprocess: cfg.Reprocess,
		Archive:   cfg.ArchiveOnSuccess,
	})
	if summary != nil {
		printSummary(stdout, summary)
	}
	return err
}

// enqueue hands pending files to workers over NATS. Already-succeeded files are left out
// unless reprocess is set.
func enqueue(ctx context.Context, app *bootstrap.App, cfg config.Config, stdout io.Writer) error {
	inbox, err := localfs.NewInbox(cfg.DataDir, cfg.FilePatterns, app.Logger)
	if err != nil {
		return err
	}
	paths, err := inbox.List(ctx)
	if err != nil {
		return err
	}

	published := 0
	for _, path := range paths {
		if path, err = filepath.Abs(path); err != nil {
			return err
		}
		if !cfg.Reprocess {
			done, err := app.Store.IsAlreadySucceeded(ctx, path)
			if err != nil {
				return err
			}
			if done {
				continue
			}
		}
		if err := app.Queue.PublishFile(ctx, path); err != nil {
			return fmt.Errorf("enqueue %s: %w", path, err)
		}
		published++
	}
	fmt.Fprintf(stdout, "Enqueued %d of %d files\n", published, len(paths))
	return nil
}

func printSummary(w io.Writer, summary *domain.RunSummary) {
	fmt.Fprintf(w, "Run %s: %d attempted, %d succeeded, %d failed, %d skipped in %s\n",
		summary.RunID,
		summary.Attempted,
		summary.Succeeded,
		summary.Failed,
		summary.Skipped,
		summary.Duration.Round(time.Millisecond),
	)
	for _, outcome := range summary.Outcomes {
		line := fmt.Sprintf("  %-7s %-9s %6d  %s", outcome.Status, outcome.Kind, outcome.Records, filepath.Base(outcome.Path))
		if outcome.Error != "" {
			line += "  (" + outcome.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func printStats(w io.Writer, stats domain.Stats) {
	fmt.Fprintf(w, "Files processed:   %d\n", stats.TotalFiles)
	fmt.Fprintf(w, "  succeeded:       %d\n", stats.SuccessFiles)
	fmt.Fprintf(w, "  failed:          %d\n", stats.FailedFiles)
	fmt.Fprintf(w, "Inventory records: %d\n", stats.InventoryCount)
	fmt.Fprintf(w, "Delivery records:  %d\n", stats.DeliveryCount)
}
