package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/core/ports"
)

const (
	msgNoRecords   = "no valid records extracted"
	msgUnknownType = "unknown file type"
)

// IngestUseCase runs report files through extraction, storage and the processing ledger.
type IngestUseCase struct {
	inventory ports.InventoryExtractor
	delivery  ports.DeliveryExtractor
	store     ports.RecordStore
	ledger    ports.Ledger
	files     ports.FileSource
	archiver  ports.Archiver
	events    ports.EventPublisher
	observer  ports.IngestObserver
	logger    *slog.Logger
}

// NewIngestUseCase wires the pipeline. archiver, events and observer may be nil.
func NewIngestUseCase(
	inventory ports.InventoryExtractor,
	delivery ports.DeliveryExtractor,
	store ports.RecordStore,
	ledger ports.Ledger,
	files ports.FileSource,
	archiver ports.Archiver,
	events ports.EventPublisher,
	observer ports.IngestObserver,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		inventory: inventory,
		delivery:  delivery,
		store:     store,
		ledger:    ledger,
		files:     files,
		archiver:  archiver,
		events:    events,
		observer:  observer,
		logger:    logger.With("component", "ingest"),
	}
}

// IngestPath processes a single file. Files already recorded as successful are left
// alone unless reprocess is set. A non-nil error means storage failed and the caller
// should stop.
func (uc *IngestUseCase) IngestPath(ctx context.Context, path string, reprocess bool) (*domain.FileOutcome, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "resolve path", err)
	}
	if !reprocess {
		done, err := uc.ledger.IsAlreadySucceeded(ctx, abs)
		if err != nil {
			return nil, fmt.Errorf("check ledger: %w", err)
		}
		if done {
			uc.logger.Info("file already processed", "path", abs)
			return &domain.FileOutcome{
				Path:        abs,
				Kind:        ClassifyFile(abs),
				Status:      domain.StatusSuccess,
				AlreadyDone: true,
			}, nil
		}
	}
	return uc.processFile(ctx, "", abs)
}

// Run ingests every pending file from the file source in sorted order.
func (uc *IngestUseCase) Run(ctx context.Context, opts ports.RunOptions) (*domain.RunSummary, error) {
	started := time.Now()
	summary := &domain.RunSummary{RunID: uuid.NewString(), Outcomes: []domain.FileOutcome{}}
	log := uc.logger.With("run_id", summary.RunID)

	pending, err := uc.pendingFiles(ctx, opts.Reprocess)
	if err != nil {
		return summary, err
	}
	log.Info("etl run started", "files", len(pending), "reprocess", opts.Reprocess, "archive", opts.Archive)

	for _, path := range pending {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(started)
			return summary, err
		}

		outcome, err := uc.processFile(ctx, summary.RunID, path)
		if outcome != nil {
			summary.Attempted++
			summary.Outcomes = append(summary.Outcomes, *outcome)
			switch outcome.Status {
			case domain.StatusSuccess:
				summary.Succeeded++
			case domain.StatusFailed:
				summary.Failed++
			case domain.StatusSkipped:
				summary.Skipped++
			}
		}
		if err != nil {
			summary.Duration = time.Since(started)
			log.Error("etl run aborted", "path", path, "error", err)
			return summary, err
		}

		if opts.Archive && outcome.Status == domain.StatusSuccess {
			uc.Archive(ctx, path)
		}
	}

	summary.Duration = time.Since(started)
	log.Info("etl run finished",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration_ms", summary.Duration.Milliseconds(),
	)
	return summary, nil
}

func (uc *IngestUseCase) pendingFiles(ctx context.Context, reprocess bool) ([]string, error) {
	listed, err := uc.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list report files: %w", err)
	}

	pending := make([]string, 0, len(listed))
	for _, path := range listed {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "resolve path", err)
		}
		if !reprocess {
			done, err := uc.ledger.IsAlreadySucceeded(ctx, abs)
			if err != nil {
				return nil, fmt.Errorf("check ledger: %w", err)
			}
			if done {
				continue
			}
		}
		pending = append(pending, abs)
	}
	return pending, nil
}

// processFile writes exactly one ledger row for the attempt. Extraction problems become
// failed rows; storage errors are returned after the failed row is written.
func (uc *IngestUseCase) processFile(ctx context.Context, runID, path string) (*domain.FileOutcome, error) {
	started := time.Now()
	if uc.observer != nil {
		uc.observer.FileStarted()
	}

	name := filepath.Base(path)
	kind := ClassifyFile(name)
	log := uc.logger.With("file", name, "kind", string(kind))
	outcome := &domain.FileOutcome{Path: path, Kind: kind}

	size, statErr := uc.files.Stat(ctx, path)
	if statErr != nil {
		log.Warn("stat report file", "error", statErr)
	}

	var (
		records  int64
		err      error
		storeErr *storeError
	)
	switch kind {
	case domain.KindInventory:
		records, err = uc.ingestInventory(ctx, path)
	case domain.KindDelivery:
		outcome.ReportType = DetectReportType(name)
		records, err = uc.ingestDelivery(ctx, path, outcome.ReportType)
	default:
		outcome.Status = domain.StatusSkipped
		outcome.Error = msgUnknownType
		log.Warn("skipping file of unknown type")
	}

	if kind != domain.KindUnknown {
		switch {
		case errors.As(err, &storeErr):
			outcome.Status = domain.StatusFailed
			outcome.Error = storeErr.Error()
		case err != nil:
			outcome.Status = domain.StatusFailed
			outcome.Error = err.Error()
			log.Error("file processing failed", "error", err)
		case records == 0:
			outcome.Status = domain.StatusFailed
			outcome.Error = msgNoRecords
			log.Warn(msgNoRecords)
		default:
			outcome.Status = domain.StatusSuccess
			outcome.Records = records
		}
	}
	outcome.Duration = time.Since(started)

	ledgerErr := uc.ledger.RecordLedger(ctx, domain.LedgerEntry{
		FilePath:        path,
		FileName:        name,
		FileType:        kind,
		FileSize:        size,
		Status:          outcome.Status,
		RecordsInserted: outcome.Records,
		ErrorMessage:    outcome.Error,
	})

	if uc.observer != nil {
		uc.observer.FileFinished(kind, outcome.Status, outcome.Records, outcome.Duration)
	}
	if ledgerErr == nil {
		uc.publish(ctx, runID, outcome)
	}

	if storeErr != nil {
		log.Error("store records", "error", storeErr.err)
		if ledgerErr != nil {
			return outcome, fmt.Errorf("%w; record ledger: %v", storeErr.err, ledgerErr)
		}
		return outcome, storeErr.err
	}
	if ledgerErr != nil {
		return outcome, fmt.Errorf("record ledger: %w", ledgerErr)
	}

	log.Info("file processed",
		"status", string(outcome.Status),
		"records", outcome.Records,
		"duration_ms", outcome.Duration.Milliseconds(),
	)
	return outcome, nil
}

// storeError marks a storage failure, which aborts the run unlike extraction failures.
type storeError struct {
	err error
}

func (e *storeError) Error() string { return e.err.Error() }

func (e *storeError) Unwrap() error { return e.err }

// upsertFailure only escalates systemic storage faults. Rejected records fail the file.
func upsertFailure(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	if domain.IsKind(err, domain.ErrStorage) {
		return &storeError{err: wrapped}
	}
	return wrapped
}

func (uc *IngestUseCase) ingestInventory(ctx context.Context, path string) (int64, error) {
	records, err := uc.inventory.Extract(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("extract inventory: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	n, err := uc.store.UpsertInventory(ctx, records)
	if err != nil {
		return 0, upsertFailure("upsert inventory", err)
	}
	return n, nil
}

func (uc *IngestUseCase) ingestDelivery(ctx context.Context, path string, reportType domain.ReportType) (int64, error) {
	records, err := uc.delivery.Extract(ctx, path, reportType)
	if err != nil {
		return 0, fmt.Errorf("extract delivery notice: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	n, err := uc.store.UpsertDelivery(ctx, records)
	if err != nil {
		return 0, upsertFailure("upsert delivery", err)
	}
	return n, nil
}

// Archive moves a processed file out of the inbox. Failures are logged, never returned.
func (uc *IngestUseCase) Archive(ctx context.Context, path string) {
	if uc.archiver == nil {
		return
	}
	dest, err := uc.archiver.Archive(ctx, path)
	if err != nil {
		uc.logger.Error("archive file", "path", path, "error", err)
		return
	}
	uc.logger.Info("file archived", "path", path, "archived_to", dest)
}

func (uc *IngestUseCase) publish(ctx context.Context, runID string, outcome *domain.FileOutcome) {
	if uc.events == nil {
		return
	}
	event := domain.FileProcessedEvent{
		RunID:       runID,
		FilePath:    outcome.Path,
		FileName:    filepath.Base(outcome.Path),
		Kind:        outcome.Kind,
		Status:      outcome.Status,
		Records:     outcome.Records,
		Error:       outcome.Error,
		ProcessedAt: time.Now().UTC(),
	}
	if err := uc.events.PublishFileProcessed(ctx, event); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		uc.logger.Warn("publish file processed event", "path", outcome.Path, "error", err)
	}
}
