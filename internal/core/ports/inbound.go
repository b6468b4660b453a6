package ports

import (
	"context"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

// FileIngestor is the inbound contract for ingesting report files.
type FileIngestor interface {
	IngestPath(ctx context.Context, path string, reprocess bool) (*domain.FileOutcome, error)
	Run(ctx context.Context, opts RunOptions) (*domain.RunSummary, error)
}

type RunOptions struct {
	Reprocess bool
	Archive   bool
}

// ReportReader is the inbound read model used by the API.
type ReportReader interface {
	Stats(ctx context.Context) (domain.Stats, error)
	LedgerEntry(ctx context.Context, filePath string) (*domain.LedgerEntry, error)
	Ledger(ctx context.Context, status domain.LedgerStatus, limit int) ([]domain.LedgerEntry, error)
	Inventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryRecord, error)
	Deliveries(ctx context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryRecord, error)
}
