package ports

import (
	"context"
	"time"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

// InventoryExtractor turns an inventory spreadsheet into canonical records.
type InventoryExtractor interface {
	Extract(ctx context.Context, path string) ([]domain.InventoryRecord, error)
}

// DeliveryExtractor turns a delivery notice PDF into canonical records.
type DeliveryExtractor interface {
	Extract(ctx context.Context, path string, reportType domain.ReportType) ([]domain.DeliveryRecord, error)
}

// RecordStore persists records with composite-key upserts.
type RecordStore interface {
	UpsertInventory(ctx context.Context, records []domain.InventoryRecord) (int64, error)
	UpsertDelivery(ctx context.Context, records []domain.DeliveryRecord) (int64, error)
	ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryRecord, error)
	ListDeliveries(ctx context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryRecord, error)
}

// Ledger tracks the latest ingestion attempt per file path.
type Ledger interface {
	RecordLedger(ctx context.Context, entry domain.LedgerEntry) error
	IsAlreadySucceeded(ctx context.Context, filePath string) (bool, error)
	GetLedgerEntry(ctx context.Context, filePath string) (*domain.LedgerEntry, error)
	ListLedger(ctx context.Context, status domain.LedgerStatus, limit int) ([]domain.LedgerEntry, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// FileSource lists candidate report files and describes them.
type FileSource interface {
	List(ctx context.Context) ([]string, error)
	Stat(ctx context.Context, path string) (size int64, err error)
}

// Archiver moves successfully ingested files out of the inbox.
type Archiver interface {
	Archive(ctx context.Context, path string) (string, error)
}

// EventPublisher announces ledger outcomes to downstream consumers.
type EventPublisher interface {
	PublishFileProcessed(ctx context.Context, event domain.FileProcessedEvent) error
}

// IngestObserver receives per-file measurements.
type IngestObserver interface {
	FileStarted()
	FileFinished(kind domain.DocumentKind, status domain.LedgerStatus, records int64, duration time.Duration)
}
