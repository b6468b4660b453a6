package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

type inventoryExtractorFake struct {
	records map[string][]domain.InventoryRecord
	errs    map[string]error
	calls   []string
}

func (f *inventoryExtractorFake) Extract(_ context.Context, path string) ([]domain.InventoryRecord, error) {
	f.calls = append(f.calls, path)
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	return f.records[path], nil
}

type deliveryExtractorFake struct {
	records     map[string][]domain.DeliveryRecord
	err         error
	reportTypes []domain.ReportType
}

func (f *deliveryExtractorFake) Extract(_ context.Context, path string, reportType domain.ReportType) ([]domain.DeliveryRecord, error) {
	f.reportTypes = append(f.reportTypes, reportType)
	if f.err != nil {
		return nil, f.err
	}
	return f.records[path], nil
}

type storeFake struct {
	inventory      []domain.InventoryRecord
	deliveries     []domain.DeliveryRecord
	upsertErr      error
	inventoryQuery domain.InventoryFilter
	deliveryQuery  domain.DeliveryFilter
}

func (f *storeFake) UpsertInventory(_ context.Context, records []domain.InventoryRecord) (int64, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.inventory = append(f.inventory, records...)
	return int64(len(records)), nil
}

func (f *storeFake) UpsertDelivery(_ context.Context, records []domain.DeliveryRecord) (int64, error) {
	if f.upsertErr != nil {
		return 0, f.upsertErr
	}
	f.deliveries = append(f.deliveries, records...)
	return int64(len(records)), nil
}

func (f *storeFake) ListInventory(_ context.Context, filter domain.InventoryFilter) ([]domain.InventoryRecord, error) {
	f.inventoryQuery = filter
	return f.inventory, nil
}

func (f *storeFake) ListDeliveries(_ context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryRecord, error) {
	f.deliveryQuery = filter
	return f.deliveries, nil
}

type ledgerFake struct {
	mu        sync.Mutex
	entries   map[string]domain.LedgerEntry
	writes    []domain.LedgerEntry
	recordErr error
	lastLimit int
}

func newLedgerFake() *ledgerFake {
	return &ledgerFake{entries: map[string]domain.LedgerEntry{}}
}

func (f *ledgerFake) RecordLedger(_ context.Context, entry domain.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	entry.ProcessedAt = time.Now().UTC()
	f.entries[entry.FilePath] = entry
	f.writes = append(f.writes, entry)
	return nil
}

func (f *ledgerFake) IsAlreadySucceeded(_ context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[path].Status == domain.StatusSuccess, nil
}

func (f *ledgerFake) GetLedgerEntry(_ context.Context, path string) (*domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[path]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get ledger entry", errors.New(path))
	}
	return &entry, nil
}

func (f *ledgerFake) ListLedger(_ context.Context, status domain.LedgerStatus, limit int) ([]domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	out := make([]domain.LedgerEntry, 0, len(f.entries))
	for _, e := range f.entries {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilePath < out[j].FilePath })
	return out, nil
}

func (f *ledgerFake) Stats(context.Context) (domain.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s domain.Stats
	for _, e := range f.entries {
		s.TotalFiles++
		switch e.Status {
		case domain.StatusSuccess:
			s.SuccessFiles++
		case domain.StatusFailed:
			s.FailedFiles++
		}
	}
	return s, nil
}

type fileSourceFake struct {
	paths []string
	sizes map[string]int64
}

func (f *fileSourceFake) List(context.Context) ([]string, error) { return f.paths, nil }

func (f *fileSourceFake) Stat(_ context.Context, path string) (int64, error) {
	return f.sizes[path], nil
}

type archiverFake struct {
	archived []string
	err      error
}

func (f *archiverFake) Archive(_ context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.archived = append(f.archived, path)
	return "/archive/" + path, nil
}

type publisherFake struct {
	events []domain.FileProcessedEvent
	err    error
}

func (f *publisherFake) PublishFileProcessed(_ context.Context, event domain.FileProcessedEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type observerFake struct {
	started  int
	finished map[domain.LedgerStatus]int
}

func (f *observerFake) FileStarted() { f.started++ }

func (f *observerFake) FileFinished(_ domain.DocumentKind, status domain.LedgerStatus, _ int64, _ time.Duration) {
	if f.finished == nil {
		f.finished = map[domain.LedgerStatus]int{}
	}
	f.finished[status]++
}
