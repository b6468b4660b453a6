package httpadapter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/kirillkom/comex-reports-etl/internal/config"
	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/observability/metrics"
)

type reportReaderFake struct {
	stats      domain.Stats
	statsErr   error
	entry      *domain.LedgerEntry
	entryErr   error
	ledger     []domain.LedgerEntry
	inventory  []domain.InventoryRecord
	deliveries []domain.DeliveryRecord

	calls          int
	lastStatus     domain.LedgerStatus
	lastLimit      int
	lastInventory  domain.InventoryFilter
	lastDeliveries domain.DeliveryFilter
}

func (f *reportReaderFake) Stats(context.Context) (domain.Stats, error) {
	f.calls++
	return f.stats, f.statsErr
}

func (f *reportReaderFake) LedgerEntry(_ context.Context, path string) (*domain.LedgerEntry, error) {
	f.calls++
	if f.entryErr != nil {
		return nil, f.entryErr
	}
	return f.entry, nil
}

func (f *reportReaderFake) Ledger(_ context.Context, status domain.LedgerStatus, limit int) ([]domain.LedgerEntry, error) {
	f.calls++
	f.lastStatus = status
	f.lastLimit = limit
	return f.ledger, nil
}

func (f *reportReaderFake) Inventory(_ context.Context, filter domain.InventoryFilter) ([]domain.InventoryRecord, error) {
	f.calls++
	f.lastInventory = filter
	return f.inventory, nil
}

func (f *reportReaderFake) Deliveries(_ context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryRecord, error) {
	f.calls++
	f.lastDeliveries = filter
	return f.deliveries, nil
}

func newTestHandler(t *testing.T, cfg config.Config, reports *reportReaderFake, httpMetrics *metrics.HTTPServerMetrics) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt, err := NewRouter(cfg, reports, httpMetrics, logger)
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return rt.Handler()
}
