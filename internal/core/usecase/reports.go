package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/core/ports"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ReportQueryUseCase serves the read side of the store.
type ReportQueryUseCase struct {
	store  ports.RecordStore
	ledger ports.Ledger
}

func NewReportQueryUseCase(store ports.RecordStore, ledger ports.Ledger) *ReportQueryUseCase {
	return &ReportQueryUseCase{store: store, ledger: ledger}
}

func (uc *ReportQueryUseCase) Stats(ctx context.Context) (domain.Stats, error) {
	stats, err := uc.ledger.Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("load stats: %w", err)
	}
	return stats, nil
}

func (uc *ReportQueryUseCase) LedgerEntry(ctx context.Context, filePath string) (*domain.LedgerEntry, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ledger entry", errors.New("path is required"))
	}
	return uc.ledger.GetLedgerEntry(ctx, filePath)
}

func (uc *ReportQueryUseCase) Ledger(ctx context.Context, status domain.LedgerStatus, limit int) ([]domain.LedgerEntry, error) {
	switch status {
	case "", domain.StatusSuccess, domain.StatusFailed, domain.StatusSkipped:
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "list ledger", fmt.Errorf("unknown status %q", status))
	}
	return uc.ledger.ListLedger(ctx, status, clampLimit(limit))
}

func (uc *ReportQueryUseCase) Inventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryRecord, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list inventory", errors.New("to is before from"))
	}
	filter.Limit = clampLimit(filter.Limit)
	return uc.store.ListInventory(ctx, filter)
}

func (uc *ReportQueryUseCase) Deliveries(ctx context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryRecord, error) {
	filter.Limit = clampLimit(filter.Limit)
	return uc.store.ListDeliveries(ctx, filter)
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}
