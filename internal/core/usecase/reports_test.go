package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

func TestReportQueryClampsLimits(t *testing.T) {
	store := &storeFake{}
	ledger := newLedgerFake()
	uc := NewReportQueryUseCase(store, ledger)

	if _, err := uc.Inventory(context.Background(), domain.InventoryFilter{}); err != nil {
		t.Fatalf("Inventory() error = %v", err)
	}
	if store.inventoryQuery.Limit != defaultListLimit {
		t.Fatalf("expected default limit, got %d", store.inventoryQuery.Limit)
	}
	if _, err := uc.Deliveries(context.Background(), domain.DeliveryFilter{Limit: 50000}); err != nil {
		t.Fatalf("Deliveries() error = %v", err)
	}
	if store.deliveryQuery.Limit != maxListLimit {
		t.Fatalf("expected max limit, got %d", store.deliveryQuery.Limit)
	}
	if _, err := uc.Ledger(context.Background(), "", 25); err != nil {
		t.Fatalf("Ledger() error = %v", err)
	}
	if ledger.lastLimit != 25 {
		t.Fatalf("expected limit 25, got %d", ledger.lastLimit)
	}
}

func TestReportQueryRejectsInvalidInput(t *testing.T) {
	uc := NewReportQueryUseCase(&storeFake{}, newLedgerFake())
	ctx := context.Background()

	if _, err := uc.Ledger(ctx, "pending", 10); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for status, got %v", err)
	}
	_, err := uc.Inventory(ctx, domain.InventoryFilter{From: domain.NewDate(2024, 2, 1), To: domain.NewDate(2024, 1, 1)})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for range, got %v", err)
	}
	if _, err := uc.LedgerEntry(ctx, "  "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for path, got %v", err)
	}
}

func TestReportQueryLedgerEntryNotFound(t *testing.T) {
	uc := NewReportQueryUseCase(&storeFake{}, newLedgerFake())
	if _, err := uc.LedgerEntry(context.Background(), "/data/missing.pdf"); !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
