package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/comex-reports-etl/internal/config"
	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

func TestParseFlagsOverridesConfig(t *testing.T) {
	var out bytes.Buffer
	opts, cfg, err := parseFlags([]string{
		"-data-dir", "/srv/inbox",
		"-db-driver", "postgres",
		"-db-dsn", "postgres://etl@db/comex",
		"-reprocess",
		"-archive",
		"-quiet",
	}, config.Defaults(), &out)
	if err != nil {
		t.Fatalf("parseFlags() error = %v (%s)", err, out.String())
	}
	if cfg.DataDir != "/srv/inbox" || cfg.DBDriver != "postgres" || cfg.DatabaseDSN != "postgres://etl@db/comex" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !cfg.Reprocess || !cfg.ArchiveOnSuccess || !opts.quiet || opts.stats {
		t.Fatalf("unexpected switches opts=%+v cfg=%+v", opts, cfg)
	}
	if cfg.ArchiveDir != config.Defaults().ArchiveDir {
		t.Fatalf("unset flags must keep loaded values, got %q", cfg.ArchiveDir)
	}
}

func TestParseFlagsRejectsUnknownDriver(t *testing.T) {
	var out bytes.Buffer
	if _, _, err := parseFlags([]string{"-db-driver", "oracle"}, config.Defaults(), &out); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseFlagsRejectsPositionalArgs(t *testing.T) {
	var out bytes.Buffer
	if _, _, err := parseFlags([]string{"extra"}, config.Defaults(), &out); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, &domain.RunSummary{
		RunID:     "run-1",
		Attempted: 2,
		Succeeded: 1,
		Failed:    1,
		Duration:  1500 * time.Millisecond,
		Outcomes: []domain.FileOutcome{
			{Path: "/data/Gold_Stocks.xls", Kind: domain.KindInventory, Status: domain.StatusSuccess, Records: 12},
			{Path: "/data/MetalsIssuesAndStopsReport.pdf", Kind: domain.KindDelivery, Status: domain.StatusFailed, Error: "no valid records extracted"},
		},
	})

	text := out.String()
	for _, want := range []string{
		"Run run-1: 2 attempted, 1 succeeded, 1 failed, 0 skipped in 1.5s",
		"Gold_Stocks.xls",
		"(no valid records extracted)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestPrintStats(t *testing.T) {
	var out bytes.Buffer
	printStats(&out, domain.Stats{TotalFiles: 3, SuccessFiles: 2, FailedFiles: 1, InventoryCount: 40, DeliveryCount: 7})

	if !strings.Contains(out.String(), "Inventory records: 40") || !strings.Contains(out.String(), "Delivery records:  7") {
		t.Fatalf("unexpected stats output:\n%s", out.String())
	}
}
