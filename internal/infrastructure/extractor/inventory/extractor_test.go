package inventory

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/extractor/sheet"
)

func newTestExtractor() *Extractor {
	return NewExtractor(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func preamble(lines ...string) sheet.Grid {
	grid := sheet.Grid{}
	for _, line := range lines {
		grid = append(grid, []string{line})
	}
	for len(grid) < 6 {
		grid = append(grid, []string{})
	}
	return grid
}

func TestParseSingleDepositoryRow(t *testing.T) {
	grid := preamble("COMEX Gold Stocks", "Activity Date: January 13, 2024", "Troy Ounce")
	grid = append(grid,
		[]string{"Depository", "Registered", "Eligible", "Total"},
		[]string{"ACME Vault", "1,000", "2,000", "3,000"},
	)

	records, err := newTestExtractor().Parse("gold_stocks.xls", grid)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.ActivityDate != domain.NewDate(2024, 1, 13) {
		t.Fatalf("unexpected activity date %s", rec.ActivityDate)
	}
	if rec.Depository != "ACME Vault" || rec.Product != domain.ProductGold {
		t.Fatalf("unexpected identity %+v", rec)
	}
	if rec.Registered == nil || *rec.Registered != 1000 {
		t.Fatalf("unexpected registered %v", rec.Registered)
	}
	if rec.Eligible == nil || *rec.Eligible != 2000 {
		t.Fatalf("unexpected eligible %v", rec.Eligible)
	}
	if rec.Total == nil || *rec.Total != 3000 {
		t.Fatalf("unexpected total %v", rec.Total)
	}
	if rec.Unit != domain.DefaultUnit {
		t.Fatalf("unexpected unit %q", rec.Unit)
	}
	if !rec.ReportDate.IsZero() {
		t.Fatalf("report date should be absent, got %s", rec.ReportDate)
	}
}

func TestParseDropsSummaryAndRepeatedHeaderRows(t *testing.T) {
	grid := preamble("Activity Date: 01/13/2024")
	grid = append(grid,
		[]string{"Depository", "Registered", "Eligible", "Total"},
		[]string{"ACME Vault", "10", "20", "30"},
		[]string{"", "1", "1", "1"},
		[]string{"Depository", "Registered", "Eligible", "Total"},
		[]string{"Grand Total", "999", "999", "999"},
		[]string{"TOTAL", "5", "5", "5"},
		[]string{"Beta Depository Inc"},
		[]string{"Gamma Vault", "N/A", "-", ""},
	)

	records, err := newTestExtractor().Parse("silver_stocks.csv", grid)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	for _, rec := range records {
		if rec.Depository == "Grand Total" || rec.Depository == "TOTAL" {
			t.Fatalf("summary row leaked: %+v", rec)
		}
		if rec.Product != domain.ProductSilver {
			t.Fatalf("unexpected product %q", rec.Product)
		}
	}
	gamma := records[1]
	if gamma.Depository != "Gamma Vault" {
		t.Fatalf("unexpected second record %+v", gamma)
	}
	if gamma.Registered != nil || gamma.Eligible != nil || gamma.Total != nil {
		t.Fatalf("placeholder values must be absent: %+v", gamma)
	}
}

func TestParseMissingActivityDateFailsFile(t *testing.T) {
	grid := preamble("Report Date: 01/14/2024")
	grid = append(grid,
		[]string{"Depository", "Registered"},
		[]string{"ACME Vault", "10"},
	)

	records, err := newTestExtractor().Parse("gold.csv", grid)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrMissingMetadata) {
		t.Fatalf("expected ErrMissingMetadata, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestParseWithoutTableYieldsNoRecords(t *testing.T) {
	grid := preamble("Activity Date: 01/13/2024")
	grid = append(grid, []string{"Vault", "Registered"}, []string{"ACME", "10"})

	records, err := newTestExtractor().Parse("gold.csv", grid)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestParseIgnoresHeaderAboveProbeRange(t *testing.T) {
	grid := sheet.Grid{
		{"Activity Date: 01/13/2024"},
		{"Depository", "Total"},
		{"ACME", "10"},
	}
	records, err := newTestExtractor().Parse("gold.csv", grid)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("header before offset %d must not be used, got %d records", minHeaderSkip, len(records))
	}
}

func TestParseHeaderFoundAfterTitleRows(t *testing.T) {
	grid := preamble("Activity Date: 01/13/2024", "Report Date: 01/14/2024")
	grid = append(grid,
		[]string{"Metal Depository Statistics"},
		[]string{""},
		[]string{"WAREHOUSE", "REGISTERED", "ELIGIBLE", "TOTAL"},
		[]string{"Vault One", "1", "2", "3"},
	)

	records, err := newTestExtractor().Parse("unknown.csv", grid)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Product != domain.ProductUnknown {
		t.Fatalf("unexpected product %q", records[0].Product)
	}
	if records[0].ReportDate != domain.NewDate(2024, 1, 14) {
		t.Fatalf("unexpected report date %s", records[0].ReportDate)
	}
}

func TestMapColumnsFirstMatchWins(t *testing.T) {
	cols := mapColumns([]string{"Depository Name", "Registered Total", "Eligible", "Prev Total", "Total Today", "Warehouse"})
	if cols[fieldDepository] != 0 {
		t.Fatalf("depository bound to %d", cols[fieldDepository])
	}
	if cols[fieldRegistered] != 1 {
		t.Fatalf("registered bound to %d", cols[fieldRegistered])
	}
	if cols[fieldEligible] != 2 {
		t.Fatalf("eligible bound to %d", cols[fieldEligible])
	}
	if cols[fieldTotal] != 3 {
		t.Fatalf("total must bind to the first total column, got %d", cols[fieldTotal])
	}
}

func TestScanMetadataJoinsSplitCSVDate(t *testing.T) {
	grid := sheet.Grid{
		{"Activity Date: January 13", " 2024"},
		{"Report Date: 1/14/2024"},
	}
	meta := ScanMetadata(grid)
	if meta.ActivityDate != domain.NewDate(2024, 1, 13) {
		t.Fatalf("unexpected activity date %s", meta.ActivityDate)
	}
	if meta.ReportDate != domain.NewDate(2024, 1, 14) {
		t.Fatalf("unexpected report date %s", meta.ReportDate)
	}
}

func TestScanMetadataLastParsedDateWins(t *testing.T) {
	grid := sheet.Grid{
		{"Activity Date: 1/10/2024"},
		{"Report Date: 1/11/2024", "Activity Date: 1/12/2024"},
		{"Activity Date: pending"},
		{"Report Date: 1/14/2024"},
	}
	meta := ScanMetadata(grid)
	if meta.ActivityDate != domain.NewDate(2024, 1, 12) {
		t.Fatalf("expected the last parsable activity date, got %s", meta.ActivityDate)
	}
	if meta.ReportDate != domain.NewDate(2024, 1, 14) {
		t.Fatalf("expected the last report date, got %s", meta.ReportDate)
	}
}

func TestDetectProduct(t *testing.T) {
	cases := map[string]domain.Product{
		"20240113_gold_stocks.xls":   domain.ProductGold,
		"Silver_stocks.xlsx":         domain.ProductSilver,
		"20240113_platinum_pall.xls": domain.ProductUnknown,
	}
	for name, want := range cases {
		if got := DetectProduct(name); got != want {
			t.Fatalf("DetectProduct(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExtractReadsCSVFile(t *testing.T) {
	content := "COMEX Silver Stocks\n" +
		"\"Activity Date: January 13, 2024\"\n" +
		"Troy Ounce\n" +
		"x\n" +
		"y\n" +
		"z\n" +
		"Depository,Registered,Eligible,Total\n" +
		"\"ACME Vault\",\"1,000\",\"2,000\",\"3,000\"\n" +
		"Total,\"1,000\",\"2,000\",\"3,000\"\n"
	path := filepath.Join(t.TempDir(), "20240113_silver_stocks.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	records, err := newTestExtractor().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Product != domain.ProductSilver || *records[0].Total != 3000 {
		t.Fatalf("unexpected record %+v", records[0])
	}
}

func TestExtractReadsXLSXFile(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)
	rows := [][]any{
		{"COMEX Gold Stocks"},
		{"Activity Date: 01/13/2024"},
		{"-"},
		{"-"},
		{"-"},
		{"-"},
		{"Depository", "Registered", "Eligible", "Total"},
		{"ACME Vault", "1,000", "2,000", "3,000"},
		{"Grand Total", "1,000", "2,000", "3,000"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "gold_stocks.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() error = %v", err)
	}

	records, err := newTestExtractor().Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(records) != 1 || records[0].Depository != "ACME Vault" {
		t.Fatalf("unexpected records %+v", records)
	}
}
