// Package inventory recovers depository stock figures from exchange inventory spreadsheets.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/extractor/normalize"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/extractor/sheet"
)

const (
	headerScanRows = 15
	minHeaderSkip  = 5
	maxHeaderSkip  = 14
)

const (
	markerActivityDate = "activity date"
	markerReportDate   = "report date"
	markerTroyOunce    = "troy ounce"
)

type Extractor struct {
	logger *slog.Logger
	open   func(path string) (sheet.Grid, error)
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		logger: logger.With("component", "inventory_extractor"),
		open:   sheet.Open,
	}
}

// Extract reads the sheet at path. A missing activity date fails the file with
// domain.ErrMissingMetadata; an undetectable table yields no records and no error.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.InventoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	grid, err := e.open(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory sheet: %w", err)
	}
	return e.Parse(filepath.Base(path), grid)
}

// Parse runs the extraction over an already loaded grid.
func (e *Extractor) Parse(fileName string, grid sheet.Grid) ([]domain.InventoryRecord, error) {
	log := e.logger.With("file", fileName)
	product := DetectProduct(fileName)

	meta := ScanMetadata(grid)
	if meta.ActivityDate.IsZero() {
		log.Error("activity date not found in header rows", "rows_scanned", min(len(grid), headerScanRows))
		return nil, domain.WrapError(domain.ErrMissingMetadata, "extract inventory", errors.New("activity date not found"))
	}
	log.Info("inventory metadata",
		"activity_date", meta.ActivityDate.String(),
		"report_date", meta.ReportDate.String(),
		"unit", meta.Unit,
		"product", string(product),
	)

	headerRow, ok := locateHeader(grid)
	if !ok {
		log.Warn("inventory table not found", "min_offset", minHeaderSkip, "max_offset", maxHeaderSkip)
		return nil, nil
	}
	log.Debug("inventory table located", "header_row", headerRow)

	cols := mapColumns(grid[headerRow])
	depCol, ok := cols[fieldDepository]
	if !ok {
		log.Error("depository column not found", "header_row", headerRow, "header", grid.RowText(headerRow))
		return nil, nil
	}

	records := make([]domain.InventoryRecord, 0, len(grid)-headerRow)
	for r := headerRow + 1; r < len(grid); r++ {
		depository := grid.Cell(r, depCol)
		if skipDepository(depository) {
			continue
		}
		records = append(records, domain.InventoryRecord{
			ActivityDate: meta.ActivityDate,
			Product:      product,
			Depository:   depository,
			Registered:   numericCell(grid, r, cols, fieldRegistered),
			Eligible:     numericCell(grid, r, cols, fieldEligible),
			Total:        numericCell(grid, r, cols, fieldTotal),
			Unit:         meta.Unit,
			ReportDate:   meta.ReportDate,
		})
	}

	log.Info("inventory records parsed", "records", len(records))
	return records, nil
}

// DetectProduct infers the metal from filename tokens.
func DetectProduct(fileName string) domain.Product {
	lower := strings.ToLower(fileName)
	switch {
	case strings.Contains(lower, "gold"):
		return domain.ProductGold
	case strings.Contains(lower, "silver"):
		return domain.ProductSilver
	default:
		return domain.ProductUnknown
	}
}

type Metadata struct {
	ActivityDate domain.Date
	ReportDate   domain.Date
	Unit         string
}

// ScanMetadata looks for the dated preamble lines above the table. When a marker
// repeats, the last row whose date parses wins.
func ScanMetadata(grid sheet.Grid) Metadata {
	var meta Metadata
	for i := 0; i < len(grid) && i < headerScanRows; i++ {
		text := grid.RowText(i)
		lower := strings.ToLower(text)

		if strings.Contains(lower, markerActivityDate) {
			if d := markerDate(grid, i, markerActivityDate); !d.IsZero() {
				meta.ActivityDate = d
			}
		}
		if strings.Contains(lower, markerReportDate) {
			if d := markerDate(grid, i, markerReportDate); !d.IsZero() {
				meta.ReportDate = d
			}
		}
		if meta.Unit == "" && strings.Contains(lower, markerTroyOunce) {
			meta.Unit = "Troy Ounces"
		}
	}
	if meta.Unit == "" {
		meta.Unit = domain.DefaultUnit
	}
	return meta
}

// markerDate parses the value after the colon that follows marker. Unquoted CSV splits
// "January 13, 2024" into two cells, so the row is retried joined with ", ".
func markerDate(grid sheet.Grid, row int, marker string) domain.Date {
	for _, sep := range []string{" ", ", "} {
		value := valueAfterMarker(grid.RowTextSep(row, sep), marker)
		if d, ok := normalize.ParseDate(value); ok {
			return d
		}
	}
	return domain.Date{}
}

func valueAfterMarker(text, marker string) string {
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		// Case folding changed byte offsets; work on the folded copy.
		text = lower
	}
	at := strings.Index(lower, marker)
	if at < 0 {
		return ""
	}
	colon := strings.Index(text[at:], ":")
	if colon < 0 {
		return ""
	}
	value := text[at+colon+1:]

	// A second marker on the same row ends this value.
	lowerValue := strings.ToLower(value)
	for _, other := range []string{markerActivityDate, markerReportDate} {
		if cut := strings.Index(lowerValue, other); cut >= 0 {
			value = value[:cut]
			lowerValue = lowerValue[:cut]
		}
	}
	return strings.TrimSpace(value)
}

// locateHeader probes skip offsets and returns the first row that looks like the table header.
func locateHeader(grid sheet.Grid) (int, bool) {
	for skip := minHeaderSkip; skip <= maxHeaderSkip; skip++ {
		row := firstNonBlankRow(grid, skip)
		if row < 0 {
			return 0, false
		}
		if isTableHeader(grid[row]) {
			return row, true
		}
	}
	return 0, false
}

func firstNonBlankRow(grid sheet.Grid, from int) int {
	for r := from; r < len(grid); r++ {
		if grid.RowText(r) != "" {
			return r
		}
	}
	return -1
}

func isTableHeader(row []string) bool {
	for _, cell := range row {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "depository", "warehouse":
			return true
		}
	}
	return false
}

func skipDepository(name string) bool {
	if name == "" {
		return true
	}
	lower := strings.ToLower(name)
	switch lower {
	case "total", "grand total":
		return true
	}
	return strings.Contains(lower, "depository")
}

func numericCell(grid sheet.Grid, row int, cols map[field]int, f field) *float64 {
	col, ok := cols[f]
	if !ok {
		return nil
	}
	n, ok := normalize.CleanNumeric(grid.Cell(row, col))
	if !ok {
		return nil
	}
	return &n
}
