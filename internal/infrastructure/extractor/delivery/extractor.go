// Package delivery recovers per-contract delivery figures from delivery notice PDFs.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/extractor/normalize"
	"github.com/kirillkom/comex-reports-etl/internal/infrastructure/extractor/pdftext"
)

// lookaheadLines bounds how far past a CONTRACT line the block fields are searched.
const lookaheadLines = 20

const (
	prefixContract    = "CONTRACT:"
	prefixExchange    = "EXCHANGE:"
	prefixIntentDate  = "INTENT DATE:"
	prefixTotal       = "TOTAL:"
	prefixMonthToDate = "MONTH TO DATE:"
)

var (
	intentDatePattern = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)
	integerPattern    = regexp.MustCompile(`\d+(?:,\d{3})*`)
)

type Extractor struct {
	logger *slog.Logger
	pages  func(path string) ([]string, error)
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		logger: logger.With("component", "delivery_extractor"),
		pages:  pdftext.Pages,
	}
}

// Extract scans every page of the notice at path and concatenates the records in page order.
func (e *Extractor) Extract(ctx context.Context, path string, reportType domain.ReportType) ([]domain.DeliveryRecord, error) {
	pages, err := e.pages(path)
	if err != nil {
		return nil, fmt.Errorf("read delivery notice: %w", err)
	}

	source := filepath.Base(path)
	var records []domain.DeliveryRecord
	for i, text := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pageRecords := e.ParsePage(text, source, reportType)
		e.logger.Debug("delivery page scanned", "file", source, "page", i+1, "pages", len(pages), "records", len(pageRecords))
		records = append(records, pageRecords...)
	}

	e.logger.Info("delivery records parsed", "file", source, "report_type", string(reportType), "records", len(records))
	return records, nil
}

// ParsePage walks the page line by line. Each matched CONTRACT line opens a block whose
// fields are searched in a bounded window; the scan always resumes right after the
// CONTRACT line.
func (e *Extractor) ParsePage(text, sourceFile string, reportType domain.ReportType) []domain.DeliveryRecord {
	lines := splitLines(text)
	var records []domain.DeliveryRecord

	for i := 0; i < len(lines); i++ {
		if !hasPrefixFold(lines[i], prefixContract) {
			continue
		}
		contract, ok := matchContract(lines[i])
		if !ok {
			e.logger.Warn("contract line not recognized", "file", sourceFile, "line", i+1, "text", lines[i])
			continue
		}

		block := scanBlock(lines, i+1)
		if block.intentDate.IsZero() {
			e.logger.Debug("contract block without intent date", "file", sourceFile, "line", i+1, "contract", contract.month)
			continue
		}
		if block.stopped == nil && block.cumulative == nil {
			e.logger.Debug("contract block without figures", "file", sourceFile, "line", i+1, "contract", contract.month)
			continue
		}

		records = append(records, domain.DeliveryRecord{
			IntentDate:    block.intentDate,
			Product:       contract.product,
			ContractMonth: contract.month,
			DailyTotal:    block.stopped,
			Cumulative:    block.cumulative,
			ReportType:    reportType,
			SourceFile:    sourceFile,
		})
	}
	return records
}

type blockFields struct {
	intentDate domain.Date
	issued     *int64
	stopped    *int64
	cumulative *int64
}

// scanBlock reads at most lookaheadLines lines from start. Each field keeps its first occurrence.
func scanBlock(lines []string, start int) blockFields {
	var block blockFields
	end := min(len(lines), start+lookaheadLines)
	for j := start; j < end; j++ {
		line := lines[j]
		if hasPrefixFold(line, prefixContract) || hasPrefixFold(line, prefixExchange) {
			break
		}
		switch {
		case hasPrefixFold(line, prefixIntentDate):
			if !block.intentDate.IsZero() {
				continue
			}
			if token := intentDatePattern.FindString(line); token != "" {
				if d, ok := normalize.ParseDate(token); ok {
					block.intentDate = d
				}
			}
		case hasPrefixFold(line, prefixTotal):
			if block.stopped != nil {
				continue
			}
			nums := integers(line)
			switch {
			case len(nums) >= 2:
				block.issued, block.stopped = &nums[0], &nums[1]
			case len(nums) == 1:
				block.stopped = &nums[0]
			}
		case hasPrefixFold(line, prefixMonthToDate):
			if block.cumulative != nil {
				continue
			}
			if nums := integers(line); len(nums) > 0 {
				block.cumulative = &nums[len(nums)-1]
			}
		}
	}
	return block
}

func integers(line string) []int64 {
	tokens := integerPattern.FindAllString(line, -1)
	out := make([]int64, 0, len(tokens))
	for _, token := range tokens {
		if n, ok := normalize.CleanInt(token); ok {
			out = append(out, n)
		}
	}
	return out
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimSpace(line))
	}
	return lines
}

func hasPrefixFold(line, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix)
}
