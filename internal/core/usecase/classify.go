package usecase

import (
	"path/filepath"
	"strings"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

// ClassifyFile decides which extractor handles a file. Filename tokens take
// precedence over the extension.
func ClassifyFile(name string) domain.DocumentKind {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.Contains(lower, "stock"):
		return domain.KindInventory
	case strings.Contains(lower, "delivery"), strings.Contains(lower, "notice"):
		return domain.KindDelivery
	}

	switch filepath.Ext(lower) {
	case ".csv", ".xls", ".xlsx":
		return domain.KindInventory
	case ".pdf":
		return domain.KindDelivery
	default:
		return domain.KindUnknown
	}
}

// DetectReportType reads the delivery report period from the filename, defaulting to daily.
func DetectReportType(name string) domain.ReportType {
	lower := strings.ToLower(filepath.Base(name))
	switch {
	case strings.Contains(lower, "daily"):
		return domain.ReportDaily
	case strings.Contains(lower, "monthly"):
		return domain.ReportMonthly
	case strings.Contains(lower, "ytd"), strings.Contains(lower, "year"):
		return domain.ReportYTD
	default:
		return domain.ReportDaily
	}
}
