package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ReportType string

const (
	ReportDaily   ReportType = "Daily"
	ReportMonthly ReportType = "Monthly"
	ReportYTD     ReportType = "YTD"
)

func ParseReportType(s string) (ReportType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return ReportDaily, nil
	case "monthly":
		return ReportMonthly, nil
	case "ytd":
		return ReportYTD, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse report type", fmt.Errorf("unknown report type %q", s))
	}
}

// DeliveryRecord is one contract's delivery activity on one intent date within one report type.
type DeliveryRecord struct {
	IntentDate    Date       `json:"intent_date"`
	Product       string     `json:"product"`
	ContractMonth string     `json:"contract_month"`
	DailyTotal    *int64     `json:"daily_total"`
	Cumulative    *int64     `json:"cumulative"`
	ReportType    ReportType `json:"report_type"`
	SourceFile    string     `json:"source_file"`
}

type DeliveryKey struct {
	IntentDate    Date
	Product       string
	ContractMonth string
	ReportType    ReportType
}

func (r DeliveryRecord) Key() DeliveryKey {
	return DeliveryKey{
		IntentDate:    r.IntentDate,
		Product:       r.Product,
		ContractMonth: r.ContractMonth,
		ReportType:    r.ReportType,
	}
}

func (r DeliveryRecord) Validate() error {
	if r.IntentDate.IsZero() {
		return WrapError(ErrInvalidInput, "validate delivery record", errors.New("intent date is required"))
	}
	if r.Product == "" || r.ContractMonth == "" || r.ReportType == "" {
		return WrapError(ErrInvalidInput, "validate delivery record", errors.New("product, contract month and report type are required"))
	}
	if r.DailyTotal == nil && r.Cumulative == nil {
		return WrapError(ErrInvalidInput, "validate delivery record", errors.New("daily total or cumulative is required"))
	}
	return nil
}

// DeliveryFilter narrows delivery queries. Product matches as a literal case-insensitive substring.
type DeliveryFilter struct {
	Product    string
	ReportType ReportType
	Limit      int
}
