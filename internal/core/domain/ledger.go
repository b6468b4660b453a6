package domain

import "time"

// DocumentKind is the classification of a source file.
type DocumentKind string

const (
	KindInventory DocumentKind = "inventory"
	KindDelivery  DocumentKind = "delivery"
	KindUnknown   DocumentKind = "unknown"
)

type LedgerStatus string

const (
	StatusSuccess LedgerStatus = "success"
	StatusFailed  LedgerStatus = "failed"
	StatusSkipped LedgerStatus = "skipped"
)

// LedgerEntry describes the most recent ingestion attempt for one file path.
type LedgerEntry struct {
	FilePath        string       `json:"file_path"`
	FileName        string       `json:"file_name"`
	FileType        DocumentKind `json:"file_type"`
	FileSize        int64        `json:"file_size"`
	ProcessedAt     time.Time    `json:"processed_at"`
	Status          LedgerStatus `json:"status"`
	RecordsInserted int64        `json:"records_inserted"`
	ErrorMessage    string       `json:"error_message,omitempty"`
}

type Stats struct {
	TotalFiles     int64 `json:"total_files"`
	SuccessFiles   int64 `json:"success_files"`
	FailedFiles    int64 `json:"failed_files"`
	InventoryCount int64 `json:"inventory_count"`
	DeliveryCount  int64 `json:"delivery_count"`
}

// FileOutcome is what the orchestrator reports for a single file.
type FileOutcome struct {
	Path       string        `json:"path"`
	Kind       DocumentKind  `json:"kind"`
	ReportType ReportType    `json:"report_type,omitempty"`
	Status     LedgerStatus  `json:"status"`
	Records    int64         `json:"records"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	// AlreadyDone is set when the ledger already held a success and the file was not reprocessed.
	AlreadyDone bool `json:"already_done,omitempty"`
}

type RunSummary struct {
	RunID     string        `json:"run_id"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration_ns"`
	Outcomes  []FileOutcome `json:"outcomes"`
}

// FileProcessedEvent is published after each ledger write.
type FileProcessedEvent struct {
	RunID       string       `json:"run_id,omitempty"`
	FilePath    string       `json:"file_path"`
	FileName    string       `json:"file_name"`
	Kind        DocumentKind `json:"kind"`
	Status      LedgerStatus `json:"status"`
	Records     int64        `json:"records"`
	Error       string       `json:"error,omitempty"`
	ProcessedAt time.Time    `json:"processed_at"`
}
