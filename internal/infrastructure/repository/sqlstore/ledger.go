package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

const recordLedgerQuery = `
INSERT INTO file_processing_log (
	file_path, file_name, file_type, file_size, processed_at, status, records_inserted, error_message
) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT (file_path) DO UPDATE SET
	file_name = excluded.file_name,
	file_type = excluded.file_type,
	file_size = excluded.file_size,
	processed_at = excluded.processed_at,
	status = excluded.status,
	records_inserted = excluded.records_inserted,
	error_message = excluded.error_message
`

const ledgerColumns = `file_path, file_name, file_type, file_size, processed_at, status, records_inserted, error_message`

// RecordLedger replaces the ledger row for entry.FilePath. processed_at is always
// set to the current time regardless of entry.ProcessedAt.
func (s *Store) RecordLedger(ctx context.Context, entry domain.LedgerEntry) error {
	if strings.TrimSpace(entry.FilePath) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record ledger", errors.New("file path is required"))
	}
	query := s.rebind(recordLedgerQuery)
	processedAt := s.timeValue(s.now())

	_, err := s.inTx(ctx, "record ledger", func(tx *sql.Tx) (int64, error) {
		res, err := tx.ExecContext(ctx, query,
			entry.FilePath, entry.FileName, string(entry.FileType), entry.FileSize, processedAt,
			string(entry.Status), entry.RecordsInserted, nullString(entry.ErrorMessage),
		)
		if err != nil {
			return 0, fmt.Errorf("upsert ledger row: %w", err)
		}
		return rowsAffected(res), nil
	})
	return err
}

func (s *Store) IsAlreadySucceeded(ctx context.Context, filePath string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT 1 FROM file_processing_log WHERE file_path = ? AND status = ?`),
		filePath, string(domain.StatusSuccess),
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, domain.WrapError(domain.ErrStorage, "check ledger", err)
	}
	return true, nil
}

func (s *Store) GetLedgerEntry(ctx context.Context, filePath string) (*domain.LedgerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+ledgerColumns+` FROM file_processing_log WHERE file_path = ?`),
		filePath,
	)
	entry, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get ledger entry", fmt.Errorf("no ledger row for %s", filePath))
		}
		return nil, domain.WrapError(domain.ErrStorage, "get ledger entry", err)
	}
	return &entry, nil
}

// ListLedger returns the newest entries first. An empty status lists every entry.
func (s *Store) ListLedger(ctx context.Context, status domain.LedgerStatus, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM file_processing_log`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY processed_at DESC, file_path`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list ledger", err)
	}
	defer rows.Close()

	out := make([]domain.LedgerEntry, 0)
	for rows.Next() {
		entry, err := scanLedger(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan ledger", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate ledger", err)
	}
	return out, nil
}

func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.QueryRowContext(ctx, s.rebind(`
SELECT
	(SELECT COUNT(*) FROM file_processing_log),
	(SELECT COUNT(*) FROM file_processing_log WHERE status = ?),
	(SELECT COUNT(*) FROM file_processing_log WHERE status = ?),
	(SELECT COUNT(*) FROM inventory_history),
	(SELECT COUNT(*) FROM delivery_notices)
`), string(domain.StatusSuccess), string(domain.StatusFailed)).Scan(
		&stats.TotalFiles, &stats.SuccessFiles, &stats.FailedFiles, &stats.InventoryCount, &stats.DeliveryCount,
	)
	if err != nil {
		return domain.Stats{}, domain.WrapError(domain.ErrStorage, "processing stats", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (domain.LedgerEntry, error) {
	var (
		entry       domain.LedgerEntry
		fileType    string
		status      string
		size        sql.NullInt64
		processedAt timeColumn
		errMessage  sql.NullString
	)
	if err := row.Scan(
		&entry.FilePath, &entry.FileName, &fileType, &size, &processedAt,
		&status, &entry.RecordsInserted, &errMessage,
	); err != nil {
		return domain.LedgerEntry{}, err
	}
	entry.FileType = domain.DocumentKind(fileType)
	entry.FileSize = size.Int64
	entry.ProcessedAt = processedAt.Time
	entry.Status = domain.LedgerStatus(status)
	entry.ErrorMessage = errMessage.String
	return entry, nil
}
