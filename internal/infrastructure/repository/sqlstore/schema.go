package sqlstore

import (
	"context"
	"fmt"
)

// schemaLockID serializes bootstrap DDL across etl, api and worker startups on PostgreSQL.
const schemaLockID int64 = 2026011301

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS inventory_history (
	activity_date TEXT NOT NULL,
	product TEXT NOT NULL,
	depository TEXT NOT NULL,
	registered REAL,
	eligible REAL,
	total REAL,
	unit TEXT,
	report_date TEXT,
	created_at TEXT NOT NULL,
	PRIMARY KEY (activity_date, product, depository)
)`,
	`CREATE TABLE IF NOT EXISTS delivery_notices (
	intent_date TEXT NOT NULL,
	product TEXT NOT NULL,
	contract_month TEXT NOT NULL,
	daily_total INTEGER,
	cumulative INTEGER,
	report_type TEXT NOT NULL,
	source_file TEXT,
	created_at TEXT NOT NULL,
	PRIMARY KEY (intent_date, product, contract_month, report_type)
)`,
	`CREATE TABLE IF NOT EXISTS file_processing_log (
	file_path TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	file_type TEXT NOT NULL,
	file_size INTEGER,
	processed_at TEXT NOT NULL,
	status TEXT NOT NULL,
	records_inserted INTEGER NOT NULL DEFAULT 0,
	error_message TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_product_date ON inventory_history(product, activity_date)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_type_date ON delivery_notices(report_type, intent_date)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_log_status ON file_processing_log(status)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS inventory_history (
	activity_date DATE NOT NULL,
	product TEXT NOT NULL,
	depository TEXT NOT NULL,
	registered DOUBLE PRECISION,
	eligible DOUBLE PRECISION,
	total DOUBLE PRECISION,
	unit TEXT,
	report_date DATE,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (activity_date, product, depository)
)`,
	`CREATE TABLE IF NOT EXISTS delivery_notices (
	intent_date DATE NOT NULL,
	product TEXT NOT NULL,
	contract_month TEXT NOT NULL,
	daily_total BIGINT,
	cumulative BIGINT,
	report_type TEXT NOT NULL,
	source_file TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (intent_date, product, contract_month, report_type)
)`,
	`CREATE TABLE IF NOT EXISTS file_processing_log (
	file_path TEXT PRIMARY KEY,
	file_name TEXT NOT NULL,
	file_type TEXT NOT NULL,
	file_size BIGINT,
	processed_at TIMESTAMPTZ NOT NULL,
	status TEXT NOT NULL,
	records_inserted BIGINT NOT NULL DEFAULT 0,
	error_message TEXT
)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_product_date ON inventory_history(product, activity_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_delivery_type_date ON delivery_notices(report_type, intent_date DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_log_status ON file_processing_log(status)`,
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	statements := sqliteSchema
	if s.dialect == DialectPostgres {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
			return fmt.Errorf("acquire schema lock: %w", err)
		}
		statements = postgresSchema
	}

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema ddl: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
