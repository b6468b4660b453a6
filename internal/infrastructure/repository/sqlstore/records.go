package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

const upsertInventoryQuery = `
INSERT INTO inventory_history (
	activity_date, product, depository, registered, eligible, total, unit, report_date, created_at
) VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT (activity_date, product, depository) DO UPDATE SET
	registered = excluded.registered,
	eligible = excluded.eligible,
	total = excluded.total,
	unit = excluded.unit,
	report_date = excluded.report_date,
	created_at = excluded.created_at
`

const upsertDeliveryQuery = `
INSERT INTO delivery_notices (
	intent_date, product, contract_month, daily_total, cumulative, report_type, source_file, created_at
) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT (intent_date, product, contract_month, report_type) DO UPDATE SET
	daily_total = excluded.daily_total,
	cumulative = excluded.cumulative,
	source_file = excluded.source_file,
	created_at = excluded.created_at
`

// UpsertInventory writes all records in one transaction. A repeated key replaces
// the stored row. The result is the number of rows affected.
func (s *Store) UpsertInventory(ctx context.Context, records []domain.InventoryRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	now := s.timeValue(s.now())
	query := s.rebind(upsertInventoryQuery)

	return s.inTx(ctx, "upsert inventory", func(tx *sql.Tx) (int64, error) {
		var affected int64
		for i, rec := range records {
			if err := rec.Validate(); err != nil {
				return 0, fmt.Errorf("record %d: %w", i, err)
			}
			res, err := tx.ExecContext(ctx, query,
				s.dateValue(rec.ActivityDate), string(rec.Product), rec.Depository,
				nullFloat(rec.Registered), nullFloat(rec.Eligible), nullFloat(rec.Total),
				nullString(rec.Unit), s.dateValue(rec.ReportDate), now,
			)
			if err != nil {
				return 0, fmt.Errorf("insert inventory row %d: %w", i, err)
			}
			affected += rowsAffected(res)
		}
		return affected, nil
	})
}

// UpsertDelivery is UpsertInventory for delivery notices.
func (s *Store) UpsertDelivery(ctx context.Context, records []domain.DeliveryRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}
	now := s.timeValue(s.now())
	query := s.rebind(upsertDeliveryQuery)

	return s.inTx(ctx, "upsert delivery", func(tx *sql.Tx) (int64, error) {
		var affected int64
		for i, rec := range records {
			if err := rec.Validate(); err != nil {
				return 0, fmt.Errorf("record %d: %w", i, err)
			}
			res, err := tx.ExecContext(ctx, query,
				s.dateValue(rec.IntentDate), rec.Product, rec.ContractMonth,
				nullInt(rec.DailyTotal), nullInt(rec.Cumulative), string(rec.ReportType),
				nullString(rec.SourceFile), now,
			)
			if err != nil {
				return 0, fmt.Errorf("insert delivery row %d: %w", i, err)
			}
			affected += rowsAffected(res)
		}
		return affected, nil
	})
}

func (s *Store) ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.InventoryRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Product != "" {
		where = append(where, "product = ?")
		args = append(args, string(filter.Product))
	}
	if !filter.From.IsZero() {
		where = append(where, "activity_date >= ?")
		args = append(args, s.dateValue(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "activity_date <= ?")
		args = append(args, s.dateValue(filter.To))
	}

	query := `
SELECT activity_date, product, depository, registered, eligible, total, unit, report_date
FROM inventory_history` + whereClause(where) + `
ORDER BY activity_date DESC, product, depository`
	if filter.Limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list inventory", err)
	}
	defer rows.Close()

	out := make([]domain.InventoryRecord, 0)
	for rows.Next() {
		var (
			rec                         domain.InventoryRecord
			activity, report            dateColumn
			product                     string
			registered, eligible, total sql.NullFloat64
			unit                        sql.NullString
		)
		if err := rows.Scan(&activity, &product, &rec.Depository, &registered, &eligible, &total, &unit, &report); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan inventory", err)
		}
		rec.ActivityDate = activity.Date
		rec.Product = domain.Product(product)
		rec.Registered = floatPtr(registered)
		rec.Eligible = floatPtr(eligible)
		rec.Total = floatPtr(total)
		rec.Unit = unit.String
		rec.ReportDate = report.Date
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate inventory", err)
	}
	return out, nil
}

func (s *Store) ListDeliveries(ctx context.Context, filter domain.DeliveryFilter) ([]domain.DeliveryRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Product != "" {
		where = append(where, `LOWER(product) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(filter.Product))+"%")
	}
	if filter.ReportType != "" {
		where = append(where, "report_type = ?")
		args = append(args, string(filter.ReportType))
	}

	query := `
SELECT intent_date, product, contract_month, daily_total, cumulative, report_type, source_file
FROM delivery_notices` + whereClause(where) + `
ORDER BY intent_date DESC, product`
	if filter.Limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "list deliveries", err)
	}
	defer rows.Close()

	out := make([]domain.DeliveryRecord, 0)
	for rows.Next() {
		var (
			rec                    domain.DeliveryRecord
			intent                 dateColumn
			dailyTotal, cumulative sql.NullInt64
			reportType             string
			source                 sql.NullString
		)
		if err := rows.Scan(&intent, &rec.Product, &rec.ContractMonth, &dailyTotal, &cumulative, &reportType, &source); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan delivery", err)
		}
		rec.IntentDate = intent.Date
		rec.DailyTotal = intPtr(dailyTotal)
		rec.Cumulative = intPtr(cumulative)
		rec.ReportType = domain.ReportType(reportType)
		rec.SourceFile = source.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "iterate deliveries", err)
	}
	return out, nil
}

// inTx runs fn in a transaction, committing on success and rolling back on any error.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) (int64, error)) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.WrapError(domain.ErrStorage, op, fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	n, err := fn(tx)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return 0, fmt.Errorf("%s: %w", op, err)
		}
		return 0, domain.WrapError(domain.ErrStorage, op, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, domain.WrapError(domain.ErrStorage, op, fmt.Errorf("commit tx: %w", err))
	}
	return n, nil
}

func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return "\nWHERE " + strings.Join(conds, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes a product filter match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
