package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

// dateColumn reads DATE columns from PostgreSQL and ISO text from SQLite.
type dateColumn struct {
	Date domain.Date
}

func (c *dateColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		c.Date = domain.Date{}
	case time.Time:
		c.Date = domain.DateOf(v)
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
	return nil
}

func (c *dateColumn) parse(s string) error {
	if len(s) > len(domain.DateLayout) {
		s = s[:len(domain.DateLayout)]
	}
	d, err := domain.ParseISODate(s)
	if err != nil {
		return fmt.Errorf("scan date: %w", err)
	}
	c.Date = d
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

type timeColumn struct {
	Time time.Time
}

func (c *timeColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		c.Time = time.Time{}
	case time.Time:
		c.Time = v.UTC()
	case string:
		return c.parse(v)
	case []byte:
		return c.parse(string(v))
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
	return nil
}

func (c *timeColumn) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			c.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: unrecognized value %q", s)
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
