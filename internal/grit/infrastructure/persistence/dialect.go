// Package persistence stores the grit data set in SQLite, PostgreSQL or memory.
package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/gritline/internal/shared/infrastructure/database"
	"github.com/lib/pq"
)

// sqliteTimeLayout is fixed width so that text comparison orders timestamps.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// dialect adapts query arguments to the column types of one driver.
type dialect struct {
	driver database.Driver
}

func (d dialect) rebind(query string) string {
	return database.Rebind(d.driver, query)
}

// time encodes a timestamp argument.
func (d dialect) time(t time.Time) any {
	if d.driver == database.DriverSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

// nullTime encodes an optional timestamp argument.
func (d dialect) nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.time(*t)
}

// strings encodes a string list: TEXT[] on PostgreSQL, a JSON array on SQLite.
func (d dialect) strings(values []string) (any, error) {
	if d.driver == database.DriverPostgres {
		return pq.Array(values), nil
	}
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// stringList is the scan target matching dialect.strings.
type stringList struct {
	postgres bool
	values   []string
}

func (l *stringList) target() any {
	if l.postgres {
		return pq.Array(&l.values)
	}
	return l
}

// Scan implements sql.Scanner for the SQLite JSON form.
func (l *stringList) Scan(src any) error {
	raw, err := textOf(src)
	if err != nil || raw == "" {
		return err
	}
	return json.Unmarshal([]byte(raw), &l.values)
}

// dbTime scans a timestamp stored as TIMESTAMPTZ or as fixed-width text.
type dbTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src any) error {
	if src == nil {
		*t = dbTime{}
		return nil
	}
	if v, ok := src.(time.Time); ok {
		*t = dbTime{Time: v.UTC(), Valid: true}
		return nil
	}
	raw, err := textOf(src)
	if err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	*t = dbTime{Time: parsed.UTC(), Valid: true}
	return nil
}

// Ptr returns nil for NULL.
func (t dbTime) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// jsonColumn scans a nullable JSON document into dst.
type jsonColumn struct {
	dst   any
	Valid bool
}

// Scan implements sql.Scanner.
func (c *jsonColumn) Scan(src any) error {
	if src == nil {
		c.Valid = false
		return nil
	}
	raw, err := textOf(src)
	if err != nil {
		return err
	}
	c.Valid = true
	return json.Unmarshal([]byte(raw), c.dst)
}

// jsonValue encodes v as a JSON text argument, or NULL when v is a nil pointer.
func jsonValue[T any](v *T) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func textOf(src any) (string, error) {
	switch v := src.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unsupported column type %T", src)
	}
}
