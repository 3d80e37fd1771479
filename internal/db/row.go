package db

import (
	"bytes"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Row is an ordered mapping from column name to value for a single result
// row. Lookup is by column name with the casing the schema declares;
// iteration follows the column order of the statement. SQL NULL is
// represented as a nil value regardless of backend.
type Row struct {
	columns []string
	values  []any
}

// Columns returns the column names in statement order.
func (r Row) Columns() []string {
	columns := make([]string, len(r.columns))
	copy(columns, r.columns)
	return columns
}

// Get returns the value of the named column and whether the column exists.
func (r Row) Get(name string) (any, bool) {
	for i, column := range r.columns {
		if column == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Value returns the value of the named column, or nil if the column does
// not exist.
func (r Row) Value(name string) any {
	value, _ := r.Get(name)
	return value
}

// Text returns the named column rendered as a string. NULL and missing
// columns yield the empty string.
func (r Row) Text(name string) string {
	value, ok := r.Get(name)
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the named column as an int64. NULL, missing, and
// non-integer columns yield zero.
func (r Row) Int64(name string) int64 {
	value, ok := r.Get(name)
	if !ok {
		return 0
	}
	if v, ok := value.(int64); ok {
		return v
	}
	return 0
}

// Equal reports whether two rows carry the same columns in the same order
// with equal values, column by column.
func (r Row) Equal(other Row) bool {
	if len(r.columns) != len(other.columns) {
		return false
	}
	for i := range r.columns {
		if r.columns[i] != other.columns[i] {
			return false
		}
		if !valueEqual(r.values[i], other.values[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	if aBytes, ok := a.([]byte); ok {
		bBytes, ok := b.([]byte)
		return ok && bytes.Equal(aBytes, bBytes)
	}
	if aTime, ok := a.(time.Time); ok {
		bTime, ok := b.(time.Time)
		return ok && aTime.Equal(bTime)
	}
	return a == b
}

// adaptRows drains the native result into the uniform Row representation,
// normalizing backend-specific values so calling code never branches on the
// driver. The rows are fully consumed before returning.
func adaptRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	binary := make([]bool, len(columns))
	if types, err := rows.ColumnTypes(); err == nil && len(types) == len(columns) {
		for i, t := range types {
			switch strings.ToLower(t.DatabaseTypeName()) {
			case "blob", "bytea":
				binary[i] = true
			}
		}
	}

	adapted := []Row{}
	for rows.Next() {
		raw := make([]any, len(columns))
		scans := make([]any, len(columns))
		for i := range scans {
			scans[i] = &raw[i]
		}

		if err := rows.Scan(scans...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		values := make([]any, len(columns))
		for i := range raw {
			values[i] = normalizeValue(raw[i], binary[i])
		}
		adapted = append(adapted, Row{columns: columns, values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return adapted, nil
}

// normalizeValue converts a driver value into the canonical set used by
// Row: nil, int64, float64, bool, string, []byte, and time.Time. The
// PostgreSQL driver hands text columns back as []byte while the SQLite
// driver uses string; both end up as string here unless the column is
// declared binary.
func normalizeValue(value any, binary bool) any {
	switch v := value.(type) {
	case nil:
		return nil
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int16:
		return int64(v)
	case int8:
		return int64(v)
	case uint64:
		return int64(v)
	case uint32:
		return int64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case bool:
		return v
	case time.Time:
		return v
	case []byte:
		if binary {
			buf := make([]byte, len(v))
			copy(buf, v)
			return buf
		}
		return string(v)
	default:
		return v
	}
}
