// Package sqlutil holds small helpers shared by the SQLite-backed stores.
package sqlutil

import (
	"database/sql"
	"errors"
	"strings"
)

// Placeholders returns n comma-separated "?" placeholders and the values as
// query args. With no values it returns "NULL", so `IN (NULL)` matches
// nothing.
func Placeholders[T any](values []T) (string, []any) {
	if len(values) == 0 {
		return "NULL", nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "), args
}

// ScanRows reads every row with scan and closes rows. A scan error of
// ErrSkip drops the row instead of failing.
func ScanRows[T any](rows *sql.Rows, scan func(*sql.Rows) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if errors.Is(err, ErrSkip) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ErrSkip tells ScanRows to drop the current row.
var ErrSkip = errors.New("skip row")

// String scans a single text column.
func String(rows *sql.Rows) (string, error) {
	var s string
	err := rows.Scan(&s)
	return s, err
}
