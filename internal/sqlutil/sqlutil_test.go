package sqlutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestPlaceholders(t *testing.T) {
	ph, args := Placeholders([]string{"a", "b", "c"})
	require.Equal(t, "?, ?, ?", ph)
	require.Equal(t, []any{"a", "b", "c"}, args)

	ph, args = Placeholders([]int(nil))
	require.Equal(t, "NULL", ph)
	require.Nil(t, args)
}

func TestScanRows(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (name TEXT); INSERT INTO t VALUES ('a'), ('skip'), ('b')`)
	require.NoError(t, err)

	ph, args := Placeholders([]string{"a", "b", "skip"})
	rows, err := db.Query(`SELECT name FROM t WHERE name IN (`+ph+`) ORDER BY name`, args...)
	require.NoError(t, err)
	got, err := ScanRows(rows, func(rows *sql.Rows) (string, error) {
		s, err := String(rows)
		if err == nil && s == "skip" {
			return "", ErrSkip
		}
		return s, err
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, got)
}
