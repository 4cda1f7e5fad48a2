package cache

import (
	"context"

	"github.com/trylock/viewer-sub003/internal/sqlutil"
	"github.com/trylock/viewer-sub003/internal/stats"
)

var _ stats.Source = (*Store)(nil)

// DirectoryFileCounts implements stats.Source.
func (s *Store) DirectoryFileCounts(ctx context.Context, root string) (map[string]int, error) {
	where, args := underRoot("dir", root)
	rows, err := s.db.QueryContext(ctx, `SELECT dir, COUNT(*) FROM files WHERE `+where+` GROUP BY dir`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var dir string
		var n int
		if err := rows.Scan(&dir, &n); err != nil {
			return nil, err
		}
		counts[dir] = n
	}
	return counts, rows.Err()
}

// FileAttributeNames implements stats.Source. Files are reported in path
// order; rows are read in full before fn is first called.
func (s *Store) FileAttributeNames(ctx context.Context, root string, names []string, fn func(path string, names []string) error) error {
	if len(names) == 0 {
		return nil
	}
	where, args := underRoot("f.dir", root)
	placeholders, nameArgs := sqlutil.Placeholders(names)
	args = append(args, nameArgs...)

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.path, a.name FROM attributes a
		JOIN files f ON f.path = a.path
		WHERE `+where+` AND a.name IN (`+placeholders+`)
		ORDER BY a.path, a.name
	`, args...)
	if err != nil {
		return err
	}

	type fileNames struct {
		path  string
		names []string
	}
	var files []fileNames
	for rows.Next() {
		var path, name string
		if err := rows.Scan(&path, &name); err != nil {
			rows.Close()
			return err
		}
		if n := len(files); n > 0 && files[n-1].path == path {
			files[n-1].names = append(files[n-1].names, name)
			continue
		}
		files = append(files, fileNames{path: path, names: []string{name}})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, f := range files {
		if err := fn(f.path, f.names); err != nil {
			return err
		}
	}
	return nil
}
