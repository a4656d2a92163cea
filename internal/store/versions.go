package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tempo/internal/dataset"
	"github.com/roach88/tempo/internal/tid"
)

var (
	_ dataset.Store     = (*Store)(nil)
	_ dataset.Pruner    = (*Store)(nil)
	_ dataset.Historian = (*Store)(nil)
)

const versionColumns = `id, type, dataset, key, deleted, doc`

// Insert appends a version. Versions are immutable: inserting a second
// version with the same (type, id) fails.
func (s *Store) Insert(ctx context.Context, v dataset.Version) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO versions (id, type, dataset, key, deleted, doc)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.ID[:], v.Type, v.Dataset[:], v.Key, boolToInt(v.Deleted), v.Doc)
	if err != nil {
		return fmt.Errorf("insert %s version %s: %w", v.Type, v.ID, err)
	}
	return nil
}

// Latest returns the highest-id version of key in ds at or before cutoff.
// Returns nil, nil when there is none.
func (s *Store) Latest(ctx context.Context, typ, key string, ds tid.ID, cutoff *tid.ID) (*dataset.Version, error) {
	query := `SELECT ` + versionColumns + ` FROM versions
		WHERE type = ? AND key = ? AND dataset = ?`
	args := []any{typ, key, ds[:]}
	if cutoff != nil {
		query += ` AND id <= ?`
		args = append(args, cutoff[:])
	}
	query += ` ORDER BY id DESC LIMIT 1`

	v, err := scanVersion(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest %s %q in %s: %w", typ, key, ds, err)
	}
	return v, nil
}

// ByID returns the version of typ with the given id, or nil.
func (s *Store) ByID(ctx context.Context, typ string, id tid.ID) (*dataset.Version, error) {
	v, err := scanVersion(s.db.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE type = ? AND id = ?`, typ, id[:]))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s version %s: %w", typ, id, err)
	}
	return v, nil
}

// Prune deletes versions of key in ds with ids below keep.
func (s *Store) Prune(ctx context.Context, typ, key string, ds, keep tid.ID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM versions
		WHERE type = ? AND key = ? AND dataset = ? AND id < ?
	`, typ, key, ds[:], keep[:])
	if err != nil {
		return fmt.Errorf("prune %s %q in %s: %w", typ, key, ds, err)
	}
	return nil
}

// History returns every version of key in ds, newest first, delete markers
// included.
func (s *Store) History(ctx context.Context, typ, key string, ds tid.ID) ([]dataset.Version, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+versionColumns+` FROM versions
		WHERE type = ? AND key = ? AND dataset = ?
		ORDER BY id DESC`, typ, key, ds[:])
	if err != nil {
		return nil, fmt.Errorf("history %s %q in %s: %w", typ, key, ds, err)
	}
	defer rows.Close()

	var out []dataset.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("history %s %q in %s: %w", typ, key, ds, err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history %s %q in %s: %w", typ, key, ds, err)
	}
	return out, nil
}

// Keys returns the distinct keys of typ stored in ds, in key order.
func (s *Store) Keys(ctx context.Context, typ string, ds tid.ID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT key FROM versions
		WHERE type = ? AND dataset = ?
		ORDER BY key
	`, typ, ds[:])
	if err != nil {
		return nil, fmt.Errorf("keys of %s in %s: %w", typ, ds, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (*dataset.Version, error) {
	var (
		id, ds  []byte
		v       dataset.Version
		deleted int
	)
	if err := row.Scan(&id, &v.Type, &ds, &v.Key, &deleted, &v.Doc); err != nil {
		return nil, err
	}
	var err error
	if v.ID, err = tid.FromBytes(id); err != nil {
		return nil, err
	}
	if v.Dataset, err = tid.FromBytes(ds); err != nil {
		return nil, err
	}
	v.Deleted = deleted != 0
	return &v, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
