package vocab

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

// Meta describes how a vocabulary was collected. The extraction pass checks
// it against its own configuration before using the vocabulary.
type Meta struct {
	Name      string
	Kind      string
	LowerCase bool
	MinN      int
	MaxN      int
	SkipSize  int
	Documents int64
	Skipped   int64
}

func (m Meta) pairs() map[string]string {
	return map[string]string{
		"name":      m.Name,
		"kind":      m.Kind,
		"lowercase": strconv.FormatBool(m.LowerCase),
		"min_n":     strconv.Itoa(m.MinN),
		"max_n":     strconv.Itoa(m.MaxN),
		"skip_size": strconv.Itoa(m.SkipSize),
		"documents": strconv.FormatInt(m.Documents, 10),
		"skipped":   strconv.FormatInt(m.Skipped, 10),
	}
}

func metaFromPairs(p map[string]string) (Meta, error) {
	var (
		m   Meta
		err error
	)
	m.Name = p["name"]
	m.Kind = p["kind"]
	if v, ok := p["lowercase"]; ok {
		if m.LowerCase, err = strconv.ParseBool(v); err != nil {
			return m, fmt.Errorf("meta lowercase: %w", err)
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"min_n", &m.MinN},
		{"max_n", &m.MaxN},
		{"skip_size", &m.SkipSize},
	}
	for _, f := range ints {
		if v, ok := p[f.key]; ok {
			if *f.dst, err = strconv.Atoi(v); err != nil {
				return m, fmt.Errorf("meta %s: %w", f.key, err)
			}
		}
	}
	if v, ok := p["documents"]; ok {
		if m.Documents, err = strconv.ParseInt(v, 10, 64); err != nil {
			return m, fmt.Errorf("meta documents: %w", err)
		}
	}
	if v, ok := p["skipped"]; ok {
		if m.Skipped, err = strconv.ParseInt(v, 10, 64); err != nil {
			return m, fmt.Errorf("meta skipped: %w", err)
		}
	}
	return m, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS vocabulary (
	key TEXT PRIMARY KEY,
	count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	name TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Save writes the store and its meta to path. The file is built next to the
// target and renamed into place, so readers never see a half-written
// vocabulary.
func Save(ctx context.Context, path string, s *Store, meta Meta) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create vocabulary directory: %v", internalerr.ErrWrite, err)
	}
	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	if err := writeDB(ctx, tmpPath, s, meta); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: vocabulary %s: %v", internalerr.ErrWrite, path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: rename vocabulary %s: %v", internalerr.ErrWrite, path, err)
	}
	return nil
}

func writeDB(ctx context.Context, path string, s *Store, meta Meta) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vocabulary (key, count) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for k, c := range s.counts {
		if _, err := stmt.ExecContext(ctx, k, c); err != nil {
			return err
		}
	}

	metaStmt, err := tx.PrepareContext(ctx, `INSERT INTO meta (name, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer metaStmt.Close()

	for name, value := range meta.pairs() {
		if _, err := metaStmt.ExecContext(ctx, name, value); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return db.Close()
}

// Load reads a vocabulary written by Save. The returned store is writable;
// callers truncate it with TopK before extraction.
func Load(ctx context.Context, path string) (*Store, Meta, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Meta{}, fmt.Errorf("%w: vocabulary %s does not exist", internalerr.ErrInvalidConfig, path)
		}
		return nil, Meta{}, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, Meta{}, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT key, count FROM vocabulary`)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	defer rows.Close()

	s := New()
	for rows.Next() {
		var (
			key   string
			count int64
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, Meta{}, err
		}
		s.counts[key] = count
	}
	if err := rows.Err(); err != nil {
		return nil, Meta{}, err
	}

	metaRows, err := db.QueryContext(ctx, `SELECT name, value FROM meta`)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("read vocabulary meta %s: %w", path, err)
	}
	defer metaRows.Close()

	pairs := make(map[string]string)
	for metaRows.Next() {
		var name, value string
		if err := metaRows.Scan(&name, &value); err != nil {
			return nil, Meta{}, err
		}
		pairs[name] = value
	}
	if err := metaRows.Err(); err != nil {
		return nil, Meta{}, err
	}

	meta, err := metaFromPairs(pairs)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return s, meta, nil
}
