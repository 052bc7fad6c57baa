package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"extman/internal/modules/extension/domain"
	extout "extman/internal/modules/extension/port/out"

	_ "modernc.org/sqlite"
)

var _ extout.IndexProjector = (*SQLiteIndex)(nil)

// SQLiteIndex projects extension entries into a queryable table.
type SQLiteIndex struct {
	db *sql.DB
}

func NewSQLiteIndex(dbPath string) (*SQLiteIndex, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	index := &SQLiteIndex{db: db}
	if err := index.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return index, nil
}

func (s *SQLiteIndex) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS extensions (
  key TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  enabled INTEGER NOT NULL,
  summary TEXT NOT NULL,
  env_names TEXT NOT NULL,
  env_keys TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create extensions table: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM extensions`); err != nil {
		return fmt.Errorf("reset extensions: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Upsert(ctx context.Context, record domain.IndexRecord) error {
	const stmt = `
INSERT INTO extensions (key, name, kind, enabled, summary, env_names, env_keys, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  name=excluded.name,
  kind=excluded.kind,
  enabled=excluded.enabled,
  summary=excluded.summary,
  env_names=excluded.env_names,
  env_keys=excluded.env_keys,
  updated_at=excluded.updated_at;
`
	enabled := 0
	if record.Enabled {
		enabled = 1
	}
	_, err := s.db.ExecContext(ctx, stmt,
		record.Key,
		record.Name,
		string(record.Kind),
		enabled,
		record.Summary,
		strings.Join(record.EnvNames, ","),
		strings.Join(record.EnvKeys, ","),
		record.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	)
	if err != nil {
		return fmt.Errorf("upsert extension: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
