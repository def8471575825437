package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Brownie44l1/crack-api/internal/verdict"
)

// Store keeps a log of analyzed uploads.
type Store struct {
	db *sql.DB
}

type Record struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	HasCrack   bool      `json:"has_crack"`
	Severity   string    `json:"severity,omitempty"`
	Confidence string    `json:"confidence,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Record stores the outcome of one analysis.
func (s *Store) Record(ctx context.Context, filename string, v verdict.Verdict) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO analyses(filename, has_crack, severity, confidence, error, created_at)
VALUES(?, ?, ?, ?, ?, ?);
`, filename, v.HasCrack, v.Severity, v.Confidence, v.Error, time.Now().UTC())
	return err
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, filename, has_crack, severity, confidence, error, created_at
FROM analyses ORDER BY id DESC LIMIT ?;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Filename, &r.HasCrack, &r.Severity, &r.Confidence, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS analyses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  filename TEXT NOT NULL,
  has_crack INTEGER NOT NULL DEFAULT 0,
  severity TEXT NOT NULL DEFAULT '',
  confidence TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL
);
`)
	return err
}
