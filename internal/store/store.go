// Package store persists the original text of fields before they are
// hidden, so a later restore can put the real summary or title back instead
// of waiting for a metadata refresh to repopulate it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"plexhush/internal/library"
)

// Store is a small SQLite cache keyed by item GUID.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS originals (
    guid       TEXT NOT NULL,
    field      TEXT NOT NULL,
    value      TEXT NOT NULL,
    item_name  TEXT,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (guid, field)
);
`

// Open initializes or connects to the cache database at path, creating the
// parent directory if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Remember records the current value of every text field that is still
// visible. Values already carrying a hidden marker are never cached: caching
// them would make a later restore re-install the marker.
func (s *Store) Remember(ctx context.Context, item *library.Item, markers library.Markers) error {
	ctx = ensureContext(ctx)
	for _, field := range []library.Field{library.FieldSummary, library.FieldTitle} {
		value := item.FieldValue(field)
		if value == "" || item.FieldHidden(field, markers) {
			continue
		}
		err := s.execWithRetry(ctx,
			`INSERT INTO originals (guid, field, value, item_name, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (guid, field) DO UPDATE SET
			     value = excluded.value,
			     item_name = excluded.item_name,
			     updated_at = excluded.updated_at`,
			item.GUID, string(field), value, item.String(), time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("remember %s for %s: %w", field, item.GUID, err)
		}
	}
	return nil
}

// OriginalField returns the cached value for a field, reporting whether one
// exists. Thumbnails have no cacheable text, so they always miss.
func (s *Store) OriginalField(ctx context.Context, guid string, field library.Field) (string, bool, error) {
	if field == library.FieldThumbnail {
		return "", false, nil
	}
	ctx = ensureContext(ctx)
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM originals WHERE guid = ? AND field = ?",
		guid, string(field)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("look up original %s for %s: %w", field, guid, err)
	}
	return value, true, nil
}

// Prune drops cache entries for items the library no longer contains.
func (s *Store) Prune(ctx context.Context, known library.Snapshot) (int64, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT guid FROM originals")
	if err != nil {
		return 0, fmt.Errorf("list cached guids: %w", err)
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var guid string
		if err := rows.Scan(&guid); err != nil {
			return 0, err
		}
		if _, ok := known[guid]; !ok {
			stale = append(stale, guid)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var removed int64
	for _, guid := range stale {
		if err := s.execWithRetry(ctx, "DELETE FROM originals WHERE guid = ?", guid); err != nil {
			return removed, fmt.Errorf("prune %s: %w", guid, err)
		}
		removed++
	}
	return removed, nil
}

// Count reports how many field values are cached.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(*) FROM originals").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count originals: %w", err)
	}
	return count, nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
