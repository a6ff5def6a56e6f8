// Privileged local-store access for the intro-marker resource type.
//
// The server's HTTP API has no marker mutation endpoint; the only write path
// is the metadata database on the target host itself. This file implements
// [MarkerStore] over that database and is only wired up when the configured
// path exists and is writable.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/desertthunder/plexsync/internal/shared"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteMarkerStore implements MarkerStore over the target server's local
// metadata database.
type SQLiteMarkerStore struct {
	db *sql.DB
}

var _ MarkerStore = (*SQLiteMarkerStore)(nil)

// OpenMarkerStore opens the target's metadata database for privileged marker
// writes. Fails fast when the file is missing or unreadable so the resource
// type is rejected before any entity is processed.
func OpenMarkerStore(path string) (*SQLiteMarkerStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no marker database path configured", shared.ErrMarkerStore)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMarkerStore, err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMarkerStore, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrMarkerStore, err)
	}

	return &SQLiteMarkerStore{db: db}, nil
}

// Exec runs one statement and returns the number of affected rows.
func (s *SQLiteMarkerStore) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	result, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("marker store statement failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("marker store statement failed: %w", err)
	}

	return affected, nil
}

// Close releases the database handle.
func (s *SQLiteMarkerStore) Close() error {
	return s.db.Close()
}
