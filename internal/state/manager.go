// Package state persists a history of completed runs. It is write-only
// during a sync: planning never reads it, so every invocation still
// rescans both trees from scratch.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kestrelsync/kestrel/internal/domain"
)

// Manager handles run-history persistence
type Manager struct {
	db *sql.DB
}

// RunRecord represents a single completed sync run
type RunRecord struct {
	ID           int64
	SourceRoot   string
	DestRoot     string
	StartTime    time.Time
	EndTime      time.Time
	Status       string // "success", "partial", "failed"
	FilesCopied  int64
	FilesRenamed int64
	FilesDeleted int64
	FilesFailed  int64
	BytesCopied  int64
	BytesSaved   int64
}

// DefaultDataDir returns the per-user directory for the history database
func DefaultDataDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config dir: %w", err)
	}
	return filepath.Join(configDir, "kestrel"), nil
}

// NewManager opens (creating if needed) the history database in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "kestrel.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection avoids "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	m := &Manager{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_root TEXT NOT NULL,
		dest_root TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		status TEXT NOT NULL,
		files_copied INTEGER NOT NULL DEFAULT 0,
		files_renamed INTEGER NOT NULL DEFAULT 0,
		files_deleted INTEGER NOT NULL DEFAULT 0,
		files_failed INTEGER NOT NULL DEFAULT 0,
		bytes_copied INTEGER NOT NULL DEFAULT 0,
		bytes_saved INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_dest ON runs(dest_root, start_time);
	`
	if _, err := m.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordRun stores a completed run
func (m *Manager) RecordRun(sourceRoot, destRoot string, start, end time.Time, snap domain.Snapshot) error {
	status := "success"
	if snap.FilesFailed > 0 {
		if snap.FilesCopied+snap.FilesRenamed+snap.FilesDeleted > 0 {
			status = "partial"
		} else {
			status = "failed"
		}
	}

	_, err := m.db.Exec(`
		INSERT INTO runs (source_root, dest_root, start_time, end_time, status,
			files_copied, files_renamed, files_deleted, files_failed,
			bytes_copied, bytes_saved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sourceRoot, destRoot, start, end, status,
		snap.FilesCopied, snap.FilesRenamed, snap.FilesDeleted, snap.FilesFailed,
		snap.BytesCopied, snap.BytesSaved,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs for a destination, newest first
func (m *Manager) RecentRuns(destRoot string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := m.db.Query(`
		SELECT id, source_root, dest_root, start_time, end_time, status,
			files_copied, files_renamed, files_deleted, files_failed,
			bytes_copied, bytes_saved
		FROM runs
		WHERE dest_root = ?
		ORDER BY start_time DESC
		LIMIT ?`, destRoot, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.SourceRoot, &r.DestRoot, &r.StartTime, &r.EndTime,
			&r.Status, &r.FilesCopied, &r.FilesRenamed, &r.FilesDeleted, &r.FilesFailed,
			&r.BytesCopied, &r.BytesSaved); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close releases the database handle
func (m *Manager) Close() error {
	return m.db.Close()
}
