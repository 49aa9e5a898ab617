package state

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/stablecore-labs/stablecore/pkg/core"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		// WAL keeps reads cheap while the registry writes through
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	} else {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveModule upserts a module record summary.
func (s *SQLiteStore) SaveModule(rec *core.ModuleRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(`
		INSERT INTO modules (name, version, stability, loaded_at, artifact_ref, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			stability = excluded.stability,
			loaded_at = excluded.loaded_at,
			artifact_ref = excluded.artifact_ref,
			status = excluded.status`,
		rec.Name, rec.Version, rec.Stability.String(), rec.LoadedAt.UTC(), rec.ArtifactRef, string(rec.Status))
	if err != nil {
		return fmt.Errorf("failed to save module %s: %w", rec.Name, err)
	}
	return nil
}

// GetModule fetches a module record summary by name.
func (s *SQLiteStore) GetModule(name string) (*core.ModuleRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRow(`
		SELECT name, version, stability, loaded_at, artifact_ref, status
		FROM modules WHERE name = ?`, name)

	rec, err := scanModule(row)
	if err == sql.ErrNoRows {
		return nil, core.NewError(core.ErrNotFound, name, "module not persisted")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module %s: %w", name, err)
	}
	return rec, nil
}

// ListModules returns all persisted module summaries ordered by name.
func (s *SQLiteStore) ListModules() ([]*core.ModuleRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`
		SELECT name, version, stability, loaded_at, artifact_ref, status
		FROM modules ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var records []*core.ModuleRecord
	for rows.Next() {
		rec, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveBackup records a pre-swap backup snapshot.
func (s *SQLiteStore) SaveBackup(b *core.BackupRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.Exec(`
		INSERT INTO backups (id, module_name, backup_location, original_location, created_at, is_empty)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), b.ModuleName, b.BackupLocation, b.OriginalLocation, b.CreatedAt.UTC(), b.IsEmpty)
	if err != nil {
		return fmt.Errorf("failed to save backup for %s: %w", b.ModuleName, err)
	}
	return nil
}

// ListBackups returns all persisted backups, newest first.
func (s *SQLiteStore) ListBackups() ([]*core.BackupRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(`
		SELECT module_name, backup_location, original_location, created_at, is_empty
		FROM backups ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer rows.Close()

	var backups []*core.BackupRecord
	for rows.Next() {
		var b core.BackupRecord
		var createdAt time.Time
		if err := rows.Scan(&b.ModuleName, &b.BackupLocation, &b.OriginalLocation, &createdAt, &b.IsEmpty); err != nil {
			return nil, fmt.Errorf("failed to scan backup: %w", err)
		}
		b.CreatedAt = createdAt
		backups = append(backups, &b)
	}
	return backups, rows.Err()
}

// RecordReload appends a reload history row.
func (s *SQLiteStore) RecordReload(ev *ReloadEvent) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO reload_events (id, module_name, artifact_ref, failed_stage, success, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, ev.ModuleName, ev.ArtifactRef, string(ev.FailedStage), ev.Success, ev.Error, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record reload for %s: %w", ev.ModuleName, err)
	}
	return nil
}

// ListReloads returns reload history for a module, newest first.
// A limit of 0 returns all rows.
func (s *SQLiteStore) ListReloads(moduleName string, limit int) ([]*ReloadEvent, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	rows, err := s.db.Query(`
		SELECT id, module_name, artifact_ref, failed_stage, success, error, created_at
		FROM reload_events WHERE module_name = ?
		ORDER BY created_at DESC LIMIT ?`, moduleName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reloads: %w", err)
	}
	defer rows.Close()

	var events []*ReloadEvent
	for rows.Next() {
		var ev ReloadEvent
		var stage string
		if err := rows.Scan(&ev.ID, &ev.ModuleName, &ev.ArtifactRef, &stage, &ev.Success, &ev.Error, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reload event: %w", err)
		}
		ev.FailedStage = core.FailedStage(stage)
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanModule(sc scanner) (*core.ModuleRecord, error) {
	var rec core.ModuleRecord
	var stability, status string
	var loadedAt time.Time
	if err := sc.Scan(&rec.Name, &rec.Version, &stability, &loadedAt, &rec.ArtifactRef, &status); err != nil {
		return nil, err
	}
	rec.Stability = core.ParseStability(stability)
	rec.LoadedAt = loadedAt
	rec.Status = core.ModuleState(status)
	return &rec, nil
}
