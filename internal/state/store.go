// Package state persists module records, backups, and reload history to
// SQLite. The registry holds the authoritative in-memory catalog; this
// store is a write-through collaborator so summaries survive process
// restarts and remain inspectable.
package state

import (
	"time"

	"github.com/stablecore-labs/stablecore/pkg/core"
)

// Store defines the persistence operations the registry writes through.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Module record summaries
	SaveModule(rec *core.ModuleRecord) error
	GetModule(name string) (*core.ModuleRecord, error)
	ListModules() ([]*core.ModuleRecord, error)

	// Backup snapshots
	SaveBackup(b *core.BackupRecord) error
	ListBackups() ([]*core.BackupRecord, error)

	// Reload history
	RecordReload(ev *ReloadEvent) error
	ListReloads(moduleName string, limit int) ([]*ReloadEvent, error)
}

// ReloadEvent is one row of reload history for a module.
type ReloadEvent struct {
	ID          string
	ModuleName  string
	ArtifactRef string
	FailedStage core.FailedStage
	Success     bool
	Error       string
	CreatedAt   time.Time
}
