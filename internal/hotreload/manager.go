// Package hotreload owns the backup/swap/rollback state machine that
// replaces a module's active artifact at runtime. It is the only
// component allowed to mutate the module-name to active-artifact
// binding, and every consumer resolves artifacts through the binding
// table by name, never by holding a raw artifact pointer, so a swap can
// never produce a dangling reference.
package hotreload

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stablecore-labs/stablecore/internal/artifact"
	"github.com/stablecore-labs/stablecore/pkg/core"
)

// Phase is a step of the per-module reload state machine.
type Phase int

// Reload phases. Each run moves Idle → BackingUp → Swapping → Verifying
// and terminates in Committed or RolledBack.
const (
	PhaseIdle Phase = iota
	PhaseBackingUp
	PhaseSwapping
	PhaseVerifying
	PhaseCommitted
	PhaseRolledBack
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBackingUp:
		return "backing_up"
	case PhaseSwapping:
		return "swapping"
	case PhaseVerifying:
		return "verifying"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// binding holds the mutable state for one module name.
//
// reloadMu serializes state-machine runs: at most one reload per name
// is in flight, and an overlapping request fails fast via TryLock.
// mu guards the fields below it for concurrent readers; readers see
// either the previous or the newly committed state, never a partial
// write.
type binding struct {
	reloadMu sync.Mutex

	mu     sync.Mutex
	active *artifact.Loaded
	backup *core.BackupRecord
	phase  Phase
}

// Manager runs the hot-reload state machine. Bindings for distinct
// module names are independent; reloads for different names never
// block one another.
type Manager struct {
	mu       sync.Mutex
	bindings map[string]*binding

	store  *artifact.Store
	logger *slog.Logger
}

// New creates a reload manager over the given artifact store.
func New(store *artifact.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		bindings: make(map[string]*binding),
		store:    store,
		logger:   logger,
	}
}

// binding returns the binding for name, creating it if needed.
func (m *Manager) binding(name string) *binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bindings[name]
	if !ok {
		b = &binding{phase: PhaseIdle}
		m.bindings[name] = b
	}
	return b
}

// Resolve returns the currently active artifact for name. This is the
// indirect, name-keyed lookup all consumers must go through.
func (m *Manager) Resolve(name string) (*artifact.Loaded, bool) {
	m.mu.Lock()
	b, ok := m.bindings[name]
	m.mu.Unlock()
	if !ok {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil {
		return nil, false
	}
	return b.active, true
}

// ActiveLocation returns the active artifact location for name.
func (m *Manager) ActiveLocation(name string) (string, bool) {
	loaded, ok := m.Resolve(name)
	if !ok {
		return "", false
	}
	return loaded.Location, true
}

// Phase returns the current state-machine phase for name.
func (m *Manager) Phase(name string) Phase {
	m.mu.Lock()
	b, ok := m.bindings[name]
	m.mu.Unlock()
	if !ok {
		return PhaseIdle
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Phases returns a snapshot of every known module's phase.
func (m *Manager) Phases() map[string]Phase {
	m.mu.Lock()
	names := make([]string, 0, len(m.bindings))
	bindings := make([]*binding, 0, len(m.bindings))
	for name, b := range m.bindings {
		names = append(names, name)
		bindings = append(bindings, b)
	}
	m.mu.Unlock()

	phases := make(map[string]Phase, len(names))
	for i, b := range bindings {
		b.mu.Lock()
		phases[names[i]] = b.phase
		b.mu.Unlock()
	}
	return phases
}

// GetAllBackups returns a snapshot of the most recent pre-swap backup
// per module. Records are copied; a reader never observes a record
// mid-write.
func (m *Manager) GetAllBackups() map[string]core.BackupRecord {
	m.mu.Lock()
	names := make([]string, 0, len(m.bindings))
	bindings := make([]*binding, 0, len(m.bindings))
	for name, b := range m.bindings {
		names = append(names, name)
		bindings = append(bindings, b)
	}
	m.mu.Unlock()

	backups := make(map[string]core.BackupRecord)
	for i, b := range bindings {
		b.mu.Lock()
		if b.backup != nil {
			backups[names[i]] = *b.backup
		}
		b.mu.Unlock()
	}
	return backups
}

// Reload swaps the active artifact for name to the staged artifact at
// location, backing up the previous binding first and rolling back if
// post-swap verification fails. Reloads for the same name are
// serialized: an overlapping request is rejected, it does not queue.
func (m *Manager) Reload(name, location string) (result core.HotReloadResult) {
	if name == "" || location == "" {
		return fail("module name and artifact location are required")
	}

	b := m.binding(name)
	if !b.reloadMu.TryLock() {
		m.logger.Warn("reload rejected, another reload in flight", "module", name)
		return fail("reload already in progress for module %q", name)
	}
	defer b.reloadMu.Unlock()

	b.mu.Lock()
	prev := b.active
	prevBackup := b.backup
	prevPhase := b.phase
	b.mu.Unlock()

	// Unexpected faults must not leave a torn binding: restore the
	// previous artifact and report an internal fault result.
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic during reload", "module", name, "panic", r)
			b.mu.Lock()
			b.active = prev
			b.backup = prevBackup
			b.phase = PhaseRolledBack
			b.mu.Unlock()
			result = fail("internal fault during reload of %q: %v", name, r)
		}
	}()

	// BackingUp: the pre-swap snapshot must exist (or the run must fail
	// with nothing changed) before any swap happens.
	m.setPhase(b, name, PhaseBackingUp)
	backup := &core.BackupRecord{
		ModuleName: name,
		CreatedAt:  time.Now().UTC(),
		IsEmpty:    prev == nil,
	}
	if prev != nil {
		backup.OriginalLocation = prev.Location
		backupLocation, err := m.store.Backup(name, prev.Location)
		if err != nil {
			m.logger.Error("backup failed, aborting reload", "module", name, "error", err)
			m.setPhase(b, name, prevPhase)
			return fail("backup failed for module %q: %v", name, err)
		}
		backup.BackupLocation = backupLocation
	}
	b.mu.Lock()
	b.backup = backup
	b.mu.Unlock()

	// Swapping: load and instantiate the new artifact, then replace the
	// binding. A failure here restores the previous state.
	m.setPhase(b, name, PhaseSwapping)
	next, err := m.instantiate(name, location)
	if err != nil {
		return m.rollback(b, name, prev, prevBackup, fmt.Sprintf("swap failed for module %q: %v", name, err))
	}
	b.mu.Lock()
	b.active = next
	b.mu.Unlock()

	// Verifying: minimal re-validation of the now-active artifact.
	m.setPhase(b, name, PhaseVerifying)
	if _, err := m.instantiate(name, location); err != nil {
		return m.rollback(b, name, prev, prevBackup, fmt.Sprintf("verification failed for module %q: %v", name, err))
	}

	m.setPhase(b, name, PhaseCommitted)
	m.logger.Info("module reloaded",
		"module", name,
		"artifact", location,
		"version", next.Descriptor.Version,
		"first_activation", backup.IsEmpty)
	return core.HotReloadResult{Success: true, ArtifactLocation: location}
}

// instantiate loads, runs, and contract-checks the artifact at
// location without activating it.
func (m *Manager) instantiate(name, location string) (*artifact.Loaded, error) {
	prog, err := m.store.Load(location)
	if err != nil {
		return nil, err
	}
	inst, err := artifact.Instantiate(prog, name)
	if err != nil {
		return nil, err
	}
	return inst.Bind(location)
}

// rollback restores the pre-reload binding and backup record. The
// exposed backup always reflects the snapshot taken before the most
// recent committed swap.
func (m *Manager) rollback(b *binding, name string, prev *artifact.Loaded, prevBackup *core.BackupRecord, msg string) core.HotReloadResult {
	b.mu.Lock()
	b.active = prev
	b.backup = prevBackup
	b.phase = PhaseRolledBack
	b.mu.Unlock()

	m.logger.Error("reload rolled back", "module", name, "reason", msg)
	return core.HotReloadResult{Success: false, ErrorMessage: msg}
}

func (m *Manager) setPhase(b *binding, name string, phase Phase) {
	b.mu.Lock()
	b.phase = phase
	b.mu.Unlock()
	m.logger.Debug("reload phase", "module", name, "phase", phase.String())
}

func fail(format string, args ...any) core.HotReloadResult {
	return core.HotReloadResult{Success: false, ErrorMessage: fmt.Sprintf(format, args...)}
}
