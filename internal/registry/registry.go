// Package registry provides the StableCore module catalog and the
// update orchestrator that chains compile → validate → reload for a
// single update request. Core-classified modules are registered once at
// startup and frozen; dynamic modules are created on first successful
// reload and replaced wholesale on each subsequent one.
package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stablecore-labs/stablecore/internal/artifact"
	"github.com/stablecore-labs/stablecore/internal/hotreload"
	"github.com/stablecore-labs/stablecore/internal/state"
	"github.com/stablecore-labs/stablecore/pkg/core"
)

// Compiler compiles module source into a staged artifact.
type Compiler interface {
	Compile(moduleName, source string) core.CompilationResult
}

// Validator checks a staged artifact against the module contract.
type Validator interface {
	Validate(artifactLocation string) core.ValidationResult
}

// Reloader runs the backup/swap/verify state machine.
type Reloader interface {
	Reload(name, location string) core.HotReloadResult
	Resolve(name string) (*artifact.Loaded, bool)
	GetAllBackups() map[string]core.BackupRecord
	Phases() map[string]hotreload.Phase
}

// StableCore is the process-wide catalog of core and dynamic modules.
// It gatekeeps which names are eligible for update and owns the
// orchestration of the update pipeline. The in-memory catalog is
// authoritative; the optional state store is write-through only.
type StableCore struct {
	mu          sync.RWMutex
	records     map[string]*core.ModuleRecord
	lastUpdated time.Time

	coreVersion string
	compiler    Compiler
	validator   Validator
	reloader    Reloader
	store       state.Store
	logger      *slog.Logger
}

// Config holds the collaborators for a StableCore registry.
type Config struct {
	CoreVersion string
	Compiler    Compiler
	Validator   Validator
	Reloader    Reloader
	// Store is optional; when nil the registry is purely in-memory.
	Store  state.Store
	Logger *slog.Logger
}

// New creates a StableCore registry.
func New(cfg Config) *StableCore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StableCore{
		records:     make(map[string]*core.ModuleRecord),
		coreVersion: cfg.CoreVersion,
		compiler:    cfg.Compiler,
		validator:   cfg.Validator,
		reloader:    cfg.Reloader,
		store:       cfg.Store,
		logger:      logger,
	}
}

// RegisterCoreModule registers a core module at startup. A second
// registration for the same name is rejected; core records are frozen
// after this call.
func (s *StableCore) RegisterCoreModule(rec core.ModuleRecord) error {
	if rec.Name == "" {
		return core.NewError(core.ErrInvalidInput, "", "core module name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Name]; exists {
		return core.NewError(core.ErrInvalidInput, rec.Name, "module already registered")
	}

	rec.Stability = core.StabilityCore
	if rec.Status == "" {
		rec.Status = core.StateActive
	}
	if rec.LoadedAt.IsZero() {
		rec.LoadedAt = time.Now().UTC()
	}
	s.records[rec.Name] = rec.Clone()
	s.lastUpdated = time.Now().UTC()

	s.persistModule(&rec)
	s.logger.Info("core module registered", "module", rec.Name, "version", rec.Version)
	return nil
}

// IsModuleStable reports whether name is core-classified and therefore
// ineligible for update.
func (s *StableCore) IsModuleStable(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[name]
	return ok && rec.Stability == core.StabilityCore
}

// GetModule returns a copy of the record for name.
func (s *StableCore) GetModule(name string) (*core.ModuleRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[name]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// ListCoreModules returns the core module records, sorted by name.
func (s *StableCore) ListCoreModules() []core.ModuleRecord {
	return s.listByStability(core.StabilityCore)
}

// ListDynamicModules returns the dynamic module records, sorted by name.
func (s *StableCore) ListDynamicModules() []core.ModuleRecord {
	return s.listByStability(core.StabilityDynamic)
}

// ListBackups returns the latest pre-swap backup per module.
func (s *StableCore) ListBackups() map[string]core.BackupRecord {
	return s.reloader.GetAllBackups()
}

func (s *StableCore) listByStability(stability core.Stability) []core.ModuleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []core.ModuleRecord
	for _, rec := range s.records {
		if rec.Stability == stability {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records
}

// upsertDynamic replaces the dynamic record for name after a successful
// reload.
func (s *StableCore) upsertDynamic(name string, desc artifact.Descriptor, artifactRef string) *core.ModuleRecord {
	now := time.Now().UTC()
	rec := &core.ModuleRecord{
		Name:        name,
		Version:     desc.Version,
		Stability:   core.StabilityDynamic,
		LoadedAt:    now,
		ArtifactRef: artifactRef,
		Status:      core.StateActive,
	}

	s.mu.Lock()
	s.records[name] = rec
	s.lastUpdated = now
	s.mu.Unlock()

	return rec.Clone()
}

// markState updates the status of an existing record, if any.
func (s *StableCore) markState(name string, status core.ModuleState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[name]; ok {
		rec.Status = status
		s.lastUpdated = time.Now().UTC()
	}
}

// persistModule writes a record summary through to the state store.
// Persistence failures are logged, never propagated: the in-memory
// catalog stays authoritative.
func (s *StableCore) persistModule(rec *core.ModuleRecord) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveModule(rec); err != nil {
		s.logger.Warn("failed to persist module record", "module", rec.Name, "error", err)
	}
}
