package registry

import (
	"time"

	"github.com/stablecore-labs/stablecore/internal/artifact"
	"github.com/stablecore-labs/stablecore/internal/hotreload"
	"github.com/stablecore-labs/stablecore/internal/state"
	"github.com/stablecore-labs/stablecore/pkg/core"
)

// UpdateModule runs the full update pipeline for a dynamic module:
// permission gate → compile → validate → hot reload. Each stage
// short-circuits the pipeline on failure, tagging the result with the
// stage that failed. Core-classified targets fail immediately; the
// compiler and validator are never invoked for them.
func (s *StableCore) UpdateModule(name, source string) (result core.UpdateResult) {
	stage := core.StagePermission
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during module update", "module", name, "stage", string(stage), "panic", r)
			result = core.UpdateResult{
				HotReloadResult: core.HotReloadResult{
					Success:      false,
					ErrorMessage: core.NewError(core.ErrInternalFault, name, "unexpected fault during update: %v", r).Error(),
				},
				FailedStage: stage,
			}
		}
	}()

	if s.IsModuleStable(name) {
		s.logger.Warn("update rejected, module is core", "module", name)
		return core.UpdateResult{
			HotReloadResult: core.HotReloadResult{
				Success:      false,
				ErrorMessage: core.NewError(core.ErrPermissionDenied, name, "core modules cannot be updated").Error(),
			},
			FailedStage: core.StagePermission,
		}
	}

	s.logger.Info("module update requested", "module", name)

	stage = core.StageCompile
	cres := s.compiler.Compile(name, source)
	if !cres.Success {
		return core.UpdateResult{
			HotReloadResult: core.HotReloadResult{Success: false, ErrorMessage: "compilation failed"},
			FailedStage:     core.StageCompile,
			Diagnostics:     cres.Diagnostics,
		}
	}

	stage = core.StageValidate
	vres := s.validator.Validate(cres.ArtifactLocation)
	if !vres.Success {
		// The staged artifact stays inert; it is never activated.
		return core.UpdateResult{
			HotReloadResult: core.HotReloadResult{Success: false, ErrorMessage: "validation failed"},
			FailedStage:     core.StageValidate,
			Diagnostics:     vres.Diagnostics,
		}
	}

	stage = core.StageReload
	hres := s.HotReloadModule(name, cres.ArtifactLocation)
	if !hres.Success {
		return core.UpdateResult{HotReloadResult: hres, FailedStage: core.StageReload}
	}
	return core.UpdateResult{HotReloadResult: hres, FailedStage: core.StageNone}
}

// CompileModule compiles source for a module into a staged artifact
// without activating anything.
func (s *StableCore) CompileModule(name, source string) core.CompilationResult {
	return s.compiler.Compile(name, source)
}

// ValidateModule validates a staged artifact in isolation.
func (s *StableCore) ValidateModule(artifactLocation string) core.ValidationResult {
	return s.validator.Validate(artifactLocation)
}

// HotReloadModule swaps the active artifact for a dynamic module to an
// already staged, validated artifact. Core-classified targets fail with
// a permission error before the reloader is invoked.
func (s *StableCore) HotReloadModule(name, artifactLocation string) core.HotReloadResult {
	if s.IsModuleStable(name) {
		s.logger.Warn("reload rejected, module is core", "module", name)
		return core.HotReloadResult{
			Success:      false,
			ErrorMessage: core.NewError(core.ErrPermissionDenied, name, "core modules cannot be reloaded").Error(),
		}
	}

	hres := s.reloader.Reload(name, artifactLocation)
	s.recordReload(name, artifactLocation, hres)

	if !hres.Success {
		// A reload can fail without a rollback: invalid input and
		// overlap rejections never touch the active binding, and the
		// record must not flip to rolled_back for those. Only the
		// manager knows whether its state machine actually rolled back.
		if s.reloader.Phases()[name] == hotreload.PhaseRolledBack {
			s.markState(name, core.StateRolledBack)
		}
		return hres
	}

	desc := artifact.Descriptor{Name: name, Version: "unknown"}
	if loaded, ok := s.reloader.Resolve(name); ok {
		desc = loaded.Descriptor
	}
	rec := s.upsertDynamic(name, desc, hres.ArtifactLocation)
	s.persistModule(rec)
	s.persistBackup(name)
	return hres
}

// recordReload writes a reload history row through to the state store.
func (s *StableCore) recordReload(name, artifactRef string, hres core.HotReloadResult) {
	if s.store == nil {
		return
	}
	stage := core.StageNone
	if !hres.Success {
		stage = core.StageReload
	}
	ev := &state.ReloadEvent{
		ModuleName:  name,
		ArtifactRef: artifactRef,
		FailedStage: stage,
		Success:     hres.Success,
		Error:       hres.ErrorMessage,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.RecordReload(ev); err != nil {
		s.logger.Warn("failed to persist reload event", "module", name, "error", err)
	}
}

// persistBackup writes the latest backup snapshot for name through to
// the state store.
func (s *StableCore) persistBackup(name string) {
	if s.store == nil {
		return
	}
	if b, ok := s.reloader.GetAllBackups()[name]; ok {
		if err := s.store.SaveBackup(&b); err != nil {
			s.logger.Warn("failed to persist backup record", "module", name, "error", err)
		}
	}
}
