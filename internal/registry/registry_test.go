package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablecore-labs/stablecore/internal/artifact"
	"github.com/stablecore-labs/stablecore/internal/hotreload"
	"github.com/stablecore-labs/stablecore/internal/testutil"
	"github.com/stablecore-labs/stablecore/pkg/core"
)

// Call-counting fakes for short-circuit assertions.

type fakeCompiler struct {
	calls  int
	result core.CompilationResult
}

func (f *fakeCompiler) Compile(_, _ string) core.CompilationResult {
	f.calls++
	return f.result
}

type fakeValidator struct {
	calls  int
	result core.ValidationResult
}

func (f *fakeValidator) Validate(_ string) core.ValidationResult {
	f.calls++
	return f.result
}

type fakeReloader struct {
	calls  int
	result core.HotReloadResult
	phases map[string]hotreload.Phase
}

func (f *fakeReloader) Reload(_, _ string) core.HotReloadResult {
	f.calls++
	return f.result
}

func (f *fakeReloader) Resolve(_ string) (*artifact.Loaded, bool) { return nil, false }

func (f *fakeReloader) GetAllBackups() map[string]core.BackupRecord {
	return map[string]core.BackupRecord{}
}

func (f *fakeReloader) Phases() map[string]hotreload.Phase {
	if f.phases == nil {
		return map[string]hotreload.Phase{}
	}
	return f.phases
}

func newFakeRegistry(t *testing.T) (*StableCore, *fakeCompiler, *fakeValidator, *fakeReloader) {
	t.Helper()
	comp := &fakeCompiler{result: core.CompilationResult{Success: true, ArtifactLocation: "stg/x"}}
	val := &fakeValidator{result: core.ValidationResult{Success: true}}
	rel := &fakeReloader{result: core.HotReloadResult{Success: true, ArtifactLocation: "stg/x"}}
	reg := New(Config{
		CoreVersion: "1.0.0",
		Compiler:    comp,
		Validator:   val,
		Reloader:    rel,
		Logger:      testutil.NewTestLogger(t),
	})
	return reg, comp, val, rel
}

func TestRegisterCoreModule(t *testing.T) {
	reg, _, _, _ := newFakeRegistry(t)

	err := reg.RegisterCoreModule(core.ModuleRecord{Name: "core-logging", Version: "1.0.0"})
	require.NoError(t, err)

	rec, ok := reg.GetModule("core-logging")
	require.True(t, ok)
	assert.Equal(t, core.StabilityCore, rec.Stability)
	assert.Equal(t, core.StateActive, rec.Status)
	assert.False(t, rec.LoadedAt.IsZero())
}

func TestRegisterCoreModule_DuplicateRejected(t *testing.T) {
	reg, _, _, _ := newFakeRegistry(t)

	require.NoError(t, reg.RegisterCoreModule(core.ModuleRecord{Name: "core-logging", Version: "1.0.0"}))
	err := reg.RegisterCoreModule(core.ModuleRecord{Name: "core-logging", Version: "2.0.0"})

	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.ErrInvalidInput))

	// First registration is frozen
	rec, _ := reg.GetModule("core-logging")
	assert.Equal(t, "1.0.0", rec.Version)
}

func TestRegisterCoreModule_EmptyName(t *testing.T) {
	reg, _, _, _ := newFakeRegistry(t)

	err := reg.RegisterCoreModule(core.ModuleRecord{})
	assert.True(t, core.IsKind(err, core.ErrInvalidInput))
}

func TestIsModuleStable(t *testing.T) {
	reg, _, _, _ := newFakeRegistry(t)
	require.NoError(t, reg.RegisterCoreModule(core.ModuleRecord{Name: "core-logging", Version: "1.0.0"}))

	assert.True(t, reg.IsModuleStable("core-logging"))
	assert.False(t, reg.IsModuleStable("widgets"))
	assert.False(t, reg.IsModuleStable("unknown"))
}

func TestListModules(t *testing.T) {
	reg, _, _, _ := newFakeRegistry(t)
	require.NoError(t, reg.RegisterCoreModule(core.ModuleRecord{Name: "core-b", Version: "1.0.0"}))
	require.NoError(t, reg.RegisterCoreModule(core.ModuleRecord{Name: "core-a", Version: "1.0.0"}))

	coreModules := reg.ListCoreModules()
	require.Len(t, coreModules, 2)
	assert.Equal(t, "core-a", coreModules[0].Name, "modules are sorted by name")
	assert.Equal(t, "core-b", coreModules[1].Name)
	assert.Empty(t, reg.ListDynamicModules())
}

func TestGetModuleStatus(t *testing.T) {
	reg, _, _, _ := newFakeRegistry(t)
	require.NoError(t, reg.RegisterCoreModule(core.ModuleRecord{Name: "core-logging", Version: "1.0.0"}))

	status := reg.GetModuleStatus()

	assert.Equal(t, "1.0.0", status.CoreVersion)
	assert.Equal(t, 1, status.TotalModules)
	assert.Len(t, status.CoreModules, 1)
	assert.False(t, status.LastUpdated.IsZero())
}

func TestGetSystemHealth_Recomputed(t *testing.T) {
	reg, _, _, _ := newFakeRegistry(t)
	require.NoError(t, reg.RegisterCoreModule(core.ModuleRecord{Name: "core-logging", Version: "1.0.0"}))

	first := reg.GetSystemHealth()
	time.Sleep(time.Millisecond)
	second := reg.GetSystemHealth()

	assert.True(t, first.IsHealthy)
	assert.Equal(t, 1, first.CoreModuleCount)
	assert.Zero(t, first.DynamicModuleCount)
	assert.True(t, second.LastChecked.After(first.LastChecked), "health is recomputed on every call")
}
