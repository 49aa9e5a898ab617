package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablecore-labs/stablecore/internal/testutil"
	"github.com/stablecore-labs/stablecore/pkg/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, s.Open(":memory:"))
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveModule_Upsert(t *testing.T) {
	s := newTestStore(t)

	rec := &core.ModuleRecord{
		Name:        "widgets",
		Version:     "1.0.0",
		Stability:   core.StabilityDynamic,
		LoadedAt:    time.Now().UTC(),
		ArtifactRef: "stg/widgets-1",
		Status:      core.StateActive,
	}
	require.NoError(t, s.SaveModule(rec))

	// Replace wholesale on reload
	rec.Version = "2.0.0"
	rec.ArtifactRef = "stg/widgets-2"
	require.NoError(t, s.SaveModule(rec))

	got, err := s.GetModule("widgets")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", got.Version)
	assert.Equal(t, "stg/widgets-2", got.ArtifactRef)
	assert.Equal(t, core.StabilityDynamic, got.Stability)

	records, err := s.ListModules()
	require.NoError(t, err)
	assert.Len(t, records, 1, "upsert must not duplicate rows")
}

func TestGetModule_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetModule("nope")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.ErrNotFound))
}

func TestListModules_Sorted(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"zeta", "alpha"} {
		require.NoError(t, s.SaveModule(&core.ModuleRecord{
			Name:      name,
			Version:   "1.0.0",
			Stability: core.StabilityCore,
			LoadedAt:  time.Now().UTC(),
			Status:    core.StateActive,
		}))
	}

	records, err := s.ListModules()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "alpha", records[0].Name)
	assert.Equal(t, "zeta", records[1].Name)
}

func TestBackups(t *testing.T) {
	s := newTestStore(t)

	first := &core.BackupRecord{
		ModuleName: "widgets",
		CreatedAt:  time.Now().UTC().Add(-time.Minute),
		IsEmpty:    true,
	}
	second := &core.BackupRecord{
		ModuleName:       "widgets",
		BackupLocation:   "stg/backups/widgets-1",
		OriginalLocation: "stg/widgets-1",
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, s.SaveBackup(first))
	require.NoError(t, s.SaveBackup(second))

	backups, err := s.ListBackups()
	require.NoError(t, err)
	require.Len(t, backups, 2)
	// Newest first
	assert.Equal(t, "stg/widgets-1", backups[0].OriginalLocation)
	assert.True(t, backups[1].IsEmpty)
}

func TestReloadHistory(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordReload(&ReloadEvent{
		ModuleName:  "widgets",
		ArtifactRef: "stg/widgets-1",
		FailedStage: core.StageNone,
		Success:     true,
		CreatedAt:   time.Now().UTC().Add(-time.Minute),
	}))
	require.NoError(t, s.RecordReload(&ReloadEvent{
		ModuleName:  "widgets",
		ArtifactRef: "stg/widgets-2",
		FailedStage: core.StageReload,
		Success:     false,
		Error:       "verification failed",
		CreatedAt:   time.Now().UTC(),
	}))

	events, err := s.ListReloads("widgets", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.False(t, events[0].Success, "newest first")
	assert.Equal(t, core.StageReload, events[0].FailedStage)
	assert.NotEmpty(t, events[0].ID, "IDs are generated when absent")

	limited, err := s.ListReloads("widgets", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := s.ListReloads("other", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_NotOpened(t *testing.T) {
	s := NewSQLiteStore(nil)

	assert.Error(t, s.Migrate())
	assert.Error(t, s.SaveModule(&core.ModuleRecord{Name: "x"}))
	_, err := s.ListModules()
	assert.Error(t, err)
}
