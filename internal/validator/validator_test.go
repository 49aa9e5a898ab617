package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablecore-labs/stablecore/internal/artifact"
	"github.com/stablecore-labs/stablecore/internal/compiler"
	"github.com/stablecore-labs/stablecore/internal/testutil"
)

// harness compiles source through the real compiler so validation sees
// real staged artifacts.
type harness struct {
	store     *artifact.Store
	compiler  *compiler.Compiler
	validator *Validator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	logger := testutil.NewTestLogger(t)
	return &harness{
		store:     store,
		compiler:  compiler.New(store, logger),
		validator: New(store, logger),
	}
}

func (h *harness) stage(t *testing.T, name, source string) string {
	t.Helper()
	result := h.compiler.Compile(name, source)
	require.True(t, result.Success, "diagnostics: %v", result.Diagnostics)
	return result.ArtifactLocation
}

func TestValidate_Success(t *testing.T) {
	h := newHarness(t)
	location := h.stage(t, "widgets", `
module_name = "widgets"
module_version = "1.0.0"

def handle(request):
    return "ok"
`)

	result := h.validator.Validate(location)

	assert.True(t, result.Success, "diagnostics: %v", result.Diagnostics)
	assert.Empty(t, result.Diagnostics)
}

func TestValidate_EmptyLocation(t *testing.T) {
	h := newHarness(t)

	result := h.validator.Validate("")

	assert.False(t, result.Success)
	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Message, "required")
}

func TestValidate_MissingArtifact(t *testing.T) {
	h := newHarness(t)

	result := h.validator.Validate(filepath.Join(h.store.StagingDir(), "missing.starc"))

	assert.False(t, result.Success)
	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Message, "not found")
}

func TestValidate_CorruptArtifact(t *testing.T) {
	h := newHarness(t)
	location := filepath.Join(h.store.StagingDir(), "corrupt.starc")
	require.NoError(t, os.WriteFile(location, []byte("garbage"), 0o644))

	result := h.validator.Validate(location)

	assert.False(t, result.Success)
	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Message, "not a valid compiled module")
}

func TestValidate_InitFault(t *testing.T) {
	h := newHarness(t)
	location := h.stage(t, "widgets", `fail("explodes at init")`)

	result := h.validator.Validate(location)

	assert.False(t, result.Success)
	require.Len(t, result.Diagnostics, 1)
	assert.Contains(t, result.Diagnostics[0].Message, "failed to instantiate")
}

func TestValidate_MissingContract(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{
			name:    "no descriptor",
			source:  `x = 1`,
			wantMsg: "module_name",
		},
		{
			name: "no handler",
			source: `
module_name = "widgets"
module_version = "1.0.0"
`,
			wantMsg: "handle",
		},
		{
			name: "version not a string",
			source: `
module_name = "widgets"
module_version = 3

def handle(request):
    return "ok"
`,
			wantMsg: "module_version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			location := h.stage(t, "widgets", tt.source)
			result := h.validator.Validate(location)
			assert.False(t, result.Success)
			require.NotEmpty(t, result.Diagnostics)
			assert.Contains(t, result.Diagnostics[0].Message, tt.wantMsg)
		})
	}
}

// Validation must never activate the artifact: there is no binding
// table here, but a second validation of the same artifact must behave
// identically (loading is side-effect free).
func TestValidate_Repeatable(t *testing.T) {
	h := newHarness(t)
	location := h.stage(t, "widgets", `
module_name = "widgets"
module_version = "1.0.0"

def handle(request):
    return "ok"
`)

	first := h.validator.Validate(location)
	second := h.validator.Validate(location)

	assert.Equal(t, first, second)
}
