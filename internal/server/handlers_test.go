package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stablecore-labs/stablecore/pkg/core"
)

// fakeService scripts registry responses so handler mapping can be
// tested without a real module pipeline.
type fakeService struct {
	status  core.ModuleStatus
	health  core.SystemHealth
	update  core.UpdateResult
	compile core.CompilationResult
	valid   core.ValidationResult
	reload  core.HotReloadResult
	backups map[string]core.BackupRecord

	updateName   string
	updateSource string
}

func (f *fakeService) GetModuleStatus() core.ModuleStatus  { return f.status }
func (f *fakeService) GetSystemHealth() core.SystemHealth  { return f.health }
func (f *fakeService) UpdateModule(name, source string) core.UpdateResult {
	f.updateName = name
	f.updateSource = source
	return f.update
}
func (f *fakeService) CompileModule(name, source string) core.CompilationResult { return f.compile }
func (f *fakeService) ValidateModule(artifactLocation string) core.ValidationResult {
	return f.valid
}
func (f *fakeService) HotReloadModule(name, artifactLocation string) core.HotReloadResult {
	return f.reload
}
func (f *fakeService) ListBackups() map[string]core.BackupRecord { return f.backups }
func (f *fakeService) ListCoreModules() []core.ModuleRecord      { return f.status.CoreModules }
func (f *fakeService) ListDynamicModules() []core.ModuleRecord   { return f.status.DynamicModules }

func newTestServer(svc *fakeService) *httptest.Server {
	return httptest.NewServer(New(svc, ":0", nil).Router())
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHandleStatus(t *testing.T) {
	svc := &fakeService{status: core.ModuleStatus{
		CoreVersion:  "1.2.3",
		TotalModules: 2,
		LastUpdated:  time.Now().UTC(),
		CoreModules:  []core.ModuleRecord{{Name: "auth", Version: "1.0.0", Status: core.StateActive}},
		DynamicModules: []core.ModuleRecord{
			{Name: "widgets", Version: "2.0.0", Status: core.StateActive},
		},
	}}
	srv := newTestServer(svc)
	defer srv.Close()

	var got core.ModuleStatus
	code := getJSON(t, srv.URL+"/api/status", &got)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.2.3", got.CoreVersion)
	assert.Equal(t, 2, got.TotalModules)
	require.Len(t, got.DynamicModules, 1)
	assert.Equal(t, "widgets", got.DynamicModules[0].Name)
}

func TestHandleHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := newTestServer(&fakeService{health: core.SystemHealth{IsHealthy: true}})
		defer srv.Close()

		var got core.SystemHealth
		code := getJSON(t, srv.URL+"/api/health", &got)
		assert.Equal(t, http.StatusOK, code)
		assert.True(t, got.IsHealthy)
	})

	t.Run("unhealthy", func(t *testing.T) {
		srv := newTestServer(&fakeService{health: core.SystemHealth{
			IsHealthy: false,
			Issues:    []string{"module widgets is rolled_back"},
		}})
		defer srv.Close()

		var got core.SystemHealth
		code := getJSON(t, srv.URL+"/api/health", &got)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, []string{"module widgets is rolled_back"}, got.Issues)
	})
}

func TestHandleUpdate_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		result   core.UpdateResult
		wantCode int
	}{
		{
			name: "success",
			result: core.UpdateResult{
				HotReloadResult: core.HotReloadResult{Success: true, ArtifactLocation: "stg/widgets-1"},
				FailedStage:     core.StageNone,
			},
			wantCode: http.StatusOK,
		},
		{
			name:     "permission denied",
			result:   core.UpdateResult{FailedStage: core.StagePermission},
			wantCode: http.StatusForbidden,
		},
		{
			name: "compile failure",
			result: core.UpdateResult{
				FailedStage: core.StageCompile,
				Diagnostics: []core.Diagnostic{core.Errorf("widgets.star:1:5: got '=', want newline")},
			},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "validate failure",
			result:   core.UpdateResult{FailedStage: core.StageValidate},
			wantCode: http.StatusUnprocessableEntity,
		},
		{
			name:     "reload failure",
			result:   core.UpdateResult{FailedStage: core.StageReload},
			wantCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{update: tt.result}
			srv := newTestServer(svc)
			defer srv.Close()

			var got core.UpdateResult
			code := postJSON(t, srv.URL+"/api/modules/widgets", `{"source":"handle = lambda req: req"}`, &got)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.result.FailedStage, got.FailedStage)
			assert.Equal(t, "widgets", svc.updateName)
			assert.Equal(t, "handle = lambda req: req", svc.updateSource)
		})
	}
}

func TestHandleUpdate_BadBody(t *testing.T) {
	srv := newTestServer(&fakeService{})
	defer srv.Close()

	var got map[string]string
	code := postJSON(t, srv.URL+"/api/modules/widgets", `{not json`, &got)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid request body", got["error"])
}

func TestHandleReload(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newTestServer(&fakeService{reload: core.HotReloadResult{
			Success:          true,
			ArtifactLocation: "stg/widgets-2",
		}})
		defer srv.Close()

		var got core.HotReloadResult
		code := postJSON(t, srv.URL+"/api/modules/widgets/reload", `{"artifact_location":"stg/widgets-2"}`, &got)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "stg/widgets-2", got.ArtifactLocation)
	})

	t.Run("failure", func(t *testing.T) {
		srv := newTestServer(&fakeService{reload: core.HotReloadResult{
			ErrorMessage: "module verification failed",
		}})
		defer srv.Close()

		var got core.HotReloadResult
		code := postJSON(t, srv.URL+"/api/modules/widgets/reload", `{"artifact_location":"stg/widgets-2"}`, &got)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "module verification failed", got.ErrorMessage)
	})
}

func TestHandleCompileAndValidate(t *testing.T) {
	svc := &fakeService{
		compile: core.CompilationResult{
			Diagnostics: []core.Diagnostic{core.Errorf("source must not be empty")},
		},
		valid: core.ValidationResult{Success: true},
	}
	srv := newTestServer(svc)
	defer srv.Close()

	var comp core.CompilationResult
	code := postJSON(t, srv.URL+"/api/compile", `{"name":"widgets","source":""}`, &comp)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	require.Len(t, comp.Diagnostics, 1)
	assert.Equal(t, "source must not be empty", comp.Diagnostics[0].Message)

	var val core.ValidationResult
	code = postJSON(t, srv.URL+"/api/validate", `{"artifact_location":"stg/widgets-1.starc"}`, &val)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, val.Success)
}

func TestHandleBackups(t *testing.T) {
	svc := &fakeService{backups: map[string]core.BackupRecord{
		"widgets": {
			ModuleName:       "widgets",
			BackupLocation:   "stg/backups/widgets-1",
			OriginalLocation: "stg/widgets-1",
			CreatedAt:        time.Now().UTC(),
		},
	}}
	srv := newTestServer(svc)
	defer srv.Close()

	var got map[string]core.BackupRecord
	code := getJSON(t, srv.URL+"/api/backups", &got)
	assert.Equal(t, http.StatusOK, code)
	require.Contains(t, got, "widgets")
	assert.Equal(t, "stg/widgets-1", got["widgets"].OriginalLocation)
}
