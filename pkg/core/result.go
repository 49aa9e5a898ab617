package core

import (
	"fmt"
	"time"
)

// DiagnosticKind distinguishes expected compile/validate findings from
// unrecoverable internal faults.
type DiagnosticKind string

// Diagnostic kinds.
const (
	DiagError    DiagnosticKind = "error"
	DiagInternal DiagnosticKind = "internal"
)

// Diagnostic is a single ordered message produced by the compiler or
// validator.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
}

// String returns the diagnostic message, prefixed for internal faults.
func (d Diagnostic) String() string {
	if d.Kind == DiagInternal {
		return "internal: " + d.Message
	}
	return d.Message
}

// Errorf builds an error-kind diagnostic.
func Errorf(format string, args ...any) Diagnostic {
	return Diagnostic{Kind: DiagError, Message: fmt.Sprintf(format, args...)}
}

// Internalf builds an internal-kind diagnostic.
func Internalf(format string, args ...any) Diagnostic {
	return Diagnostic{Kind: DiagInternal, Message: fmt.Sprintf(format, args...)}
}

// DiagnosticMessages flattens diagnostics to their messages.
func DiagnosticMessages(diags []Diagnostic) []string {
	msgs := make([]string, len(diags))
	for i, d := range diags {
		msgs[i] = d.String()
	}
	return msgs
}

// CompilationResult reports the outcome of compiling module source into
// a staged artifact. Compile errors are an expected outcome, carried as
// diagnostics with Success=false.
type CompilationResult struct {
	Success          bool         `json:"success"`
	ArtifactLocation string       `json:"artifact_location,omitempty"`
	Diagnostics      []Diagnostic `json:"diagnostics,omitempty"`
}

// ValidationResult reports whether a staged artifact conforms to the
// module contract.
type ValidationResult struct {
	Success     bool         `json:"success"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// BackupRecord is the pre-swap snapshot taken for a module so that a
// failed reload can always be rolled back. IsEmpty is true when no
// prior active artifact existed (first activation).
type BackupRecord struct {
	ModuleName       string    `json:"module_name"`
	BackupLocation   string    `json:"backup_location,omitempty"`
	OriginalLocation string    `json:"original_location,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	IsEmpty          bool      `json:"is_empty"`
}

// HotReloadResult reports the outcome of a backup/swap/verify run.
// ArtifactLocation is the now-active artifact on success.
type HotReloadResult struct {
	Success          bool   `json:"success"`
	ErrorMessage     string `json:"error_message,omitempty"`
	ArtifactLocation string `json:"artifact_location,omitempty"`
}

// FailedStage tags which pipeline stage an update failed in.
type FailedStage string

// Pipeline stages for UpdateResult.
const (
	StagePermission FailedStage = "permission"
	StageCompile    FailedStage = "compile"
	StageValidate   FailedStage = "validate"
	StageReload     FailedStage = "reload"
	StageNone       FailedStage = "none"
)

// UpdateResult is a HotReloadResult extended with the stage that failed
// and the diagnostics collected up to that point.
type UpdateResult struct {
	HotReloadResult
	FailedStage FailedStage  `json:"failed_stage"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}
