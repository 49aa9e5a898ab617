// Package compiler turns module source text into staged, inert
// artifacts. Compile errors are expected outcomes reported as ordered
// diagnostics; only staging I/O faults are reported as internal.
package compiler

import (
	"log/slog"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/stablecore-labs/stablecore/internal/artifact"
	"github.com/stablecore-labs/stablecore/pkg/core"
)

// Compiler compiles Starlark module source into staged artifacts.
type Compiler struct {
	store  *artifact.Store
	logger *slog.Logger
}

// New creates a compiler writing to the given staging store.
func New(store *artifact.Store, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compiler{store: store, logger: logger}
}

// Compile parses and compiles source for the named module and stages
// the serialized program. It never touches the active registry.
func (c *Compiler) Compile(moduleName, source string) core.CompilationResult {
	if moduleName == "" {
		return failure(core.Errorf("module name is required"))
	}
	if source == "" {
		return failure(core.Errorf("module source is empty"))
	}

	filename := moduleName + ".star"
	_, prog, err := starlark.SourceProgramOptions(syntax.LegacyFileOptions(), filename, source, isPredeclared)
	if err != nil {
		diags := diagnosticsFromErr(err)
		c.logger.Debug("compilation failed", "module", moduleName, "diagnostics", len(diags))
		return failure(diags...)
	}

	location, err := c.store.Stage(moduleName, prog)
	if err != nil {
		c.logger.Error("failed to stage artifact", "module", moduleName, "error", err)
		return failure(core.Internalf("failed to stage artifact: %v", err))
	}

	c.logger.Info("module compiled", "module", moduleName, "artifact", location)
	return core.CompilationResult{Success: true, ArtifactLocation: location}
}

// isPredeclared reports whether a name is predeclared beyond the
// Starlark universe. Modules get no extra predeclared names.
func isPredeclared(string) bool { return false }

// diagnosticsFromErr converts Starlark parse/resolve errors into
// ordered diagnostics. Resolve errors arrive as a list; syntax errors
// as a single positioned error.
func diagnosticsFromErr(err error) []core.Diagnostic {
	switch e := err.(type) {
	case resolve.ErrorList:
		diags := make([]core.Diagnostic, 0, len(e))
		for _, re := range e {
			diags = append(diags, core.Errorf("%s: %s", re.Pos, re.Msg))
		}
		return diags
	case resolve.Error:
		return []core.Diagnostic{core.Errorf("%s: %s", e.Pos, e.Msg)}
	case syntax.Error:
		return []core.Diagnostic{core.Errorf("%s: %s", e.Pos, e.Msg)}
	default:
		return []core.Diagnostic{core.Errorf("%v", err)}
	}
}

func failure(diags ...core.Diagnostic) core.CompilationResult {
	return core.CompilationResult{Success: false, Diagnostics: diags}
}
