// Package validator inspects staged artifacts for contract conformance
// before they may be activated. Validation loads an artifact in
// isolation; it never activates it.
package validator

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/stablecore-labs/stablecore/internal/artifact"
	"github.com/stablecore-labs/stablecore/pkg/core"
)

// Validator checks staged artifacts against the module contract:
// the artifact exists, decodes, instantiates without fault, exposes a
// module descriptor, and exposes a callable handler.
type Validator struct {
	store  *artifact.Store
	logger *slog.Logger
}

// New creates a validator reading from the given staging store.
func New(store *artifact.Store, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Validator{store: store, logger: logger}
}

// Validate runs the contract checks in order, appending a diagnostic
// for each failure. The artifact never becomes active here.
func (v *Validator) Validate(artifactLocation string) core.ValidationResult {
	if artifactLocation == "" {
		return failure(core.Errorf("artifact location is required"))
	}

	if !v.store.Exists(artifactLocation) {
		return failure(core.Errorf("artifact not found: %s", artifactLocation))
	}

	prog, err := v.store.Load(artifactLocation)
	if err != nil {
		return failure(core.Errorf("artifact is not a valid compiled module: %v", err))
	}

	inst, err := artifact.Instantiate(prog, moduleNameFromLocation(artifactLocation))
	if err != nil {
		return failure(core.Errorf("artifact failed to instantiate: %v", err))
	}

	var diags []core.Diagnostic
	if _, err := inst.Describe(); err != nil {
		diags = append(diags, core.Errorf("%v", describeMessage(err)))
	}
	if _, err := inst.Handler(); err != nil {
		diags = append(diags, core.Errorf("%v", describeMessage(err)))
	}
	if len(diags) > 0 {
		v.logger.Debug("artifact failed validation", "artifact", artifactLocation, "diagnostics", len(diags))
		return core.ValidationResult{Success: false, Diagnostics: diags}
	}

	v.logger.Debug("artifact validated", "artifact", artifactLocation)
	return core.ValidationResult{Success: true}
}

func failure(diags ...core.Diagnostic) core.ValidationResult {
	return core.ValidationResult{Success: false, Diagnostics: diags}
}

// moduleNameFromLocation recovers the module name prefix from a staged
// artifact filename for thread naming only.
func moduleNameFromLocation(location string) string {
	base := strings.TrimSuffix(filepath.Base(location), artifact.Ext)
	if i := strings.LastIndex(base, "-"); i > 0 {
		return base[:i]
	}
	return base
}

// describeMessage strips the structured error prefix so validation
// diagnostics read as plain contract findings.
func describeMessage(err error) string {
	var e *core.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
