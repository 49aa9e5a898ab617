package core

import (
	"strings"
	"time"
)

// Stability classifies a module as fixed for the process lifetime or
// replaceable at runtime.
type Stability int

const (
	// StabilityCore marks a module as frozen after initial registration.
	// No compile/validate/reload path may touch its active artifact.
	StabilityCore Stability = iota
	// StabilityDynamic marks a module as eligible for hot reload.
	StabilityDynamic
)

// String returns the string representation of the stability class.
func (s Stability) String() string {
	switch s {
	case StabilityCore:
		return "core"
	case StabilityDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// ParseStability converts a string to a Stability value.
// Unknown strings default to StabilityDynamic.
func ParseStability(s string) Stability {
	if strings.EqualFold(s, "core") {
		return StabilityCore
	}
	return StabilityDynamic
}

// ModuleState describes the current condition of a module's active binding.
type ModuleState string

// Module states.
const (
	// StateActive means the module's artifact is bound and serving.
	StateActive ModuleState = "active"
	// StateRolledBack means the last reload attempt failed verification
	// and the previous artifact was restored.
	StateRolledBack ModuleState = "rolled_back"
	// StateErrored means the module is in an unexpected error condition.
	StateErrored ModuleState = "errored"
)

// ModuleRecord is the catalog entry for a registered module.
// Core records are write-once after registration; dynamic records are
// replaced wholesale on each successful reload.
type ModuleRecord struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Stability   Stability   `json:"-"`
	LoadedAt    time.Time   `json:"loaded_at"`
	ArtifactRef string      `json:"artifact_ref,omitempty"`
	Status      ModuleState `json:"status"`
}

// Clone returns a copy of the record so callers cannot mutate the
// registry's internal state through a returned pointer.
func (r *ModuleRecord) Clone() *ModuleRecord {
	cp := *r
	return &cp
}

// ModuleStatus is the aggregate returned by GetModuleStatus.
type ModuleStatus struct {
	CoreVersion    string         `json:"core_version"`
	TotalModules   int            `json:"total_modules"`
	LastUpdated    time.Time      `json:"last_updated"`
	CoreModules    []ModuleRecord `json:"core_modules"`
	DynamicModules []ModuleRecord `json:"dynamic_modules"`
}

// SystemHealth reports the health of the module system.
// It is recomputed on every call, never cached.
type SystemHealth struct {
	IsHealthy          bool      `json:"is_healthy"`
	CoreModuleCount    int       `json:"core_module_count"`
	DynamicModuleCount int       `json:"dynamic_module_count"`
	Issues             []string  `json:"issues"`
	LastChecked        time.Time `json:"last_checked"`
}
