package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/stablecore-labs/stablecore/internal/hotreload"
	"github.com/stablecore-labs/stablecore/pkg/core"
)

// GetModuleStatus returns the catalog aggregate for the status boundary
// operation.
func (s *StableCore) GetModuleStatus() core.ModuleStatus {
	coreModules := s.ListCoreModules()
	dynamicModules := s.ListDynamicModules()

	s.mu.RLock()
	lastUpdated := s.lastUpdated
	s.mu.RUnlock()

	return core.ModuleStatus{
		CoreVersion:    s.coreVersion,
		TotalModules:   len(coreModules) + len(dynamicModules),
		LastUpdated:    lastUpdated,
		CoreModules:    coreModules,
		DynamicModules: dynamicModules,
	}
}

// GetSystemHealth recomputes system health on every call. The system is
// unhealthy when any module is rolled back or otherwise errored; issues
// names each offender.
func (s *StableCore) GetSystemHealth() core.SystemHealth {
	health := core.SystemHealth{
		IsHealthy:   true,
		LastChecked: time.Now().UTC(),
	}

	issues := make(map[string]string)

	s.mu.RLock()
	for name, rec := range s.records {
		switch rec.Stability {
		case core.StabilityCore:
			health.CoreModuleCount++
		case core.StabilityDynamic:
			health.DynamicModuleCount++
		}
		if rec.Status != core.StateActive {
			issues[name] = string(rec.Status)
		}
	}
	s.mu.RUnlock()

	// A failed first activation has a reload phase but no record yet.
	for name, phase := range s.reloader.Phases() {
		if phase == hotreload.PhaseRolledBack {
			issues[name] = phase.String()
		}
	}

	names := make([]string, 0, len(issues))
	for name := range issues {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		health.Issues = append(health.Issues, fmt.Sprintf("module %s is %s", name, issues[name]))
	}
	health.IsHealthy = len(health.Issues) == 0
	return health
}
