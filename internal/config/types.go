// Package config loads StableCore configuration from file, environment,
// and flags, in that order of increasing precedence.
package config

// Config holds the runtime configuration for the module system.
type Config struct {
	// ModulesDir is the directory of dynamic module sources (.star files).
	ModulesDir string `koanf:"modules_dir"`
	// StagingDir holds compiled, not-yet-active artifacts and backups.
	StagingDir string `koanf:"staging_dir"`
	// StatePath is the SQLite state database path. Empty disables
	// persistence; the registry then runs purely in-memory.
	StatePath string `koanf:"state_path"`
	// Listen is the HTTP API listen address.
	Listen string `koanf:"listen"`
	// Watch enables the modules-directory source watcher.
	Watch bool `koanf:"watch"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// CoreVersion is reported in status aggregates.
	CoreVersion string `koanf:"core_version"`
	// CoreModules are registered once at startup and frozen.
	CoreModules []CoreModule `koanf:"core_modules"`
}

// CoreModule declares a core-classified module registered at startup.
type CoreModule struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}
