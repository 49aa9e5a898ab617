package config

// Default configuration values.
const (
	DefaultModulesDir  = "modules"
	DefaultStagingDir  = ".stablecore/staging"
	DefaultStatePath   = ".stablecore/state.db"
	DefaultListen      = ":8700"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultCoreVersion = "dev"
)

// defaults is the confmap layer loaded below file, env, and flags.
func defaults() map[string]any {
	return map[string]any{
		"modules_dir":  DefaultModulesDir,
		"staging_dir":  DefaultStagingDir,
		"state_path":   DefaultStatePath,
		"listen":       DefaultListen,
		"watch":        true,
		"log_level":    DefaultLogLevel,
		"log_format":   DefaultLogFormat,
		"core_version": DefaultCoreVersion,
	}
}
