package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/stablecore-labs/stablecore/internal/artifact"
	"github.com/stablecore-labs/stablecore/internal/compiler"
	"github.com/stablecore-labs/stablecore/internal/config"
	"github.com/stablecore-labs/stablecore/internal/hotreload"
	"github.com/stablecore-labs/stablecore/internal/registry"
	"github.com/stablecore-labs/stablecore/internal/state"
	"github.com/stablecore-labs/stablecore/internal/validator"
	"github.com/stablecore-labs/stablecore/pkg/core"
)

type ctxKey int

const (
	configKey ctxKey = iota
	loggerKey
)

// WithRuntime stores the loaded config and logger in the command
// context for subcommands.
func WithRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) context.Context {
	ctx = context.WithValue(ctx, configKey, cfg)
	return context.WithValue(ctx, loggerKey, logger)
}

// runtimeFrom fetches the config and logger stored by the root command.
func runtimeFrom(cmd *cobra.Command) (*config.Config, *slog.Logger) {
	cfg, _ := cmd.Context().Value(configKey).(*config.Config)
	logger, _ := cmd.Context().Value(loggerKey).(*slog.Logger)
	if cfg == nil {
		cfg = &config.Config{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return cfg, logger
}

// Runtime bundles the wired module system for a command invocation.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *registry.StableCore
	Store    state.Store
}

// NewRuntime wires the artifact store, pipeline components, optional
// state store, and registry, and registers the configured core modules.
// The returned cleanup must be called (typically via defer).
func NewRuntime(cmd *cobra.Command) (*Runtime, func(), error) {
	cfg, logger := runtimeFrom(cmd)

	store, err := artifact.NewStore(cfg.StagingDir)
	if err != nil {
		return nil, nil, err
	}

	var st state.Store
	if cfg.StatePath != "" {
		if dir := filepath.Dir(cfg.StatePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		sqlStore := state.NewSQLiteStore(logger)
		if err := sqlStore.Open(cfg.StatePath); err != nil {
			return nil, nil, err
		}
		if err := sqlStore.Migrate(); err != nil {
			_ = sqlStore.Close()
			return nil, nil, err
		}
		st = sqlStore
	}

	reg := registry.New(registry.Config{
		CoreVersion: cfg.CoreVersion,
		Compiler:    compiler.New(store, logger),
		Validator:   validator.New(store, logger),
		Reloader:    hotreload.New(store, logger),
		Store:       st,
		Logger:      logger,
	})

	for _, cm := range cfg.CoreModules {
		rec := core.ModuleRecord{
			Name:     cm.Name,
			Version:  cm.Version,
			LoadedAt: time.Now().UTC(),
		}
		if err := reg.RegisterCoreModule(rec); err != nil {
			if st != nil {
				_ = st.Close()
			}
			return nil, nil, err
		}
	}

	cleanup := func() {
		if st != nil {
			_ = st.Close()
		}
	}
	return &Runtime{Config: cfg, Logger: logger, Registry: reg, Store: st}, cleanup, nil
}
