package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentActivations bounds parallel compiles during bootstrap.
const maxConcurrentActivations = 4

// ActivateDir compiles, validates, and activates every .star file in
// dir as a dynamic module named after the file. Distinct names update
// independently, so activation runs concurrently. Pipeline failures for
// individual modules are logged and surfaced through system health, not
// returned: a broken module source must not prevent the rest of the
// system from coming up.
func (s *StableCore) ActivateDir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("modules directory does not exist, skipping activation", "dir", dir)
			return nil
		}
		return fmt.Errorf("failed to read modules directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentActivations)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".star") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".star")
		path := filepath.Join(dir, entry.Name())

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			source, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the configured modules dir
			if err != nil {
				return fmt.Errorf("failed to read module source %s: %w", path, err)
			}
			res := s.UpdateModule(name, string(source))
			if !res.Success {
				s.logger.Warn("module activation failed",
					"module", name,
					"stage", string(res.FailedStage),
					"error", res.ErrorMessage)
			}
			return nil
		})
	}

	return g.Wait()
}
