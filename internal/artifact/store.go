// Package artifact manages staged module artifacts: serialized Starlark
// programs written by the compiler, loaded back for validation and
// activation, and copied aside as pre-swap backups. Artifacts in
// staging are inert; nothing here touches the active registry.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.starlark.net/starlark"

	"github.com/stablecore-labs/stablecore/pkg/core"
)

// Ext is the file extension for staged compiled programs.
const Ext = ".starc"

// Store writes and reads artifacts under a staging directory.
// Backups live in a sibling subdirectory so GetAllBackups can point at
// real files for manual inspection.
type Store struct {
	stagingDir string
	backupDir  string
}

// NewStore creates the staging and backup directories if needed.
func NewStore(stagingDir string) (*Store, error) {
	backupDir := filepath.Join(stagingDir, "backups")
	for _, dir := range []string{stagingDir, backupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create staging directory: %w", err)
		}
	}
	return &Store{stagingDir: stagingDir, backupDir: backupDir}, nil
}

// StagingDir returns the staging directory path.
func (s *Store) StagingDir() string { return s.stagingDir }

// Stage serializes a compiled program to a fresh staging location.
// The location embeds a UUID so concurrent compiles of the same module
// name never collide.
func (s *Store) Stage(moduleName string, prog *starlark.Program) (string, error) {
	location := filepath.Join(s.stagingDir, fmt.Sprintf("%s-%s%s", moduleName, uuid.NewString(), Ext))

	f, err := os.Create(location) //nolint:gosec // G304: location is built from the configured staging dir
	if err != nil {
		return "", fmt.Errorf("failed to create staged artifact: %w", err)
	}
	if err := prog.Write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(location)
		return "", fmt.Errorf("failed to write staged artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(location)
		return "", fmt.Errorf("failed to close staged artifact: %w", err)
	}
	return location, nil
}

// Exists reports whether an artifact file exists at location.
func (s *Store) Exists(location string) bool {
	info, err := os.Stat(location)
	return err == nil && !info.IsDir()
}

// Load decodes the compiled program stored at location.
func (s *Store) Load(location string) (*starlark.Program, error) {
	f, err := os.Open(location) //nolint:gosec // G304: location comes from the staging store
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.NewError(core.ErrNotFound, "", "artifact not found: %s", location)
		}
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	prog, err := starlark.CompiledProgram(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artifact %s: %w", location, err)
	}
	return prog, nil
}

// Backup copies the artifact at location into the backup directory and
// returns the backup location.
func (s *Store) Backup(moduleName, location string) (string, error) {
	src, err := os.Open(location) //nolint:gosec // G304: location comes from the staging store
	if err != nil {
		if os.IsNotExist(err) {
			return "", core.NewError(core.ErrNotFound, moduleName, "artifact not found: %s", location)
		}
		return "", fmt.Errorf("failed to open artifact for backup: %w", err)
	}
	defer src.Close()

	backupLocation := filepath.Join(s.backupDir, fmt.Sprintf("%s-%s%s", moduleName, uuid.NewString(), Ext))
	dst, err := os.Create(backupLocation) //nolint:gosec // G304: path is built from the configured backup dir
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(backupLocation)
		return "", fmt.Errorf("failed to copy backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(backupLocation)
		return "", fmt.Errorf("failed to close backup: %w", err)
	}
	return backupLocation, nil
}

// Remove deletes a staged artifact. Missing files are not an error.
func (s *Store) Remove(location string) error {
	if err := os.Remove(location); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove artifact: %w", err)
	}
	return nil
}
