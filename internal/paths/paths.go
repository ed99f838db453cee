// Package paths resolves the workspace directory and the user-level
// configuration directory.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Names inside a workspace top directory.
const (
	WorkspaceDirName = ".prov"
	ConfigFileName   = "config.yaml"
	StoreDirName     = "store"
)

// EnvDir overrides the directory the workspace search starts from.
const EnvDir = "PROV_DIR"

// ErrNoWorkspace is returned when no ancestor of the start directory holds
// a workspace.
var ErrNoWorkspace = errors.New("not inside a prov workspace (run prov init)")

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific user configuration
// directory. A config.yaml there supplies defaults for every workspace.
//
// Linux:   $XDG_CONFIG_HOME/prov (fallback ~/.config/prov)
// macOS:   ~/Library/Application Support/prov
// Windows: %APPDATA%/prov
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "prov"), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "prov"), nil
	default:
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "prov"), nil
	}
}

// ResolveStart returns the absolute directory a workspace search starts
// from: flag > PROV_DIR env > current directory.
func ResolveStart(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvDir); env != "" {
		return filepath.Abs(env)
	}
	return platformDir.getwd()
}

// FindRoot walks up from start until it finds a directory containing the
// workspace directory and returns that top directory.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		info, err := os.Stat(WorkspaceDir(dir))
		if err == nil && info.IsDir() {
			return dir, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking %s: %w", WorkspaceDir(dir), err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: searched from %s", ErrNoWorkspace, start)
		}
		dir = parent
	}
}

// WorkspaceDir returns <top>/.prov.
func WorkspaceDir(top string) string {
	return filepath.Join(top, WorkspaceDirName)
}

// ConfigFile returns <top>/.prov/config.yaml.
func ConfigFile(top string) string {
	return filepath.Join(top, WorkspaceDirName, ConfigFileName)
}

// DefaultStoreDir returns <top>/.prov/store.
func DefaultStoreDir(top string) string {
	return filepath.Join(top, WorkspaceDirName, StoreDirName)
}

// Rel returns path relative to top, failing when path lies outside top.
func Rel(top, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(top, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the workspace %s", path, top)
	}
	return rel, nil
}
