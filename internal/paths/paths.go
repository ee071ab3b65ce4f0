// Package paths resolves where modelgraph keeps its configuration, its
// schema file and its data.
package paths

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "modelgraph"

// Working-directory-relative names used when nothing overrides them.
const (
	DefaultConfigDirName = ".modelgraph"
	DefaultDataDirName   = ".modelgraph-db"
	ConfigFileName       = "config.yaml"
	SchemaFileName       = "schema.yaml"
)

// Environment overrides.
const (
	EnvConfigDir = "MODELGRAPH_CONFIG_DIR"
	EnvDataDir   = "MODELGRAPH_DATA_DIR"
)

// platformDir can be replaced in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// platform returns <xdg>/modelgraph on Linux, falling back to
// ~/<fallback...>/modelgraph, and <UserConfigDir>/modelgraph elsewhere.
func platform(xdgVar string, fallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/modelgraph (fallback ~/.config/modelgraph)
// macOS:   ~/Library/Application Support/modelgraph
// Windows: %APPDATA%/modelgraph
func DefaultConfigDir() (string, error) {
	return platform("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/modelgraph (fallback ~/.local/share/modelgraph)
// macOS and Windows: same as the configuration directory.
func DefaultDataDir() (string, error) {
	return platform("XDG_DATA_HOME", ".local", "share")
}

// firstAbs returns the first non-empty candidate made absolute.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			p, err := filepath.Abs(c)
			return p, true, err
		}
	}
	return "", false, nil
}

// ResolveConfigDir applies flag > MODELGRAPH_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if p, ok, err := firstAbs(flag, os.Getenv(EnvConfigDir)); ok {
		return p, err
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config.yaml value > MODELGRAPH_DATA_DIR >
// ./.modelgraph-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	if p, ok, err := firstAbs(flag, configValue, os.Getenv(EnvDataDir)); ok {
		return p, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ResolveSchemaFile applies flag > config.yaml value > <configDir>/schema.yaml
// when that file exists. An empty result means the built-in schema.
func ResolveSchemaFile(flag, configValue, configDir string) (string, error) {
	if p, ok, err := firstAbs(flag, configValue); ok {
		return p, err
	}
	candidate := filepath.Join(configDir, SchemaFileName)
	if _, err := os.Stat(candidate); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return candidate, nil
}
