package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/modelgraph/internal/paths"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyBackend    = "backend"
	cfgKeyDataDir    = "data_dir"
	cfgKeySchemaFile = "schema_file"
	cfgKeyLogLevel   = "log_level"
	cfgKeyJournal    = "journal"

	envPrefix = "MODELGRAPH"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# modelgraph configuration

# Storage backend
backend: sqlite

# Data directory (optional; overridden by --data-dir)
# data_dir:

# Metamodel description (optional; overridden by --schema)
# schema_file:

# debug, info, warn or error
log_level: warn

# Journal changes so an interrupted command can be recovered
journal: true
`

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file when they are missing. MODELGRAPH_LOG_LEVEL and
// MODELGRAPH_JOURNAL override the file.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLogLevel, "warn")
	v.SetDefault(cfgKeyJournal, true)
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyLogLevel, cfgKeyJournal} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates configDir and a default config.yaml when
// the file does not exist.
func ensureDefaultConfigFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(configDir, paths.ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// resolveConfig combines the flags, config.yaml and the environment into a
// validated Config.
func resolveConfig(f *rootFlags) (types.Config, string, error) {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, "", err
	}
	dataDir, err := paths.ResolveDataDir(f.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve data dir: %w", err)
	}
	schemaFile, err := paths.ResolveSchemaFile(f.schemaFile, v.GetString(cfgKeySchemaFile), configDir)
	if err != nil {
		return types.Config{}, "", fmt.Errorf("resolve schema file: %w", err)
	}

	cfg := types.Config{
		Backend:    v.GetString(cfgKeyBackend),
		DataDir:    dataDir,
		SchemaFile: schemaFile,
		LogLevel:   v.GetString(cfgKeyLogLevel),
		Journal:    v.GetBool(cfgKeyJournal),
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, "", fmt.Errorf("config %s: %w", filepath.Join(configDir, paths.ConfigFileName), err)
	}
	return cfg, configDir, nil
}

// newLogger returns a text logger on w at the configured level.
func newLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "info", "":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
