package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/modelgraph/internal/paths"
	"github.com/mesh-intelligence/modelgraph/internal/schemafile"
	"github.com/mesh-intelligence/modelgraph/internal/sqlite"
)

func newInitCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long: "Create the configuration directory with config.yaml and schema.yaml, then\n" +
			"create the data directory and its index.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, f)
		},
	}
}

func runInit(cmd *cobra.Command, f *rootFlags) error {
	cfg, configDir, err := resolveConfig(f)
	if err != nil {
		return err
	}
	if cfg.SchemaFile == "" {
		cfg.SchemaFile = filepath.Join(configDir, paths.SchemaFileName)
		if err := writeSchemaIfMissing(cfg.SchemaFile); err != nil {
			return fmt.Errorf("write schema: %w", err)
		}
	}

	logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	schema, err := loadSchema(cfg.SchemaFile, logger)
	if err != nil {
		return err
	}
	store := sqlite.NewStore(logger)
	if err := store.Attach(cfg, schema); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := store.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	out := cmd.OutOrStdout()
	if f.jsonMode {
		return writeJSON(out, map[string]string{
			"config": configDir,
			"data":   cfg.DataDir,
			"schema": cfg.SchemaFile,
		})
	}
	fmt.Fprintln(out, "modelgraph initialized")
	fmt.Fprintln(out, "  config:", configDir)
	fmt.Fprintln(out, "  data:  ", cfg.DataDir)
	fmt.Fprintln(out, "  schema:", cfg.SchemaFile)
	return nil
}

// writeSchemaIfMissing writes the built-in metamodel to path so that it can
// be edited. An existing file is left alone.
func writeSchemaIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, schemafile.Default(), 0o644)
}
