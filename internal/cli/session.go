package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/modelgraph/internal/metrics"
	"github.com/mesh-intelligence/modelgraph/internal/recovery"
	"github.com/mesh-intelligence/modelgraph/internal/schemafile"
	"github.com/mesh-intelligence/modelgraph/internal/sqlite"
	"github.com/mesh-intelligence/modelgraph/pkg/model"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

const journalFileName = "journal.jsonl"

// session is one command's view of the stored model: the store attached
// to the data directory, the model loaded from it and the optional journal
// and metrics recorder observing it.
type session struct {
	flags       *rootFlags
	out         io.Writer
	logger      *slog.Logger
	config      types.Config
	store       *sqlite.Store
	model       *model.Model
	journal     *recovery.Journal
	journalPath string
	recorder    *metrics.Recorder
}

// loadSchema compiles the description at path, or the built-in one when
// path is empty.
func loadSchema(path string, logger *slog.Logger) (*model.Schema, error) {
	if path == "" {
		return schemafile.Parse(schemafile.Default(), model.WithLogger(logger))
	}
	return schemafile.Load(path, model.WithLogger(logger))
}

// openSession attaches the store and loads the model. A journal left by an
// interrupted command is replayed and saved before anything else happens.
func openSession(cmd *cobra.Command, f *rootFlags) (*session, error) {
	cfg, _, err := resolveConfig(f)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())

	schema, err := loadSchema(cfg.SchemaFile, logger)
	if err != nil {
		return nil, err
	}
	store := sqlite.NewStore(logger)
	if err := store.Attach(cfg, schema); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	m, err := store.Load()
	if err != nil {
		_ = store.Detach()
		return nil, fmt.Errorf("load model: %w", err)
	}

	s := &session{
		flags:  f,
		out:    cmd.OutOrStdout(),
		logger: logger,
		config: cfg,
		store:  store,
		model:  m,
	}
	if cfg.Journal {
		if err := s.recover(); err != nil {
			_ = store.Detach()
			return nil, err
		}
	}
	if f.stats {
		s.recorder = metrics.NewRecorder()
		s.recorder.Attach(m)
	}
	return s, nil
}

// recover replays a leftover journal onto the loaded model, saves the
// result and starts journaling this session's changes.
func (s *session) recover() error {
	s.journalPath = filepath.Join(s.config.DataDir, journalFileName)
	j, err := recovery.Open(s.journalPath, s.logger)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if j.Len() > 0 {
		s.logger.Warn("recovering unsaved changes", slog.Int("entries", j.Len()))
		if err := j.Replay(s.model); err != nil {
			return fmt.Errorf("recover: %w", err)
		}
		if err := s.store.Save(s.model); err != nil {
			return fmt.Errorf("recover: %w", err)
		}
		j.Truncate()
		if err := j.Flush(s.journalPath); err != nil {
			return err
		}
	}
	j.Attach(s.model)
	s.journal = j
	return nil
}

// commit persists the session's changes. The journal is flushed first so
// that a failed save can be recovered by the next command.
func (s *session) commit() error {
	if s.journal != nil {
		if err := s.journal.Flush(s.journalPath); err != nil {
			return err
		}
	}
	if err := s.store.Save(s.model); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if s.journal != nil {
		s.journal.Truncate()
		if err := s.journal.Flush(s.journalPath); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) close() error {
	if s.journal != nil {
		s.journal.Detach()
	}
	if s.recorder != nil {
		s.recorder.Detach()
	}
	return s.store.Detach()
}

// node looks up a live node by id.
func (s *session) node(id string) (*model.Node, error) {
	n, ok := s.model.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return n, nil
}

// printStats writes the notification counters when --stats is set.
func (s *session) printStats() error {
	if s.recorder == nil {
		return nil
	}
	snap, err := s.recorder.Snapshot()
	if err != nil {
		return err
	}
	if s.flags.jsonMode {
		return writeJSON(s.out, map[string]any{"stats": snap})
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fmt.Fprintln(s.out, "stats:")
	for _, k := range keys {
		fmt.Fprintf(s.out, "  %-24s %g\n", k, snap[k])
	}
	return nil
}

// run wraps a command body with session setup and teardown. Mutating
// commands commit when fn succeeds.
func run(f *rootFlags, mutates bool, fn func(s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		s, err := openSession(cmd, f)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, s.close())
		}()
		if err := fn(s, args); err != nil {
			return err
		}
		if mutates {
			if err := s.commit(); err != nil {
				return err
			}
		}
		return s.printStats()
	}
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
