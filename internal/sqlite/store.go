// Package sqlite persists modelgraph models. JSONL files in the data
// directory are the source of truth; a SQLite database rebuilt from them
// answers queries without loading the model.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/modelgraph/internal/jsonl"
	"github.com/mesh-intelligence/modelgraph/pkg/model"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Store saves and loads models built on one schema.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	schema   *model.Schema
	db       *sql.DB
	logger   *slog.Logger
}

// Reference is an association value pointing at a node.
type Reference struct {
	NodeID   string `json:"node_id"`
	Property string `json:"property"`
}

// nodeHolder is implemented by the descriptors whose values are nodes.
type nodeHolder interface {
	Nodes(n *model.Node) []*model.Node
}

// NewStore creates a detached store. A nil logger uses slog.Default().
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

// Attach opens the store in config.DataDir for models of schema. It creates
// the data directory and empty JSONL files when missing, and rebuilds the
// index from the JSONL files.
func (s *Store) Attach(config types.Config, schema *model.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if schema == nil || !schema.Sealed() {
		return types.ErrSchemaNotSealed
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	config.DataDir = dataDir
	if err := initJSONLFiles(dataDir); err != nil {
		return err
	}

	dbPath := filepath.Join(dataDir, indexDB)
	// The index is derived data; start from an empty database.
	_ = os.Remove(dbPath)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	for _, ddl := range append(append([]string(nil), schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating index schema: %w", err)
		}
	}

	nodes, values, err := readRecords(dataDir)
	if err != nil {
		db.Close()
		return err
	}
	if err := rebuildIndex(db, nodes, values); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	s.db = db
	s.config = config
	s.schema = schema
	s.attached = true
	s.logger.Debug("store attached",
		slog.String("data_dir", dataDir),
		slog.Int("nodes", len(nodes)),
		slog.Int("values", len(values)))
	return nil
}

// Detach closes the index. It is idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
		s.db = nil
	}
	s.attached = false
	return nil
}

// DataDir returns the data directory of an attached store.
func (s *Store) DataDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.DataDir
}

// Save writes every node of m and the values its properties save, then
// rebuilds the index.
func (s *Store) Save(m *model.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return types.ErrStoreDetached
	}
	if m.Schema() != s.schema {
		return fmt.Errorf("%w: model uses a different schema", types.ErrInvalidSchema)
	}

	var (
		nodes  []nodeRecord
		values []valueRecord
	)
	for _, n := range m.Nodes() {
		nodes = append(nodes, nodeRecord{NodeID: n.ID(), Type: n.Type().Name()})
		for _, p := range s.schema.Properties(n.Type()) {
			err := p.Save(n, func(name string, v any) error {
				values = append(values, encodeValue(n.ID(), name, v))
				return nil
			})
			if err != nil {
				return fmt.Errorf("saving %s.%s: %w", n, p.Name(), err)
			}
		}
	}

	if err := jsonl.WriteItems(filepath.Join(s.config.DataDir, nodesJSONL), nodes); err != nil {
		return fmt.Errorf("persisting %s: %w", nodesJSONL, err)
	}
	if err := jsonl.WriteItems(filepath.Join(s.config.DataDir, valuesJSONL), values); err != nil {
		return fmt.Errorf("persisting %s: %w", valuesJSONL, err)
	}
	if err := rebuildIndex(s.db, nodes, values); err != nil {
		return err
	}
	s.logger.Debug("model saved", slog.Int("nodes", len(nodes)), slog.Int("values", len(values)))
	return nil
}

// Load builds a model from the JSONL files. Values are loaded without
// notifications, then every property of every node runs its post-load
// check. Records naming unknown types, properties or nodes are skipped with
// a warning.
func (s *Store) Load() (*model.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrStoreDetached
	}
	nodes, values, err := readRecords(s.config.DataDir)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModel(s.schema)
	if err != nil {
		return nil, err
	}

	for _, rec := range nodes {
		t, ok := s.schema.Type(rec.Type)
		if !ok {
			s.logger.Warn("skipping node of unknown type",
				slog.String("node_id", rec.NodeID),
				slog.String("type", rec.Type))
			continue
		}
		if _, err := m.CreateAs(t, rec.NodeID); err != nil {
			s.logger.Warn("skipping node", slog.String("node_id", rec.NodeID), slog.Any("error", err))
		}
	}

	for _, rec := range values {
		n, ok := m.Lookup(rec.NodeID)
		if !ok {
			s.logger.Warn("skipping value of unknown node",
				slog.String("node_id", rec.NodeID),
				slog.String("property", rec.Property))
			continue
		}
		p, err := n.Property(rec.Property)
		if err != nil {
			s.logger.Warn("skipping value", slog.String("node_id", rec.NodeID), slog.Any("error", err))
			continue
		}
		if err := s.loadValue(m, n, p, rec); err != nil {
			return nil, fmt.Errorf("loading %s.%s: %w", rec.NodeID, rec.Property, err)
		}
	}

	if err := m.PostLoad(); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) loadValue(m *model.Model, n *model.Node, p model.Property, rec valueRecord) error {
	if _, ok := p.(nodeHolder); !ok {
		return p.Load(n, rec.Value)
	}
	refs := rec.Refs
	if refs == nil {
		if id, ok := rec.Value.(string); ok {
			refs = []string{id}
		}
	}
	for _, id := range refs {
		target, ok := m.Lookup(id)
		if !ok {
			s.logger.Warn("skipping dangling reference",
				slog.String("node_id", rec.NodeID),
				slog.String("property", rec.Property),
				slog.String("target_id", id))
			continue
		}
		if err := p.Load(n, target); err != nil {
			return err
		}
	}
	return nil
}

// NodesOfType returns the identifiers of indexed nodes whose type is
// typeName or one of its subtypes, ordered by identifier.
func (s *Store) NodesOfType(typeName string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrStoreDetached
	}
	target, ok := s.schema.Type(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownType, typeName)
	}
	var names []any
	for _, t := range s.schema.Types() {
		if t.IsA(target) {
			names = append(names, t.Name())
		}
	}
	query := "SELECT node_id FROM nodes WHERE type IN (?" + strings.Repeat(", ?", len(names)-1) + ") ORDER BY node_id"
	return s.queryIDs(query, names...)
}

// Referrers returns the association values that point at id.
func (s *Store) Referrers(id string) ([]Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, types.ErrStoreDetached
	}
	rows, err := s.db.Query(
		"SELECT node_id, property FROM node_references WHERE target_id = ? ORDER BY node_id, property", id)
	if err != nil {
		return nil, fmt.Errorf("querying referrers of %s: %w", id, err)
	}
	defer rows.Close()

	var out []Reference
	for rows.Next() {
		var r Reference
		if err := rows.Scan(&r.NodeID, &r.Property); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) queryIDs(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// encodeValue converts a saved value into its JSONL form.
func encodeValue(nodeID, name string, v any) valueRecord {
	rec := valueRecord{NodeID: nodeID, Property: name}
	switch v := v.(type) {
	case *model.Node:
		rec.Refs = []string{v.ID()}
	case []*model.Node:
		rec.Refs = make([]string, len(v))
		for i, n := range v {
			rec.Refs[i] = n.ID()
		}
	case time.Time:
		rec.Value = v.UTC().Format(time.RFC3339Nano)
	default:
		rec.Value = v
	}
	return rec
}

// initJSONLFiles creates empty JSONL files that do not exist yet.
func initJSONLFiles(dataDir string) error {
	for _, name := range []string{nodesJSONL, valuesJSONL} {
		path := filepath.Join(dataDir, name)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			if err := os.WriteFile(path, nil, 0o644); err != nil {
				return fmt.Errorf("creating %s: %w", name, err)
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}
