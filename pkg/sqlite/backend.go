// Package sqlite exposes the JSONL store with its SQLite query index to
// programs embedding modelgraph.
//
//	store := sqlite.NewStore(nil)
//	err := store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".modelgraph-db",
//	}, schema)
//	defer store.Detach()
//	m, err := store.Load()
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/modelgraph/internal/sqlite"
	"github.com/mesh-intelligence/modelgraph/pkg/model"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Store persists models of one schema. See NewStore.
type Store = sqlite.Store

// Reference is an association value pointing at a node.
type Reference = sqlite.Reference

// NewStore creates a detached store. A nil logger uses slog.Default().
func NewStore(logger *slog.Logger) *Store {
	return sqlite.NewStore(logger)
}

// Open attaches a store to config.DataDir and loads the model saved there.
// The caller detaches the store when done.
func Open(config types.Config, schema *model.Schema, logger *slog.Logger) (*Store, *model.Model, error) {
	s := sqlite.NewStore(logger)
	if err := s.Attach(config, schema); err != nil {
		return nil, nil, err
	}
	m, err := s.Load()
	if err != nil {
		_ = s.Detach()
		return nil, nil, err
	}
	return s, m, nil
}
