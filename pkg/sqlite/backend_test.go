package sqlite_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/modelgraph/internal/schemafile"
	"github.com/mesh-intelligence/modelgraph/pkg/model"
	"github.com/mesh-intelligence/modelgraph/pkg/sqlite"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

func TestOpenRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	schema, err := schemafile.Parse(schemafile.Default(), model.WithLogger(logger))
	require.NoError(t, err)
	cfg := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}

	store, m, err := sqlite.Open(cfg, schema, logger)
	require.NoError(t, err)
	class, _ := schema.Type("Class")
	prop, _ := schema.Type("Property")
	c, err := m.CreateAs(class, "c")
	require.NoError(t, err)
	p, err := m.CreateAs(prop, "p")
	require.NoError(t, err)
	require.NoError(t, c.Add("ownedAttribute", p))
	require.NoError(t, store.Save(m))
	require.NoError(t, store.Detach())

	store, m, err = sqlite.Open(cfg, schema, logger)
	require.NoError(t, err)
	defer store.Detach()
	assert.Equal(t, 2, m.Len())

	refs, err := store.Referrers("p")
	require.NoError(t, err)
	assert.Equal(t, []sqlite.Reference{{NodeID: "c", Property: "ownedAttribute"}}, refs)
}

func TestOpenInvalidConfig(t *testing.T) {
	schema, err := schemafile.Parse(schemafile.Default())
	require.NoError(t, err)
	_, _, err = sqlite.Open(types.Config{DataDir: t.TempDir()}, schema, nil)
	assert.ErrorIs(t, err, types.ErrBackendEmpty)
}
