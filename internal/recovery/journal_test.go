package recovery

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/modelgraph/internal/schemafile"
	"github.com/mesh-intelligence/modelgraph/pkg/model"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	schema *model.Schema
	model  *model.Model
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s, err := schemafile.Parse(schemafile.Default(), model.WithLogger(quietLogger()))
	require.NoError(t, err)
	m, err := model.NewModel(s)
	require.NoError(t, err)
	return &fixture{schema: s, model: m}
}

func (f *fixture) create(t *testing.T, typeName, id string) *model.Node {
	t.Helper()
	typ, ok := f.schema.Type(typeName)
	require.True(t, ok)
	n, err := f.model.CreateAs(typ, id)
	require.NoError(t, err)
	return n
}

// buildHistory applies a fixed sequence of edits to f.model.
func buildHistory(t *testing.T, f *fixture) {
	t.Helper()
	pk := f.create(t, "Package", "pk")
	c := f.create(t, "Class", "c")
	other := f.create(t, "Class", "other")
	p := f.create(t, "Property", "p")
	q := f.create(t, "Property", "q")

	require.NoError(t, c.Set("name", "Car"))
	require.NoError(t, c.Set("isAbstract", true))
	require.NoError(t, c.Set("createdAt", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, c.Set("visibility", "protected"))
	require.NoError(t, pk.Add("packagedElement", c))
	require.NoError(t, c.Add("ownedAttribute", p))
	require.NoError(t, c.Add("ownedAttribute", q))
	require.NoError(t, p.Set("class", other))
	require.NoError(t, p.Set("lowerValue", 0))
	require.NoError(t, c.Delete("ownedAttribute", q))
	require.NoError(t, c.Set("isAbstract", false))
	q.Unlink()
}

// snapshot renders the saved state of a model for comparison.
func snapshot(t *testing.T, m *model.Model) map[string]map[string]any {
	t.Helper()
	out := map[string]map[string]any{}
	for _, n := range m.Nodes() {
		vals := map[string]any{"type": n.Type().Name()}
		for _, p := range m.Schema().Properties(n.Type()) {
			err := p.Save(n, func(name string, v any) error {
				switch v := v.(type) {
				case *model.Node:
					vals[name] = v.ID()
				case []*model.Node:
					ids := make([]string, len(v))
					for i, x := range v {
						ids[i] = x.ID()
					}
					vals[name] = ids
				case time.Time:
					vals[name] = v.UTC().Format(time.RFC3339)
				default:
					vals[name] = v
				}
				return nil
			})
			require.NoError(t, err)
		}
		out[n.ID()] = vals
	}
	return out
}

func TestJournalRecords(t *testing.T) {
	f := newFixture(t)
	j := New(quietLogger())
	j.Attach(f.model)

	c := f.create(t, "Class", "c")
	p := f.create(t, "Property", "p")
	require.NoError(t, c.Set("name", "Car"))
	require.NoError(t, c.Add("ownedAttribute", p))
	require.NoError(t, c.Delete("ownedAttribute", p))
	p.Unlink()

	assert.Equal(t, []Entry{
		{Op: OpCreate, NodeID: "c", Type: "Class"},
		{Op: OpCreate, NodeID: "p", Type: "Property"},
		{Op: OpAttribute, NodeID: "c", Owner: "NamedElement", Property: "name", Value: "Car"},
		{Op: OpSet, NodeID: "p", Owner: "Property", Property: "class", Other: "c"},
		{Op: OpSet, NodeID: "c", Owner: "Class", Property: "ownedAttribute", Other: "p"},
		{Op: OpSet, NodeID: "p", Owner: "Property", Property: "class"},
		{Op: OpDelete, NodeID: "c", Owner: "Class", Property: "ownedAttribute", Other: "p"},
		{Op: OpUnlink, NodeID: "p"},
	}, j.Entries(), "derived union events are not journaled")
}

func TestJournalDetach(t *testing.T) {
	f := newFixture(t)
	j := New(nil)
	j.Attach(f.model)
	f.create(t, "Class", "a")
	j.Detach()
	f.create(t, "Class", "b")
	assert.Equal(t, 1, j.Len())

	j.Truncate()
	assert.Zero(t, j.Len())
}

func TestJournalReplay(t *testing.T) {
	f := newFixture(t)
	j := New(quietLogger())
	j.Attach(f.model)
	buildHistory(t, f)

	g := newFixture(t)
	require.NoError(t, j.Replay(g.model))
	assert.Equal(t, snapshot(t, f.model), snapshot(t, g.model))
}

func TestJournalFlushOpenReplay(t *testing.T) {
	f := newFixture(t)
	j := New(quietLogger())
	j.Attach(f.model)
	buildHistory(t, f)

	path := filepath.Join(t.TempDir(), "journal.jsonl")
	require.NoError(t, j.Flush(path))

	reopened, err := Open(path, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, j.Len(), reopened.Len())

	g := newFixture(t)
	require.NoError(t, reopened.Replay(g.model))
	assert.Equal(t, snapshot(t, f.model), snapshot(t, g.model))
}

func TestOpenMissingJournal(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "none.jsonl"), nil)
	require.NoError(t, err)
	assert.Zero(t, j.Len())
}

func TestJournalReplayErrors(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr error
	}{
		{name: "unknown type", entry: Entry{Op: OpCreate, NodeID: "x", Type: "Widget"}, wantErr: types.ErrUnknownType},
		{name: "unknown node", entry: Entry{Op: OpUnlink, NodeID: "ghost"}, wantErr: types.ErrNotFound},
		{name: "unknown property", entry: Entry{Op: OpAttribute, NodeID: "c", Owner: "Class", Property: "color"}, wantErr: types.ErrUnknownProperty},
		{name: "unknown other", entry: Entry{Op: OpSet, NodeID: "c", Owner: "Class", Property: "ownedAttribute", Other: "ghost"}, wantErr: types.ErrNotFound},
		{name: "unknown operation", entry: Entry{Op: "zz", NodeID: "c", Owner: "Class", Property: "name"}, wantErr: types.ErrInvalidJournal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.create(t, "Class", "c")
			j := New(quietLogger())
			j.entries = []Entry{tt.entry}
			assert.ErrorIs(t, j.Replay(f.model), tt.wantErr)
		})
	}
}
