package schemafile

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/modelgraph/pkg/model"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

func quiet() model.SchemaOption {
	return model.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestParseDefault(t *testing.T) {
	s, err := Parse(Default(), quiet())
	require.NoError(t, err)
	require.True(t, s.Sealed())

	class, ok := s.Type("Class")
	require.True(t, ok)
	namespace, ok := s.Type("Namespace")
	require.True(t, ok)
	assert.True(t, class.IsA(namespace))

	p, ok := s.Property(class, "ownedAttribute")
	require.True(t, ok)
	a, ok := p.(*model.Association)
	require.True(t, ok)
	assert.True(t, a.Composite())
	assert.Equal(t, types.Unbounded, a.Upper())
	require.NotNil(t, a.Opposite())
	assert.Equal(t, "class", a.Opposite().Name())

	p, ok = s.Property(class, "ownedElement")
	require.True(t, ok)
	assert.IsType(t, &model.DerivedUnion{}, p)

	profile, _ := s.Type("Profile")
	p, ok = s.Property(profile, "packagedElement")
	require.True(t, ok)
	assert.IsType(t, &model.Redefine{}, p)

	prop, _ := s.Type("Property")
	p, ok = s.Property(prop, "lowerValue")
	require.True(t, ok)
	assert.Equal(t, int64(1), p.(*model.Attribute).Default())
}

func TestDefaultSchemaBehaves(t *testing.T) {
	s, err := Parse(Default(), quiet())
	require.NoError(t, err)
	m, err := model.NewModel(s)
	require.NoError(t, err)

	classT, _ := s.Type("Class")
	propT, _ := s.Type("Property")
	pkgT, _ := s.Type("Package")
	pk, err := m.Create(pkgT)
	require.NoError(t, err)
	c, err := m.Create(classT)
	require.NoError(t, err)
	p, err := m.Create(propT)
	require.NoError(t, err)

	require.NoError(t, pk.Add("packagedElement", c))
	require.NoError(t, c.Add("ownedAttribute", p))

	owned, err := pk.Nodes("ownedElement")
	require.NoError(t, err)
	assert.Equal(t, []*model.Node{c}, owned)
	owned, err = c.Nodes("ownedMember")
	require.NoError(t, err)
	assert.Equal(t, []*model.Node{p}, owned)
	ns, err := p.Get("namespace")
	require.NoError(t, err)
	assert.Same(t, c, ns)

	pk.Unlink()
	assert.True(t, c.Unlinked())
	assert.True(t, p.Unlinked())
	assert.Zero(t, m.Len())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			name:    "not yaml",
			doc:     "types: [",
			wantErr: types.ErrInvalidSchema,
		},
		{
			name:    "unknown supertype",
			doc:     "types:\n  - name: A\n    supers: [B]\n",
			wantErr: types.ErrUnknownType,
		},
		{
			name:    "inheritance cycle",
			doc:     "types:\n  - name: A\n    supers: [B]\n  - name: B\n    supers: [A]\n",
			wantErr: types.ErrInvalidSchema,
		},
		{
			name:    "duplicate type",
			doc:     "types:\n  - name: A\n  - name: A\n",
			wantErr: types.ErrDuplicateName,
		},
		{
			name:    "bad bound",
			doc:     "types:\n  - name: A\nassociations:\n  - {type: A, name: a, participant: A, lower: 0, upper: many}\n",
			wantErr: types.ErrInvalidSchema,
		},
		{
			name:    "bad default",
			doc:     "types:\n  - name: A\nattributes:\n  - {type: A, name: n, value_type: integer, default: lots}\n",
			wantErr: types.ErrTypeMismatch,
		},
		{
			name:    "attribute on unknown type",
			doc:     "types:\n  - name: A\nattributes:\n  - {type: B, name: n, value_type: text}\n",
			wantErr: types.ErrUnknownType,
		},
		{
			name: "union cycle",
			doc: `types:
  - name: A
derived_unions:
  - {type: A, name: x, lower: 0, upper: "*", subsets: [A.y]}
  - {type: A, name: y, lower: 0, upper: "*", subsets: [A.x]}
`,
			wantErr: types.ErrInvalidSchema,
		},
		{
			name: "malformed subset reference",
			doc: `types:
  - name: A
derived_unions:
  - {type: A, name: x, lower: 0, upper: "*", subsets: [y]}
`,
			wantErr: types.ErrInvalidSchema,
		},
		{
			name: "unresolved opposite",
			doc: `types:
  - name: A
associations:
  - {type: A, name: a, participant: A, lower: 0, upper: 1, opposite: b}
`,
			wantErr: types.ErrUnresolvedOpposite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), quiet())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUnionsDeclaredInDependencyOrder(t *testing.T) {
	doc := `types:
  - name: A
associations:
  - {type: A, name: left, participant: A, lower: 0, upper: "*"}
  - {type: A, name: right, participant: A, lower: 0, upper: "*"}
derived_unions:
  - {type: A, name: all, lower: 0, upper: "*", subsets: [A.some, A.right]}
  - {type: A, name: some, lower: 0, upper: "*", subsets: [A.left]}
`
	s, err := Parse([]byte(doc), quiet())
	require.NoError(t, err)
	a, _ := s.Type("A")
	p, ok := s.Property(a, "all")
	require.True(t, ok)
	subsets := p.(*model.DerivedUnion).Subsets()
	require.Len(t, subsets, 2)
	assert.Equal(t, "some", subsets[0].Name())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, Default(), 0o644))

	s, err := Load(path, quiet())
	require.NoError(t, err)
	assert.NotEmpty(t, s.Types())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
