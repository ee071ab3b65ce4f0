package model

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// umlSchema is a small UML-like metamodel shared by the package tests.
type umlSchema struct {
	schema *Schema

	element, comment, namedElement, class, property, operation, pkg, profile *Type

	name       *Attribute
	isAbstract *Attribute
	visibility *Enumeration

	ownedComment     *Association
	annotatedElement *Association
	ownedAttribute   *Association
	ownedOperation   *Association
	propertyClass    *Association
	operationClass   *Association
	importedMember   *Association
	packagedElement  *Association
	ownedType        *Association

	feature   *DerivedUnion
	member    *DerivedUnion
	namespace *DerivedUnion

	profileOwnedType *Redefine
	metaclass        *Redefine
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newUMLSchema(t *testing.T) *umlSchema {
	t.Helper()
	s := NewSchema(WithLogger(quietLogger()))
	u := &umlSchema{schema: s}

	u.element = s.DefineType("Element")
	u.comment = s.DefineType("Comment", u.element)
	u.namedElement = s.DefineType("NamedElement", u.element)
	u.class = s.DefineType("Class", u.namedElement)
	u.property = s.DefineType("Property", u.namedElement)
	u.operation = s.DefineType("Operation", u.namedElement)
	u.pkg = s.DefineType("Package", u.namedElement)
	u.profile = s.DefineType("Profile", u.pkg)

	u.name = s.Attribute(u.namedElement, "name", types.ValueTypeText, "")
	u.isAbstract = s.Attribute(u.class, "isAbstract", types.ValueTypeBoolean, false)
	u.visibility = s.Enumeration(u.namedElement, "visibility", []string{"public", "private", "protected"}, "")

	// ownedComment lives on a subtype of annotatedElement's participant.
	u.annotatedElement = s.Association(u.comment, "annotatedElement", u.element, 0, types.Unbounded, Opposite("ownedComment"))
	u.ownedComment = s.Association(u.class, "ownedComment", u.comment, 0, types.Unbounded, Opposite("annotatedElement"))

	u.ownedAttribute = s.Association(u.class, "ownedAttribute", u.property, 0, types.Unbounded, Composite(), Opposite("class"))
	u.propertyClass = s.Association(u.property, "class", u.class, 0, 1, Opposite("ownedAttribute"))
	u.ownedOperation = s.Association(u.class, "ownedOperation", u.operation, 0, types.Unbounded, Composite(), Opposite("class"))
	u.operationClass = s.Association(u.operation, "class", u.class, 0, 1, Opposite("ownedOperation"))
	u.importedMember = s.Association(u.class, "importedMember", u.namedElement, 0, types.Unbounded)
	u.packagedElement = s.Association(u.pkg, "packagedElement", u.namedElement, 0, types.Unbounded, Composite())
	u.ownedType = s.Association(u.pkg, "ownedType", u.namedElement, 0, 3)

	u.feature = s.DerivedUnion(u.class, "feature", 0, types.Unbounded, u.ownedAttribute, u.ownedOperation)
	u.member = s.DerivedUnion(u.class, "member", 0, types.Unbounded, u.ownedAttribute, u.importedMember)
	u.namespace = s.DerivedUnion(u.namedElement, "namespace", 0, 1, u.propertyClass, u.operationClass)

	u.profileOwnedType = s.Redefine(u.profile, "ownedType", u.class, u.ownedType)
	u.metaclass = s.Redefine(u.profile, "metaclass", u.class, u.ownedType)

	require.NoError(t, s.Seal())
	return u
}

func (u *umlSchema) newModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel(u.schema)
	require.NoError(t, err)
	return m
}

func create(t *testing.T, m *Model, typ *Type) *Node {
	t.Helper()
	n, err := m.Create(typ)
	require.NoError(t, err)
	return n
}

// recorder collects the events of a model.
type recorder struct {
	events []Event
}

func record(m *Model) *recorder {
	r := &recorder{}
	m.Subscribe(func(e Event) { r.events = append(r.events, e) })
	return r
}

func (r *recorder) kinds() []Kind {
	out := make([]Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) of(p Property) []Event {
	var out []Event
	for _, e := range r.events {
		if e.Property == p {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() { r.events = nil }
