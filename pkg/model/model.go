package model

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Model is a set of nodes built on a sealed schema. It delivers every event
// emitted by its nodes: first to its subscribers, then to the derived
// properties listening to the changed property.
type Model struct {
	schema    *Schema
	nodes     map[string]*Node
	order     []*Node
	observers []*observer
	logger    *slog.Logger
}

type observer struct {
	handler Handler
}

// NewModel returns an empty model. The schema must be sealed.
func NewModel(s *Schema) (*Model, error) {
	if s == nil || !s.sealed {
		return nil, types.ErrSchemaNotSealed
	}
	return &Model{
		schema: s,
		nodes:  make(map[string]*Node),
		logger: s.logger,
	}, nil
}

// Schema returns the schema the model is built on.
func (m *Model) Schema() *Schema { return m.schema }

// Create adds a new node of type t with a fresh UUID v7 identifier.
func (m *Model) Create(t *Type) (*Node, error) {
	return m.CreateAs(t, generateID())
}

// CreateAs adds a new node of type t with the given identifier.
func (m *Model) CreateAs(t *Type, id string) (*Node, error) {
	if t == nil || t.schema != m.schema {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownType, typeName(t))
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}
	if _, dup := m.nodes[id]; dup {
		return nil, fmt.Errorf("%w: %s", types.ErrDuplicateID, id)
	}
	n := &Node{
		id:    id,
		typ:   t,
		model: m,
		slots: make(map[int]any),
	}
	m.nodes[id] = n
	m.order = append(m.order, n)
	m.emit(Event{Kind: NodeCreated, Node: n})
	return n, nil
}

// Lookup returns the node with the given identifier.
func (m *Model) Lookup(id string) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// Nodes returns the live nodes in creation order.
func (m *Model) Nodes() []*Node {
	return slices.Clone(m.order)
}

// Len returns the number of live nodes.
func (m *Model) Len() int { return len(m.order) }

// Subscribe registers h for every event of the model. The returned function
// removes the subscription.
func (m *Model) Subscribe(h Handler) func() {
	o := &observer{handler: h}
	m.observers = append(m.observers, o)
	return func() {
		m.observers = slices.DeleteFunc(slices.Clone(m.observers), func(x *observer) bool { return x == o })
	}
}

// PostLoad validates every property of every node after a bulk load.
func (m *Model) PostLoad() error {
	for _, n := range m.order {
		for _, p := range m.schema.Properties(n.typ) {
			if err := p.PostLoad(n); err != nil {
				return fmt.Errorf("postload %s: %w", n, err)
			}
		}
	}
	return nil
}

func (m *Model) emit(e Event) {
	for _, o := range m.observers {
		o.handler(e)
	}
	if e.Property == nil {
		return
	}
	for _, h := range m.schema.listeners[e.Property] {
		h(e)
	}
}

func (m *Model) remove(n *Node) {
	delete(m.nodes, n.id)
	m.order = slices.DeleteFunc(m.order, func(x *Node) bool { return x == n })
}

// generateID returns a UUID v7, falling back to v4.
func generateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
