package model

import (
	"fmt"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Node is an element of a model graph. Its property values live in slots
// keyed by property identifier; an absent slot means the default value or an
// empty collection.
type Node struct {
	id        string
	typ       *Type
	model     *Model
	slots     map[int]any
	unlinking bool
	unlinked  bool
}

// ID returns the node identifier.
func (n *Node) ID() string { return n.id }

// Type returns the node type.
func (n *Node) Type() *Type { return n.typ }

// Model returns the model the node was created in.
func (n *Node) Model() *Model { return n.model }

// Unlinked reports whether the node has been unlinked from its model.
func (n *Node) Unlinked() bool { return n.unlinked }

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.typ.name + "(" + n.id + ")"
}

// Property returns the descriptor visible under name for the node's type.
func (n *Node) Property(name string) (Property, error) {
	p, ok := n.model.schema.Property(n.typ, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", types.ErrUnknownProperty, n.typ.name, name)
	}
	return p, nil
}

// Get returns the value of the named property.
func (n *Node) Get(name string) (any, error) {
	p, err := n.Property(name)
	if err != nil {
		return nil, err
	}
	return p.Get(n)
}

// Set assigns the named property. On a multi-valued association it adds v.
func (n *Node) Set(name string, v any) error {
	if n.unlinked {
		return types.ErrNodeUnlinked
	}
	p, err := n.Property(name)
	if err != nil {
		return err
	}
	return p.Set(n, v)
}

// Add adds v to the named association.
func (n *Node) Add(name string, v *Node) error {
	if n.unlinked {
		return types.ErrNodeUnlinked
	}
	p, err := n.Property(name)
	if err != nil {
		return err
	}
	a, ok := p.(adder)
	if !ok {
		return fmt.Errorf("%w: %s does not hold nodes", types.ErrTypeMismatch, p)
	}
	return a.Add(n, v)
}

// Delete removes v from the named property, or resets it when v is nil.
func (n *Node) Delete(name string, v any) error {
	if n.unlinked {
		return types.ErrNodeUnlinked
	}
	p, err := n.Property(name)
	if err != nil {
		return err
	}
	return p.Delete(n, v)
}

// Nodes returns the nodes held by the named association, derived union or
// redefinition.
func (n *Node) Nodes(name string) ([]*Node, error) {
	p, err := n.Property(name)
	if err != nil {
		return nil, err
	}
	h, ok := p.(nodeHolder)
	if !ok {
		return nil, fmt.Errorf("%w: %s does not hold nodes", types.ErrTypeMismatch, p)
	}
	return h.Nodes(n), nil
}

// Unlink detaches the node from every property of its type, cascading
// through composite associations, and removes it from the model. Unlinking
// an already unlinked node does nothing.
func (n *Node) Unlink() {
	if n.unlinking || n.unlinked {
		return
	}
	n.unlinking = true
	for _, p := range n.model.schema.Properties(n.typ) {
		p.Unlink(n)
	}
	n.model.remove(n)
	n.unlinking = false
	n.unlinked = true
	n.model.emit(Event{Kind: NodeUnlinked, Node: n})
}

func (n *Node) slot(p Property) (any, bool) {
	v, ok := n.slots[p.desc().id]
	return v, ok
}

func (n *Node) store(p Property, v any) {
	n.slots[p.desc().id] = v
}

func (n *Node) clear(p Property) {
	delete(n.slots, p.desc().id)
}

func (n *Node) emit(e Event) {
	n.model.emit(e)
}
