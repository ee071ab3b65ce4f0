package model

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// SaveFunc receives one property value during persistence.
type SaveFunc func(name string, value any) error

// Property is the contract shared by every descriptor kind. Descriptors are
// schema-level: one instance per declaring type and name, used for all nodes
// of that type and its subtypes.
type Property interface {
	Name() string
	// Owner is the declaring type.
	Owner() *Type
	Lower() int
	// Upper is the upper bound, or types.Unbounded.
	Upper() int
	String() string

	Get(n *Node) (any, error)
	Set(n *Node, v any) error
	// Delete removes v from a multi-valued property, or resets a scalar one
	// when v is nil.
	Delete(n *Node, v any) error

	// Load stores a raw persisted value without emitting events.
	Load(n *Node, raw any) error
	// Save hands the stored value, if any, to fn.
	Save(n *Node, fn SaveFunc) error
	// PostLoad validates the value after a bulk load.
	PostLoad(n *Node) error
	// Unlink releases the node's value when the node is unlinked.
	Unlink(n *Node)

	desc() *descriptor
}

// nodeHolder is implemented by properties whose values are nodes.
type nodeHolder interface {
	Property
	Nodes(n *Node) []*Node
}

// adder is implemented by properties that accept Add.
type adder interface {
	Add(n, v *Node) error
}

// descriptor holds the identity every property shares.
type descriptor struct {
	id     int
	name   string
	owner  *Type
	schema *Schema
}

func (d *descriptor) desc() *descriptor { return d }

// owns rejects nodes whose type does not carry the descriptor.
func (d *descriptor) owns(n *Node) error {
	if !n.typ.IsA(d.owner) {
		return fmt.Errorf("%w: %s is not a %s", types.ErrTypeMismatch, n, typeName(d.owner))
	}
	return nil
}

// Name returns the feature name.
func (d *descriptor) Name() string { return d.name }

// Owner returns the declaring type.
func (d *descriptor) Owner() *Type { return d.owner }

func (d *descriptor) qualifiedName() string {
	return typeName(d.owner) + "." + d.name
}

// nodesOf returns the nodes p holds for n.
func nodesOf(p Property, n *Node) []*Node {
	if h, ok := p.(nodeHolder); ok {
		return h.Nodes(n)
	}
	return nil
}

func equalValues(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}
