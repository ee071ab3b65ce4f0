package model

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// DerivedUnion is a read-only property whose value is the union of its
// subset properties. It re-emits subset changes as DerivedUnion events.
type DerivedUnion struct {
	descriptor
	lower   int
	upper   int
	subsets []Property
}

// Subsets returns the properties the union is computed from.
func (u *DerivedUnion) Subsets() []Property {
	return append([]Property(nil), u.subsets...)
}

func (u *DerivedUnion) Lower() int { return u.lower }
func (u *DerivedUnion) Upper() int { return u.upper }

func (u *DerivedUnion) String() string {
	names := make([]string, 0, len(u.subsets))
	for _, s := range u.subsets {
		if s != nil {
			names = append(names, s.Name())
		}
	}
	return fmt.Sprintf("<derivedunion %s: %s>", u.name, strings.Join(names, ", "))
}

func (u *DerivedUnion) many() bool { return u.upper != 1 }

// Nodes returns the union of the subset values, in subset order, each node
// once.
func (u *DerivedUnion) Nodes(n *Node) []*Node {
	return u.union(n, nil)
}

// Value returns the single value of a [0..1] union. More than one live value
// means the schema or the model is inconsistent, and Value panics.
func (u *DerivedUnion) Value(n *Node) *Node {
	nodes := u.union(n, nil)
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	default:
		panic(fmt.Sprintf("model: derived union %s of %s has %d values", u.qualifiedName(), n, len(nodes)))
	}
}

// Get returns []*Node for a multi-valued union and *Node (or nil) otherwise.
func (u *DerivedUnion) Get(n *Node) (any, error) {
	if u.many() {
		return u.Nodes(n), nil
	}
	return nodeValue(u.Value(n)), nil
}

func (u *DerivedUnion) Set(n *Node, v any) error {
	return fmt.Errorf("%w: set %s", types.ErrUnionMutation, u.qualifiedName())
}

func (u *DerivedUnion) Delete(n *Node, v any) error {
	return fmt.Errorf("%w: delete %s", types.ErrUnionMutation, u.qualifiedName())
}

// Load always fails: a derived union is never persisted.
func (u *DerivedUnion) Load(n *Node, raw any) error {
	return fmt.Errorf("%w: load %s", types.ErrUnionMutation, u.qualifiedName())
}

func (u *DerivedUnion) Save(n *Node, fn SaveFunc) error { return nil }
func (u *DerivedUnion) PostLoad(n *Node) error          { return nil }
func (u *DerivedUnion) Unlink(n *Node)                  {}

// union collects the values of every subset except exclude.
func (u *DerivedUnion) union(n *Node, exclude Property) []*Node {
	var out []*Node
	seen := make(map[*Node]bool)
	for _, s := range u.subsets {
		if s == exclude {
			continue
		}
		for _, v := range nodesOf(s, n) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func (u *DerivedUnion) reachable(n, v *Node, exclude Property) bool {
	for _, x := range u.union(n, exclude) {
		if x == v {
			return true
		}
	}
	return false
}

// subsetChanged translates an event on one of the subsets into union
// events. A value is only reported as added or deleted when no other subset
// still provides it.
func (u *DerivedUnion) subsetChanged(e Event) {
	n := e.Node
	if !n.typ.IsA(u.owner) {
		return
	}
	if u.many() {
		switch {
		case e.Kind.IsSet():
			if old := asNode(e.Old); old != nil && !u.reachable(n, old, e.Property) {
				n.emit(Event{Kind: DerivedUnionDeleted, Node: n, Property: u, Old: old})
			}
			if nv := asNode(e.New); nv != nil && !u.reachable(n, nv, e.Property) {
				n.emit(Event{Kind: DerivedUnionAdded, Node: n, Property: u, New: nv})
			}
		case e.Kind.IsAdd():
			if nv := asNode(e.New); !u.reachable(n, nv, e.Property) {
				n.emit(Event{Kind: DerivedUnionAdded, Node: n, Property: u, New: nv})
			}
		case e.Kind.IsDelete():
			if old := asNode(e.Old); !u.reachable(n, old, e.Property) {
				n.emit(Event{Kind: DerivedUnionDeleted, Node: n, Property: u, Old: old})
			}
		default:
			u.schema.logger.Error("derived union cannot translate event",
				slog.String("union", u.qualifiedName()),
				slog.String("event", e.Kind.String()))
		}
		return
	}

	if !e.Kind.IsSet() {
		u.schema.logger.Error("derived union cannot translate event",
			slog.String("union", u.qualifiedName()),
			slog.String("event", e.Kind.String()))
		return
	}
	if len(u.subsets) == 1 {
		n.emit(Event{Kind: DerivedUnionSet, Node: n, Property: u, Old: e.Old, New: e.New})
		return
	}
	values := u.union(n, e.Property)
	candidates := len(values)
	nv := asNode(e.New)
	if nv != nil && !u.reachable(n, nv, e.Property) {
		candidates++
	}
	if candidates > 1 {
		// Another subset still holds a value; wait until the update converges.
		return
	}
	if len(values) == 1 {
		nv = values[0]
	}
	n.emit(Event{Kind: DerivedUnionSet, Node: n, Property: u, Old: e.Old, New: nodeValue(nv)})
}
