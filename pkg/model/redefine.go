package model

import (
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Redefine narrows an inherited association for a subtype. It has no
// storage of its own: every read and write goes to the original, after the
// value is checked against the narrower participant type.
//
// A redefinition with the same name as the original eclipses it: lookups on
// the subtype find the redefinition, so it also takes over persistence and
// unlinking for those nodes.
type Redefine struct {
	descriptor
	participant *Type
	original    Property
}

// Original returns the redefined property.
func (r *Redefine) Original() Property { return r.original }

// Participant returns the narrowed participant type.
func (r *Redefine) Participant() *Type { return r.participant }

func (r *Redefine) Lower() int { return r.original.Lower() }
func (r *Redefine) Upper() int { return r.original.Upper() }

func (r *Redefine) String() string {
	return fmt.Sprintf("<redefine %s: %s = %s>", r.name, typeName(r.participant), r.original)
}

func (r *Redefine) eclipses() bool { return r.name == r.original.Name() }

func (r *Redefine) Get(n *Node) (any, error) { return r.original.Get(n) }

// Set checks v against the narrowed participant type, then sets it on the
// original.
func (r *Redefine) Set(n *Node, v any) error {
	if err := r.check(v); err != nil {
		return err
	}
	return r.original.Set(n, v)
}

// Add checks v against the narrowed participant type, then adds it to the
// original.
func (r *Redefine) Add(n, v *Node) error {
	if err := r.check(v); err != nil {
		return err
	}
	a, ok := r.original.(adder)
	if !ok {
		return fmt.Errorf("%w: %s does not accept add", types.ErrTypeMismatch, r.original)
	}
	return a.Add(n, v)
}

func (r *Redefine) Delete(n *Node, v any) error { return r.original.Delete(n, v) }

// Nodes returns the nodes held by the original.
func (r *Redefine) Nodes(n *Node) []*Node { return nodesOf(r.original, n) }

// Load checks raw against the narrowed participant type and, when the
// redefinition eclipses the original, loads it there.
func (r *Redefine) Load(n *Node, raw any) error {
	if err := r.check(raw); err != nil {
		return err
	}
	if !r.eclipses() {
		return nil
	}
	return r.original.Load(n, raw)
}

func (r *Redefine) Save(n *Node, fn SaveFunc) error {
	if !r.eclipses() {
		return nil
	}
	return r.original.Save(n, fn)
}

func (r *Redefine) PostLoad(n *Node) error {
	if !r.eclipses() {
		return nil
	}
	return r.original.PostLoad(n)
}

func (r *Redefine) Unlink(n *Node) {
	if r.eclipses() {
		r.original.Unlink(n)
	}
}

func (r *Redefine) check(v any) error {
	node, ok := v.(*Node)
	switch {
	case v == nil && r.original.Upper() == 1:
		return nil
	case !ok || node == nil:
		return fmt.Errorf("%w: %s: %T is not a node", types.ErrTypeMismatch, r.qualifiedName(), v)
	case !node.typ.IsA(r.participant):
		return fmt.Errorf("%w: %s expects %s, got %s", types.ErrTypeMismatch, r.qualifiedName(), typeName(r.participant), node.typ.name)
	}
	return nil
}

// originalChanged re-emits changes of the original for nodes of the
// declaring type.
func (r *Redefine) originalChanged(e Event) {
	if !e.Node.typ.IsA(r.owner) {
		return
	}
	switch {
	case e.Kind.IsSet():
		e.Node.emit(Event{Kind: RedefineSet, Node: e.Node, Property: r, Old: e.Old, New: e.New})
	case e.Kind.IsAdd():
		e.Node.emit(Event{Kind: RedefineAdded, Node: e.Node, Property: r, New: e.New})
	case e.Kind.IsDelete():
		e.Node.emit(Event{Kind: RedefineDeleted, Node: e.Node, Property: r, Old: e.Old})
	default:
		r.schema.logger.Error("redefine cannot translate event",
			slog.String("redefine", r.qualifiedName()),
			slog.String("event", e.Kind.String()))
	}
}
