package model

import (
	"fmt"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Association is a typed link from nodes of the owner type to nodes of the
// participant type. With an opposite it is bidirectional: both ends are kept
// in step on every change. Without one, a Stub on the participant type
// tracks referrers so that unlinking a value removes it from them.
//
// An end whose participant has several subtypes declaring the inverse
// pairs with each of them; the end that keeps a value in step is chosen by
// the value's type.
type Association struct {
	descriptor
	participant  *Type
	lower        int
	upper        int
	composite    bool
	oppositeName string
	opposites    []*Association
	stub         *Stub
}

// Participant returns the type of the linked nodes.
func (a *Association) Participant() *Type { return a.participant }

// Composite reports whether the association owns its values.
func (a *Association) Composite() bool { return a.composite }

// Opposite returns the other end of a bidirectional association, or nil
// when there is none or more than one.
func (a *Association) Opposite() *Association {
	if len(a.opposites) == 1 {
		return a.opposites[0]
	}
	return nil
}

// Opposites returns every end paired with this one.
func (a *Association) Opposites() []*Association {
	return append([]*Association(nil), a.opposites...)
}

func (a *Association) bidirectional() bool { return len(a.opposites) > 0 }

// oppositeFor returns the end that holds the reverse reference of v, or nil
// when no paired end applies to v's type.
func (a *Association) oppositeFor(v *Node) *Association {
	if len(a.opposites) == 1 {
		if v.typ.IsA(a.opposites[0].owner) {
			return a.opposites[0]
		}
		return nil
	}
	if a.oppositeName != "" {
		if p, ok := a.schema.Property(v.typ, a.oppositeName); ok {
			if b := asAssociation(p); b != nil && a.pairedWith(b) {
				return b
			}
		}
	}
	for _, b := range a.opposites {
		if v.typ.IsA(b.owner) {
			return b
		}
	}
	return nil
}

func (a *Association) pairedWith(b *Association) bool {
	for _, o := range a.opposites {
		if o == b {
			return true
		}
	}
	return false
}

func (a *Association) Lower() int { return a.lower }
func (a *Association) Upper() int { return a.upper }

func (a *Association) String() string {
	var s string
	if a.lower == a.upper {
		s = fmt.Sprintf("<association %s: %s[%d]", a.name, typeName(a.participant), a.lower)
	} else {
		s = fmt.Sprintf("<association %s: %s[%d..%s]", a.name, typeName(a.participant), a.lower, types.FormatBound(a.upper))
	}
	if a.oppositeName != "" {
		if a.composite {
			s += " <>-> " + a.oppositeName
		} else {
			s += " -> " + a.oppositeName
		}
	}
	return s + ">"
}

func (a *Association) many() bool { return a.upper != 1 }

// Value returns the linked node of a scalar association, or nil.
func (a *Association) Value(n *Node) *Node {
	v, _ := n.slot(a)
	node, _ := v.(*Node)
	return node
}

// Collection returns the collection of a multi-valued association, creating
// its storage on first use.
func (a *Association) Collection(n *Node) *Collection {
	if c, ok := n.slot(a); ok {
		return c.(*Collection)
	}
	c := newCollection()
	n.store(a, c)
	return c
}

// Nodes returns the linked nodes without creating storage.
func (a *Association) Nodes(n *Node) []*Node {
	if !a.many() {
		if v := a.Value(n); v != nil {
			return []*Node{v}
		}
		return nil
	}
	c, _ := n.slot(a)
	coll, _ := c.(*Collection)
	return coll.Items()
}

// Get returns the linked node (scalar) or the collection (multi-valued).
func (a *Association) Get(n *Node) (any, error) {
	if a.many() {
		return a.Collection(n), nil
	}
	return nodeValue(a.Value(n)), nil
}

// Set links v. On a scalar association it replaces the current value, and
// nil clears it; on a multi-valued association it adds v.
func (a *Association) Set(n *Node, v any) error {
	node, ok := v.(*Node)
	if !ok && v != nil {
		return fmt.Errorf("%w: %s: %T is not a node", types.ErrTypeMismatch, a.qualifiedName(), v)
	}
	return a.set(n, node, false, true)
}

// Add links v. Adding a member twice does nothing.
func (a *Association) Add(n, v *Node) error {
	if v == nil {
		return fmt.Errorf("%w: %s: cannot add nil", types.ErrTypeMismatch, a.qualifiedName())
	}
	return a.set(n, v, false, true)
}

// Delete unlinks v. A multi-valued association requires v.
func (a *Association) Delete(n *Node, v any) error {
	node, ok := v.(*Node)
	if !ok && v != nil {
		return fmt.Errorf("%w: %s: %T is not a node", types.ErrTypeMismatch, a.qualifiedName(), v)
	}
	return a.del(n, node, false, true)
}

// Load links v without emitting events. The opposite end is still kept in
// step.
func (a *Association) Load(n *Node, raw any) error {
	v, ok := raw.(*Node)
	if !ok || v == nil {
		return fmt.Errorf("%w: %s: %T is not a node", types.ErrTypeMismatch, a.qualifiedName(), raw)
	}
	return a.set(n, v, false, false)
}

// Save hands the linked node, or a copy of the collection members, to fn.
func (a *Association) Save(n *Node, fn SaveFunc) error {
	if !a.many() {
		if v := a.Value(n); v != nil {
			return fn(a.name, v)
		}
		return nil
	}
	items := a.Nodes(n)
	if len(items) == 0 {
		return nil
	}
	return fn(a.name, items)
}

// PostLoad checks that every loaded value has the participant type and that
// bidirectional ends agree.
func (a *Association) PostLoad(n *Node) error {
	for _, v := range a.Nodes(n) {
		if !v.typ.IsA(a.participant) {
			return fmt.Errorf("%w: postload %s: %s is not a %s", types.ErrTypeMismatch, a.qualifiedName(), v, typeName(a.participant))
		}
		if !a.bidirectional() {
			continue
		}
		opp := a.oppositeFor(v)
		if opp == nil {
			return fmt.Errorf("%w: postload %s: %s has no opposite end", types.ErrOppositeMismatch, a.qualifiedName(), v)
		}
		back := false
		for _, w := range opp.Nodes(v) {
			if w == n {
				back = true
				break
			}
		}
		if !back {
			return fmt.Errorf("%w: postload %s: %s does not refer back to %s", types.ErrOppositeMismatch, a.qualifiedName(), v, n)
		}
	}
	return nil
}

// Unlink removes every value, unlinking each one too when the association
// is composite.
func (a *Association) Unlink(n *Node) {
	for _, v := range a.Nodes(n) {
		_ = a.del(n, v, false, true)
		if a.composite {
			v.Unlink()
		}
	}
}

// check validates linking v to n on this end without changing anything.
func (a *Association) check(n, v *Node) error {
	if n.unlinked {
		return fmt.Errorf("%w: %s", types.ErrNodeUnlinked, n)
	}
	if !n.typ.IsA(a.owner) {
		return fmt.Errorf("%w: %s is not a %s", types.ErrTypeMismatch, n, typeName(a.owner))
	}
	if v == nil {
		if a.many() {
			return fmt.Errorf("%w: %s: nil value for multi-valued association", types.ErrTypeMismatch, a.qualifiedName())
		}
		return nil
	}
	if v.unlinked {
		return fmt.Errorf("%w: %s", types.ErrNodeUnlinked, v)
	}
	if !v.typ.IsA(a.participant) {
		return fmt.Errorf("%w: %s expects %s, got %s", types.ErrTypeMismatch, a.qualifiedName(), typeName(a.participant), v.typ.name)
	}
	if a.bidirectional() && a.oppositeFor(v) == nil {
		return fmt.Errorf("%w: %s: no opposite end applies to %s", types.ErrTypeMismatch, a.qualifiedName(), v.typ.name)
	}
	if a.many() && a.upper != types.Unbounded {
		c, _ := n.slot(a)
		coll, _ := c.(*Collection)
		if !coll.Contains(v) && coll.Len() >= a.upper {
			return fmt.Errorf("%w: %s holds at most %d values", types.ErrMultiplicityViolation, a.qualifiedName(), a.upper)
		}
	}
	return nil
}

// set links v to n. fromOpposite is true when the call comes from the
// opposite end synchronizing itself; it stops the opposite from being
// updated again. notify is false during bulk loads.
func (a *Association) set(n, v *Node, fromOpposite, notify bool) error {
	if err := a.check(n, v); err != nil {
		return err
	}
	var opp *Association
	if v != nil {
		opp = a.oppositeFor(v)
	}
	if !fromOpposite && opp != nil {
		if err := opp.check(v, n); err != nil {
			return err
		}
	}

	var ev Event
	if !a.many() {
		old := a.Value(n)
		if old == v {
			return nil
		}
		if old != nil {
			n.clear(a)
			a.detach(n, old, notify)
		}
		ev = Event{Kind: AssociationSet, Node: n, Property: a, Old: nodeValue(old), New: nodeValue(v)}
		if v == nil {
			if notify {
				n.emit(ev)
			}
			return nil
		}
		n.store(a, v)
	} else {
		if !a.Collection(n).append(v) {
			return nil
		}
		ev = Event{Kind: AssociationAdded, Node: n, Property: a, New: v}
	}

	switch {
	case opp != nil && !fromOpposite:
		if err := opp.set(v, n, true, notify); err != nil {
			panic(fmt.Sprintf("model: %s: opposite rejected a checked value: %v", a.qualifiedName(), err))
		}
	case !a.bidirectional():
		a.ensureStub().add(v, n)
	}

	if notify {
		n.emit(ev)
	}
	return nil
}

// detach removes n from the opposite end (or stub) of a value that n no
// longer links to. The value is another node, so this never recurses into n.
func (a *Association) detach(n, old *Node, notify bool) {
	switch {
	case a.bidirectional():
		if opp := a.oppositeFor(old); opp != nil {
			_ = opp.del(old, n, true, notify)
		}
	case a.stub != nil:
		a.stub.remove(old, n)
	}
}

// del unlinks v from n. A nil v clears a scalar association.
func (a *Association) del(n, v *Node, fromOpposite, notify bool) error {
	if v == nil {
		if a.many() {
			return fmt.Errorf("%w: %s: deleting from a multi-valued association requires a value", types.ErrMultiplicityViolation, a.qualifiedName())
		}
		if v = a.Value(n); v == nil {
			return nil
		}
	}

	var ev Event
	if a.many() {
		c, _ := n.slot(a)
		coll, _ := c.(*Collection)
		if !coll.Contains(v) {
			return nil
		}
		a.sync(n, v, fromOpposite, notify)
		coll.remove(v)
		if coll.Len() == 0 {
			n.clear(a)
		}
		ev = Event{Kind: AssociationDeleted, Node: n, Property: a, Old: v}
	} else {
		if a.Value(n) != v {
			return nil
		}
		a.sync(n, v, fromOpposite, notify)
		n.clear(a)
		ev = Event{Kind: AssociationSet, Node: n, Property: a, Old: v}
	}
	if notify {
		n.emit(ev)
	}
	return nil
}

// sync removes the reverse reference of v -> n before n drops v.
func (a *Association) sync(n, v *Node, fromOpposite, notify bool) {
	switch {
	case a.bidirectional():
		if opp := a.oppositeFor(v); opp != nil && !fromOpposite {
			_ = opp.del(v, n, true, notify)
		}
	case a.stub != nil:
		a.stub.remove(v, n)
	}
}

func (a *Association) ensureStub() *Stub {
	if a.stub == nil {
		a.stub = &Stub{association: a}
		a.schema.attachStub(a.stub)
	}
	return a.stub
}
