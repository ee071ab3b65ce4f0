package model

import (
	"fmt"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Stub tracks the referrers of a one-way association on its participant
// type. It is hidden: it never appears in Schema.Property lookups, only in
// Schema.Properties, so that unlinking a referenced node removes it from
// every association that still points at it.
type Stub struct {
	descriptor
	association *Association
}

// Association returns the one-way association the stub serves.
func (s *Stub) Association() *Association { return s.association }

func (s *Stub) Lower() int { return 0 }
func (s *Stub) Upper() int { return types.Unbounded }

func (s *Stub) String() string {
	return fmt.Sprintf("<stub %s>", s.association.qualifiedName())
}

func (s *Stub) Get(n *Node) (any, error) {
	return nil, fmt.Errorf("%w: get %s", types.ErrStubProtocol, s.name)
}

func (s *Stub) Set(n *Node, v any) error {
	return fmt.Errorf("%w: set %s", types.ErrStubProtocol, s.name)
}

func (s *Stub) Delete(n *Node, v any) error {
	return fmt.Errorf("%w: delete %s", types.ErrStubProtocol, s.name)
}

func (s *Stub) Load(n *Node, raw any) error {
	return fmt.Errorf("%w: load %s", types.ErrStubProtocol, s.name)
}

// Save does nothing: the association on the referrer owns persistence.
func (s *Stub) Save(n *Node, fn SaveFunc) error { return nil }

func (s *Stub) PostLoad(n *Node) error { return nil }

// Unlink deletes n from the association of every referrer.
func (s *Stub) Unlink(n *Node) {
	for _, r := range s.referrers(n) {
		_ = s.association.del(r, n, false, true)
	}
}

func (s *Stub) referrers(n *Node) []*Node {
	c, _ := n.slot(s)
	coll, _ := c.(*Collection)
	return coll.Items()
}

// add records that r refers to v.
func (s *Stub) add(v, r *Node) {
	c, ok := v.slot(s)
	if !ok {
		c = newCollection()
		v.store(s, c)
	}
	c.(*Collection).append(r)
}

// remove forgets that r refers to v.
func (s *Stub) remove(v, r *Node) {
	c, ok := v.slot(s)
	if !ok {
		return
	}
	coll := c.(*Collection)
	coll.remove(r)
	if coll.Len() == 0 {
		v.clear(s)
	}
}
