package model

import (
	"iter"
	"slices"
)

// Collection is the ordered, duplicate-free sequence behind a multi-valued
// association. It is owned by one (association, node) pair and changes only
// through that association.
type Collection struct {
	items []*Node
	index map[*Node]struct{}
}

func newCollection() *Collection {
	return &Collection{index: make(map[*Node]struct{})}
}

// Len returns the number of members. A nil collection is empty.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Contains reports whether n is a member.
func (c *Collection) Contains(n *Node) bool {
	if c == nil {
		return false
	}
	_, ok := c.index[n]
	return ok
}

// At returns the member at position i.
func (c *Collection) At(i int) *Node { return c.items[i] }

// Items returns a copy of the members in insertion order.
func (c *Collection) Items() []*Node {
	if c == nil {
		return nil
	}
	return slices.Clone(c.items)
}

// All iterates the members in insertion order.
func (c *Collection) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if c == nil {
			return
		}
		for _, n := range c.items {
			if !yield(n) {
				return
			}
		}
	}
}

// append adds n unless it is already present.
func (c *Collection) append(n *Node) bool {
	if c.Contains(n) {
		return false
	}
	c.items = append(c.items, n)
	c.index[n] = struct{}{}
	return true
}

// remove deletes n. It reports whether n was present.
func (c *Collection) remove(n *Node) bool {
	if !c.Contains(n) {
		return false
	}
	delete(c.index, n)
	c.items = slices.DeleteFunc(c.items, func(x *Node) bool { return x == n })
	return true
}
