package model

import (
	"fmt"
	"slices"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Enumeration is a scalar property whose value is one of a fixed, ordered
// set of tags.
type Enumeration struct {
	descriptor
	values []string
	def    string
}

// Values returns the allowed tags in declaration order.
func (e *Enumeration) Values() []string { return slices.Clone(e.values) }

// Default returns the default tag.
func (e *Enumeration) Default() string { return e.def }

func (e *Enumeration) Lower() int { return 0 }
func (e *Enumeration) Upper() int { return 1 }

func (e *Enumeration) String() string {
	return fmt.Sprintf("<enumeration %s: %v = %s>", e.name, e.values, e.def)
}

func (e *Enumeration) member(v string) bool {
	return slices.Contains(e.values, v)
}

// Value returns the stored tag or the default.
func (e *Enumeration) Value(n *Node) string {
	if v, ok := n.slot(e); ok {
		return v.(string)
	}
	return e.def
}

func (e *Enumeration) Get(n *Node) (any, error) {
	return e.Value(n), nil
}

// Set stores the tag v and emits AttributeChanged.
func (e *Enumeration) Set(n *Node, v any) error {
	if err := e.owns(n); err != nil {
		return err
	}
	tag, ok := v.(string)
	if !ok || !e.member(tag) {
		return fmt.Errorf("%w: %s: %v not in %v", types.ErrInvalidEnumerationValue, e.qualifiedName(), v, e.values)
	}
	old := e.Value(n)
	if tag == old {
		return nil
	}
	if tag == e.def {
		n.clear(e)
	} else {
		n.store(e, tag)
	}
	n.emit(Event{Kind: AttributeChanged, Node: n, Property: e, Old: old, New: tag})
	return nil
}

// Delete resets the enumeration to its default tag.
func (e *Enumeration) Delete(n *Node, _ any) error {
	if err := e.owns(n); err != nil {
		return err
	}
	old, ok := n.slot(e)
	if !ok {
		return nil
	}
	n.clear(e)
	n.emit(Event{Kind: AttributeChanged, Node: n, Property: e, Old: old, New: e.def})
	return nil
}

// Load stores a persisted tag silently.
func (e *Enumeration) Load(n *Node, raw any) error {
	if err := e.owns(n); err != nil {
		return err
	}
	tag, err := cast.ToStringE(raw)
	if err != nil || !e.member(tag) {
		return fmt.Errorf("%w: %s: %v not in %v", types.ErrInvalidEnumerationValue, e.qualifiedName(), raw, e.values)
	}
	if tag == e.def {
		n.clear(e)
		return nil
	}
	n.store(e, tag)
	return nil
}

func (e *Enumeration) Save(n *Node, fn SaveFunc) error {
	if v, ok := n.slot(e); ok {
		return fn(e.name, v)
	}
	return nil
}

func (e *Enumeration) PostLoad(*Node) error { return nil }

func (e *Enumeration) Unlink(*Node) {}
