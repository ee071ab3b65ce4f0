package model

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Attribute is a scalar property holding a value of a declared value type.
// A node holding the default value has no slot for it.
type Attribute struct {
	descriptor
	valueType types.ValueType
	def       any
}

// ValueType returns the declared value type.
func (a *Attribute) ValueType() types.ValueType { return a.valueType }

// Default returns the default value.
func (a *Attribute) Default() any { return a.def }

func (a *Attribute) Lower() int { return 0 }
func (a *Attribute) Upper() int { return 1 }

func (a *Attribute) String() string {
	return fmt.Sprintf("<attribute %s: %s[0..1] = %v>", a.name, a.valueType, a.def)
}

// Value returns the stored value or the default.
func (a *Attribute) Value(n *Node) any {
	if v, ok := n.slot(a); ok {
		return v
	}
	return a.def
}

func (a *Attribute) Get(n *Node) (any, error) {
	return a.Value(n), nil
}

// Set stores v and emits AttributeChanged. A nil v resets to the default.
// Setting the current value does nothing.
func (a *Attribute) Set(n *Node, v any) error {
	if err := a.owns(n); err != nil {
		return err
	}
	if v == nil {
		v = a.def
	} else {
		nv, err := types.Normalize(a.valueType, v)
		if err != nil {
			return fmt.Errorf("%s: %w", a.qualifiedName(), err)
		}
		v = nv
	}
	old := a.Value(n)
	if equalValues(v, old) {
		return nil
	}
	if equalValues(v, a.def) {
		n.clear(a)
	} else {
		n.store(a, v)
	}
	n.emit(Event{Kind: AttributeChanged, Node: n, Property: a, Old: old, New: v})
	return nil
}

// Delete resets the attribute to its default, emitting AttributeChanged if
// a value was stored.
func (a *Attribute) Delete(n *Node, _ any) error {
	if err := a.owns(n); err != nil {
		return err
	}
	old, ok := n.slot(a)
	if !ok {
		return nil
	}
	n.clear(a)
	n.emit(Event{Kind: AttributeChanged, Node: n, Property: a, Old: old, New: a.def})
	return nil
}

// Load coerces raw into the declared value type and stores it silently.
func (a *Attribute) Load(n *Node, raw any) error {
	if err := a.owns(n); err != nil {
		return err
	}
	v, err := coerce(a.valueType, raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrTypeMismatch, a.qualifiedName(), err)
	}
	if v == nil || equalValues(v, a.def) {
		n.clear(a)
		return nil
	}
	n.store(a, v)
	return nil
}

// Coerce converts raw, typically text from a command line or a file, into
// the declared value type without storing it.
func (a *Attribute) Coerce(raw any) (any, error) {
	v, err := coerce(a.valueType, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", types.ErrTypeMismatch, a.qualifiedName(), err)
	}
	return v, nil
}

func (a *Attribute) Save(n *Node, fn SaveFunc) error {
	if v, ok := n.slot(a); ok {
		return fn(a.name, v)
	}
	return nil
}

func (a *Attribute) PostLoad(*Node) error { return nil }

func (a *Attribute) Unlink(*Node) {}

// coerce converts a persisted raw value into the stored form of vt.
func coerce(vt types.ValueType, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch vt {
	case types.ValueTypeText:
		return cast.ToStringE(raw)
	case types.ValueTypeInteger:
		return cast.ToInt64E(raw)
	case types.ValueTypeReal:
		return cast.ToFloat64E(raw)
	case types.ValueTypeBoolean:
		return cast.ToBoolE(raw)
	case types.ValueTypeTimestamp:
		return cast.ToTimeE(raw)
	case types.ValueTypeAny:
		return raw, nil
	default:
		return nil, types.ErrInvalidValueType
	}
}
