package model

import "fmt"

// Kind identifies the shape of a change notification.
type Kind int

const (
	AttributeChanged Kind = iota + 1
	AssociationSet
	AssociationAdded
	AssociationDeleted
	DerivedUnionSet
	DerivedUnionAdded
	DerivedUnionDeleted
	RedefineSet
	RedefineAdded
	RedefineDeleted
	NodeCreated
	NodeUnlinked
)

func (k Kind) String() string {
	switch k {
	case AttributeChanged:
		return "attribute_changed"
	case AssociationSet:
		return "association_set"
	case AssociationAdded:
		return "association_added"
	case AssociationDeleted:
		return "association_deleted"
	case DerivedUnionSet:
		return "derived_union_set"
	case DerivedUnionAdded:
		return "derived_union_added"
	case DerivedUnionDeleted:
		return "derived_union_deleted"
	case RedefineSet:
		return "redefine_set"
	case RedefineAdded:
		return "redefine_added"
	case RedefineDeleted:
		return "redefine_deleted"
	case NodeCreated:
		return "node_created"
	case NodeUnlinked:
		return "node_unlinked"
	default:
		return "unknown"
	}
}

// IsSet reports whether k replaces a single value (Old and New).
func (k Kind) IsSet() bool {
	return k == AssociationSet || k == DerivedUnionSet || k == RedefineSet
}

// IsAdd reports whether k adds a member to a collection (New).
func (k Kind) IsAdd() bool {
	return k == AssociationAdded || k == DerivedUnionAdded || k == RedefineAdded
}

// IsDelete reports whether k removes a member from a collection (Old).
func (k Kind) IsDelete() bool {
	return k == AssociationDeleted || k == DerivedUnionDeleted || k == RedefineDeleted
}

// Event is a change notification. Property is nil for node lifecycle kinds.
// For association-like kinds Old and New hold *Node values or nil.
type Event struct {
	Kind     Kind
	Node     *Node
	Property Property
	Old      any
	New      any
}

func (e Event) String() string {
	if e.Property == nil {
		return fmt.Sprintf("%s %s", e.Kind, e.Node)
	}
	return fmt.Sprintf("%s %s.%s: %v -> %v", e.Kind, e.Node, e.Property.Name(), e.Old, e.New)
}

// Handler receives events synchronously, inside the mutating call.
type Handler func(Event)

// nodeValue boxes n for an event, keeping a nil node an untyped nil.
func nodeValue(n *Node) any {
	if n == nil {
		return nil
	}
	return n
}

// asNode unboxes an event value.
func asNode(v any) *Node {
	n, _ := v.(*Node)
	return n
}
