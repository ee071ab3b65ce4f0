package model

// Type is a node type. Types form a hierarchy through their supertypes;
// multiple supertypes are allowed.
type Type struct {
	name   string
	supers []*Type
	schema *Schema
	props  map[string]Property
	order  []Property
	stubs  []*Stub
}

// Name returns the type name.
func (t *Type) Name() string { return t.name }

// Supers returns the direct supertypes of t.
func (t *Type) Supers() []*Type {
	out := make([]*Type, len(t.supers))
	copy(out, t.supers)
	return out
}

// IsA reports whether t is other or a subtype of other.
func (t *Type) IsA(other *Type) bool {
	if t == nil || other == nil {
		return false
	}
	if t == other {
		return true
	}
	for _, s := range t.supers {
		if s.IsA(other) {
			return true
		}
	}
	return false
}

func (t *Type) String() string { return t.name }

// lineage returns t followed by its supertypes, depth first, each type once.
func (t *Type) lineage() []*Type {
	var out []*Type
	seen := make(map[*Type]bool)
	var walk func(*Type)
	walk = func(x *Type) {
		if seen[x] {
			return
		}
		seen[x] = true
		out = append(out, x)
		for _, s := range x.supers {
			walk(s)
		}
	}
	walk(t)
	return out
}
