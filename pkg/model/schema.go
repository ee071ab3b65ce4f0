package model

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Schema is the registry of node types and property descriptors. It is
// built once, sealed, and shared by every Model created from it.
//
// Declaration methods never fail immediately: errors are accumulated and
// returned together by Seal, so generated schema code can be a flat list of
// declarations.
type Schema struct {
	types     map[string]*Type
	typeOrder []*Type
	props     []Property
	listeners map[Property][]Handler
	errs      []error
	sealed    bool
	logger    *slog.Logger
}

// SchemaOption configures a Schema.
type SchemaOption func(*Schema)

// WithLogger sets the logger used for schema warnings and dispatch errors.
func WithLogger(logger *slog.Logger) SchemaOption {
	return func(s *Schema) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSchema returns an empty, unsealed schema.
func NewSchema(opts ...SchemaOption) *Schema {
	s := &Schema{
		types:     make(map[string]*Type),
		listeners: make(map[Property][]Handler),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefineType registers a node type. Redefining an existing name records
// ErrDuplicateName and returns the existing type.
func (s *Schema) DefineType(name string, supers ...*Type) *Type {
	if existing, ok := s.types[name]; ok {
		s.fail(fmt.Errorf("%w: type %s", types.ErrDuplicateName, name))
		return existing
	}
	t := &Type{
		name:   name,
		schema: s,
		props:  make(map[string]Property),
	}
	for _, sup := range supers {
		if sup == nil || sup.schema != s {
			s.fail(fmt.Errorf("%w: supertype of %s", types.ErrUnknownType, name))
			continue
		}
		t.supers = append(t.supers, sup)
	}
	switch {
	case s.sealed:
		s.fail(fmt.Errorf("%w: cannot define type %s", types.ErrSchemaSealed, name))
		return t
	case name == "":
		s.fail(fmt.Errorf("%w: type name is empty", types.ErrInvalidName))
		return t
	}
	s.types[name] = t
	s.typeOrder = append(s.typeOrder, t)
	return t
}

// Type returns the registered type with the given name.
func (s *Schema) Type(name string) (*Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Types returns the registered types in definition order.
func (s *Schema) Types() []*Type {
	out := make([]*Type, len(s.typeOrder))
	copy(out, s.typeOrder)
	return out
}

// Sealed reports whether Seal succeeded.
func (s *Schema) Sealed() bool { return s.sealed }

// Property finds the property visible under name on t. The type itself is
// searched before its supertypes, so a same-named redefinition on a subtype
// eclipses the original.
func (s *Schema) Property(t *Type, name string) (Property, bool) {
	if t == nil {
		return nil, false
	}
	for _, lt := range t.lineage() {
		if p, ok := lt.props[name]; ok {
			return p, true
		}
	}
	return nil, false
}

// Properties returns every property that applies to nodes of type t: the
// visible descriptors, each name once, followed per type by the stubs
// attached to it.
func (s *Schema) Properties(t *Type) []Property {
	var out []Property
	seen := make(map[string]bool)
	for _, lt := range t.lineage() {
		for _, p := range lt.order {
			if seen[p.Name()] {
				continue
			}
			seen[p.Name()] = true
			out = append(out, p)
		}
		for _, st := range lt.stubs {
			out = append(out, st)
		}
	}
	return out
}

// Seal resolves association opposites, validates derived unions and makes
// the schema immutable. It returns every declaration error recorded so far;
// the schema stays unsealed when there is any.
func (s *Schema) Seal() error {
	if s.sealed {
		return nil
	}
	var pending []*Association
	for _, p := range s.props {
		switch p := p.(type) {
		case *Association:
			if !s.resolveOpposite(p) {
				pending = append(pending, p)
			}
		case *DerivedUnion:
			s.checkUnion(p)
		}
	}
	for _, a := range pending {
		s.resolveInverse(a)
	}
	if len(s.errs) > 0 {
		return errors.Join(s.errs...)
	}
	s.sealed = true
	return nil
}

// Attribute declares a scalar attribute on owner.
func (s *Schema) Attribute(owner *Type, name string, vt types.ValueType, def any) *Attribute {
	a := &Attribute{valueType: vt}
	if !types.IsValidValueType(vt) {
		s.fail(fmt.Errorf("%w: %s.%s: %q", types.ErrInvalidValueType, typeName(owner), name, vt))
	} else if d, err := types.Normalize(vt, def); err != nil {
		s.fail(fmt.Errorf("default of %s.%s: %w", typeName(owner), name, err))
	} else {
		a.def = d
	}
	s.declare(owner, name, a)
	return a
}

// Enumeration declares an enumerated attribute on owner. An empty def
// selects the first value.
func (s *Schema) Enumeration(owner *Type, name string, values []string, def string) *Enumeration {
	e := &Enumeration{values: append([]string(nil), values...), def: def}
	if len(values) == 0 {
		s.fail(fmt.Errorf("%w: enumeration %s.%s has no values", types.ErrInvalidEnumerationValue, typeName(owner), name))
	} else if def == "" {
		e.def = values[0]
	} else if !e.member(def) {
		s.fail(fmt.Errorf("%w: default %q of %s.%s", types.ErrInvalidEnumerationValue, def, typeName(owner), name))
	}
	s.declare(owner, name, e)
	return e
}

// AssociationOption configures an Association declaration.
type AssociationOption func(*Association)

// Composite marks the association as owning its values: unlinking the
// subject unlinks them too.
func Composite() AssociationOption {
	return func(a *Association) { a.composite = true }
}

// Opposite names the property on the participant type that forms the other
// end of a bidirectional association.
func Opposite(name string) AssociationOption {
	return func(a *Association) { a.oppositeName = name }
}

// Association declares a link from owner to participant.
func (s *Schema) Association(owner *Type, name string, participant *Type, lower, upper int, opts ...AssociationOption) *Association {
	a := &Association{participant: participant, lower: lower, upper: upper}
	for _, opt := range opts {
		opt(a)
	}
	if participant == nil || participant.schema != s {
		s.fail(fmt.Errorf("%w: participant of %s.%s", types.ErrUnknownType, typeName(owner), name))
	}
	s.checkBounds(owner, name, lower, upper)
	s.declare(owner, name, a)
	return a
}

// DerivedUnion declares a read-only union of subsets on owner.
func (s *Schema) DerivedUnion(owner *Type, name string, lower, upper int, subsets ...Property) *DerivedUnion {
	u := &DerivedUnion{lower: lower, upper: upper, subsets: append([]Property(nil), subsets...)}
	s.checkBounds(owner, name, lower, upper)
	if s.declare(owner, name, u) {
		for _, sub := range u.subsets {
			if sub != nil {
				s.listen(sub, u.subsetChanged)
			}
		}
	}
	return u
}

// Redefine declares a narrowing override of original on owner.
func (s *Schema) Redefine(owner *Type, name string, participant *Type, original Property) *Redefine {
	r := &Redefine{participant: participant, original: original}
	if participant == nil || participant.schema != s {
		s.fail(fmt.Errorf("%w: participant of redefine %s.%s", types.ErrUnknownType, typeName(owner), name))
	}
	if _, ok := original.(nodeHolder); !ok {
		s.fail(fmt.Errorf("%w: redefine %s.%s must redefine an association", types.ErrTypeMismatch, typeName(owner), name))
		return r
	}
	if s.declare(owner, name, r) {
		s.listen(original, r.originalChanged)
	}
	return r
}

// declare validates and registers p under name on owner, assigning it the
// next property identifier.
func (s *Schema) declare(owner *Type, name string, p Property) bool {
	switch {
	case s.sealed:
		s.fail(fmt.Errorf("%w: cannot declare %s.%s", types.ErrSchemaSealed, typeName(owner), name))
		return false
	case owner == nil || owner.schema != s:
		s.fail(fmt.Errorf("%w: owner of %s", types.ErrUnknownType, name))
		return false
	case name == "":
		s.fail(fmt.Errorf("%w: property name on %s is empty", types.ErrInvalidName, owner.name))
		return false
	}
	if _, dup := owner.props[name]; dup {
		s.fail(fmt.Errorf("%w: %s.%s", types.ErrDuplicateName, owner.name, name))
		return false
	}
	b := p.desc()
	b.id = len(s.props)
	b.name = name
	b.owner = owner
	b.schema = s
	s.props = append(s.props, p)
	owner.props[name] = p
	owner.order = append(owner.order, p)
	return true
}

// attachStub registers a stub for a one-way association on its participant
// type. Stubs are the only descriptors added after sealing.
func (s *Schema) attachStub(st *Stub) {
	b := st.desc()
	b.id = len(s.props)
	b.name = "stub:" + st.association.owner.name + "." + st.association.name
	b.owner = st.association.participant
	b.schema = s
	s.props = append(s.props, st)
	b.owner.stubs = append(b.owner.stubs, st)
}

// listen registers h for events on p.
func (s *Schema) listen(p Property, h Handler) {
	s.listeners[p] = append(s.listeners[p], h)
}

func (s *Schema) checkBounds(owner *Type, name string, lower, upper int) {
	if lower < 0 || upper == 0 || upper < types.Unbounded || (upper != types.Unbounded && lower > upper) {
		s.fail(fmt.Errorf("%w: %s.%s [%d..%s]", types.ErrInvalidBounds, typeName(owner), name, lower, types.FormatBound(upper)))
	}
}

// resolveOpposite pairs a with the end its opposite name resolves to on the
// participant type. It reports false when no property of that name is
// visible there, leaving a to resolveInverse.
func (s *Schema) resolveOpposite(a *Association) bool {
	if a.oppositeName == "" {
		return true
	}
	p, ok := s.Property(a.participant, a.oppositeName)
	if !ok {
		return false
	}
	q := asAssociation(p)
	if q == nil {
		s.fail(fmt.Errorf("%w: %s names %s.%s", types.ErrUnresolvedOpposite, a, typeName(a.participant), a.oppositeName))
		return true
	}
	if q.oppositeName == "" {
		s.logger.Warn("association end has no declared opposite; linking implicitly",
			slog.String("association", a.qualifiedName()),
			slog.String("opposite", q.qualifiedName()))
	} else if !s.refersBack(q, a) {
		s.fail(fmt.Errorf("%w: %s and %s", types.ErrOppositeMismatch, a, q))
		return true
	}
	pair(a, q)
	return true
}

// resolveInverse handles an end whose opposite is declared only on
// subtypes of its participant. Ends that named it explicitly were paired by
// resolveOpposite; subtype ends declaring no opposite are linked here.
func (s *Schema) resolveInverse(q *Association) {
	if q.bidirectional() {
		return
	}
	for _, t := range s.typeOrder {
		if !t.IsA(q.participant) {
			continue
		}
		b, ok := t.props[q.oppositeName].(*Association)
		if !ok || b.oppositeName != "" || !q.owner.IsA(b.participant) {
			continue
		}
		s.logger.Warn("association end has no declared opposite; linking implicitly",
			slog.String("association", q.qualifiedName()),
			slog.String("opposite", b.qualifiedName()))
		pair(q, b)
	}
	if !q.bidirectional() {
		s.fail(fmt.Errorf("%w: %s names %s.%s", types.ErrUnresolvedOpposite, q, typeName(q.participant), q.oppositeName))
	}
}

// refersBack reports whether q's opposite name, looked up on a's owner,
// resolves to a.
func (s *Schema) refersBack(q, a *Association) bool {
	if !a.owner.IsA(q.participant) {
		return false
	}
	p, ok := s.Property(a.owner, q.oppositeName)
	return ok && asAssociation(p) == a
}

func pair(a, b *Association) {
	if !a.pairedWith(b) {
		a.opposites = append(a.opposites, b)
	}
	if !b.pairedWith(a) {
		b.opposites = append(b.opposites, a)
	}
}

func (s *Schema) checkUnion(u *DerivedUnion) {
	if len(u.subsets) == 0 {
		s.fail(fmt.Errorf("%w: derived union %s has no subsets", types.ErrInvalidSchema, u.qualifiedName()))
		return
	}
	for _, sub := range u.subsets {
		if _, ok := sub.(nodeHolder); !ok {
			s.fail(fmt.Errorf("%w: subset %v of %s does not hold nodes", types.ErrTypeMismatch, sub, u.qualifiedName()))
			continue
		}
		if u.upper == 1 && sub.Upper() != 1 {
			s.fail(fmt.Errorf("%w: [0..1] derived union %s has multi-valued subset %s", types.ErrMultiplicityViolation, u.qualifiedName(), sub.Name()))
		}
	}
}

func (s *Schema) fail(err error) {
	s.errs = append(s.errs, err)
}

func typeName(t *Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.name
}

// asAssociation returns the association behind p, looking through
// redefinitions.
func asAssociation(p Property) *Association {
	switch p := p.(type) {
	case *Association:
		return p
	case *Redefine:
		return asAssociation(p.original)
	default:
		return nil
	}
}
