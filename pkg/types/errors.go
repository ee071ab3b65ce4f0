package types

import "errors"

// Property operation errors. Every one of them is returned before the
// operation mutates any node.
var (
	ErrTypeMismatch            = errors.New("type mismatch")
	ErrInvalidEnumerationValue = errors.New("invalid enumeration value")
	ErrMultiplicityViolation   = errors.New("multiplicity violation")
	ErrUnionMutation           = errors.New("derived union is read-only")
	ErrStubProtocol            = errors.New("association stub is not accessible")
	ErrUnknownProperty         = errors.New("unknown property")
	ErrInvalidValueType        = errors.New("invalid value type")
	ErrNodeUnlinked            = errors.New("node is unlinked")
)

// Schema definition errors.
var (
	ErrDuplicateName      = errors.New("duplicate name")
	ErrInvalidName        = errors.New("invalid name")
	ErrUnknownType        = errors.New("unknown type")
	ErrInvalidBounds      = errors.New("invalid multiplicity bounds")
	ErrSchemaSealed       = errors.New("schema is sealed")
	ErrSchemaNotSealed    = errors.New("schema is not sealed")
	ErrUnresolvedOpposite = errors.New("unresolved opposite")
	ErrOppositeMismatch   = errors.New("opposite mismatch")
	ErrInvalidSchema      = errors.New("invalid schema description")
)

// Model and store errors.
var (
	ErrNotFound        = errors.New("node not found")
	ErrInvalidID       = errors.New("invalid node ID")
	ErrDuplicateID     = errors.New("duplicate node ID")
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrInvalidJournal  = errors.New("invalid journal entry")
)
