// Package schemafile compiles a YAML metamodel description into a sealed
// model.Schema.
package schemafile

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/modelgraph/pkg/model"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

//go:embed uml.yaml
var defaultSchema []byte

// Default returns the bundled UML-style description.
func Default() []byte {
	return append([]byte(nil), defaultSchema...)
}

// Bound is a multiplicity bound. In YAML it is an integer or "*".
type Bound int

func (b *Bound) UnmarshalYAML(value *yaml.Node) error {
	if value.Value == "*" {
		*b = Bound(types.Unbounded)
		return nil
	}
	n, err := strconv.Atoi(value.Value)
	if err != nil {
		return fmt.Errorf("%w: bound %q at line %d", types.ErrInvalidSchema, value.Value, value.Line)
	}
	*b = Bound(n)
	return nil
}

func (b Bound) MarshalYAML() (any, error) {
	if int(b) == types.Unbounded {
		return "*", nil
	}
	return int(b), nil
}

// Description is the document form of a schema.
type Description struct {
	Types         []TypeDecl        `yaml:"types"`
	Attributes    []AttributeDecl   `yaml:"attributes,omitempty"`
	Enumerations  []EnumerationDecl `yaml:"enumerations,omitempty"`
	Associations  []AssociationDecl `yaml:"associations,omitempty"`
	DerivedUnions []UnionDecl       `yaml:"derived_unions,omitempty"`
	Redefines     []RedefineDecl    `yaml:"redefines,omitempty"`
}

type TypeDecl struct {
	Name   string   `yaml:"name"`
	Supers []string `yaml:"supers,omitempty"`
}

type AttributeDecl struct {
	Type      string          `yaml:"type"`
	Name      string          `yaml:"name"`
	ValueType types.ValueType `yaml:"value_type"`
	Default   any             `yaml:"default,omitempty"`
}

type EnumerationDecl struct {
	Type    string   `yaml:"type"`
	Name    string   `yaml:"name"`
	Values  []string `yaml:"values"`
	Default string   `yaml:"default,omitempty"`
}

type AssociationDecl struct {
	Type        string `yaml:"type"`
	Name        string `yaml:"name"`
	Participant string `yaml:"participant"`
	Lower       Bound  `yaml:"lower"`
	Upper       Bound  `yaml:"upper"`
	Composite   bool   `yaml:"composite,omitempty"`
	Opposite    string `yaml:"opposite,omitempty"`
}

// UnionDecl declares a derived union. Subsets are written as Type.name.
type UnionDecl struct {
	Type    string   `yaml:"type"`
	Name    string   `yaml:"name"`
	Lower   Bound    `yaml:"lower"`
	Upper   Bound    `yaml:"upper"`
	Subsets []string `yaml:"subsets"`
}

// RedefineDecl declares a redefinition. Original is written as Type.name.
type RedefineDecl struct {
	Type        string `yaml:"type"`
	Name        string `yaml:"name"`
	Participant string `yaml:"participant"`
	Original    string `yaml:"original"`
}

// Load reads and compiles the description at path.
func Load(path string, opts ...model.SchemaOption) (*model.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	s, err := Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// Parse compiles a YAML description.
func Parse(data []byte, opts ...model.SchemaOption) (*model.Schema, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidSchema, err)
	}
	return Compile(&d, opts...)
}

// Compile declares everything in d on a new schema and seals it.
func Compile(d *Description, opts ...model.SchemaOption) (*model.Schema, error) {
	c := &compiler{
		schema: model.NewSchema(opts...),
		decls:  make(map[string]TypeDecl, len(d.Types)),
	}
	for _, td := range d.Types {
		if _, dup := c.decls[td.Name]; dup {
			return nil, fmt.Errorf("%w: type %s", types.ErrDuplicateName, td.Name)
		}
		c.decls[td.Name] = td
	}
	for _, td := range d.Types {
		if _, err := c.defineType(td.Name, nil); err != nil {
			return nil, err
		}
	}

	for _, a := range d.Attributes {
		owner, err := c.typ(a.Type)
		if err != nil {
			return nil, err
		}
		def, err := coerceDefault(a.ValueType, a.Default)
		if err != nil {
			return nil, fmt.Errorf("default of %s.%s: %w", a.Type, a.Name, err)
		}
		c.schema.Attribute(owner, a.Name, a.ValueType, def)
	}
	for _, e := range d.Enumerations {
		owner, err := c.typ(e.Type)
		if err != nil {
			return nil, err
		}
		c.schema.Enumeration(owner, e.Name, e.Values, e.Default)
	}
	for _, a := range d.Associations {
		owner, err := c.typ(a.Type)
		if err != nil {
			return nil, err
		}
		participant, err := c.typ(a.Participant)
		if err != nil {
			return nil, err
		}
		var aopts []model.AssociationOption
		if a.Composite {
			aopts = append(aopts, model.Composite())
		}
		if a.Opposite != "" {
			aopts = append(aopts, model.Opposite(a.Opposite))
		}
		c.schema.Association(owner, a.Name, participant, int(a.Lower), int(a.Upper), aopts...)
	}
	if err := c.derived(d.DerivedUnions, d.Redefines); err != nil {
		return nil, err
	}

	if err := c.schema.Seal(); err != nil {
		return nil, err
	}
	return c.schema, nil
}

type compiler struct {
	schema *model.Schema
	decls  map[string]TypeDecl
}

// defineType defines name after its supertypes. path holds the types being
// defined further up the recursion.
func (c *compiler) defineType(name string, path []string) (*model.Type, error) {
	if t, ok := c.schema.Type(name); ok {
		return t, nil
	}
	td, ok := c.decls[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownType, name)
	}
	for _, p := range path {
		if p == name {
			return nil, fmt.Errorf("%w: inheritance cycle %s", types.ErrInvalidSchema, strings.Join(append(path, name), " -> "))
		}
	}
	supers := make([]*model.Type, 0, len(td.Supers))
	for _, sup := range td.Supers {
		st, err := c.defineType(sup, append(path, name))
		if err != nil {
			return nil, err
		}
		supers = append(supers, st)
	}
	return c.schema.DefineType(name, supers...), nil
}

func (c *compiler) typ(name string) (*model.Type, error) {
	t, ok := c.schema.Type(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownType, name)
	}
	return t, nil
}

// ref resolves a Type.name reference to a declared property.
func (c *compiler) ref(r string) (model.Property, bool, error) {
	typeName, name, ok := strings.Cut(r, ".")
	if !ok {
		return nil, false, fmt.Errorf("%w: reference %q is not Type.name", types.ErrInvalidSchema, r)
	}
	t, err := c.typ(typeName)
	if err != nil {
		return nil, false, err
	}
	p, found := c.schema.Property(t, name)
	return p, found, nil
}

// derived declares unions and redefinitions, each once everything it refers
// to is declared. A reference that never resolves, including a cycle, is an
// error.
func (c *compiler) derived(unions []UnionDecl, redefines []RedefineDecl) error {
	pendingU := append([]UnionDecl(nil), unions...)
	pendingR := append([]RedefineDecl(nil), redefines...)
	for len(pendingU)+len(pendingR) > 0 {
		progress := false

		var nextU []UnionDecl
		for _, u := range pendingU {
			subsets, ready, err := c.refs(u.Subsets)
			if err != nil {
				return fmt.Errorf("derived union %s.%s: %w", u.Type, u.Name, err)
			}
			if !ready {
				nextU = append(nextU, u)
				continue
			}
			owner, err := c.typ(u.Type)
			if err != nil {
				return err
			}
			c.schema.DerivedUnion(owner, u.Name, int(u.Lower), int(u.Upper), subsets...)
			progress = true
		}
		pendingU = nextU

		var nextR []RedefineDecl
		for _, r := range pendingR {
			orig, ready, err := c.refs([]string{r.Original})
			if err != nil {
				return fmt.Errorf("redefine %s.%s: %w", r.Type, r.Name, err)
			}
			if !ready {
				nextR = append(nextR, r)
				continue
			}
			owner, err := c.typ(r.Type)
			if err != nil {
				return err
			}
			participant, err := c.typ(r.Participant)
			if err != nil {
				return err
			}
			c.schema.Redefine(owner, r.Name, participant, orig[0])
			progress = true
		}
		pendingR = nextR

		if !progress {
			var names []string
			for _, u := range pendingU {
				names = append(names, u.Type+"."+u.Name)
			}
			for _, r := range pendingR {
				names = append(names, r.Type+"."+r.Name)
			}
			return fmt.Errorf("%w: unresolved or cyclic references in %s", types.ErrInvalidSchema, strings.Join(names, ", "))
		}
	}
	return nil
}

func (c *compiler) refs(refs []string) ([]model.Property, bool, error) {
	out := make([]model.Property, 0, len(refs))
	for _, r := range refs {
		p, found, err := c.ref(r)
		if err != nil {
			return nil, false, err
		}
		if !found {
			return nil, false, nil
		}
		out = append(out, p)
	}
	return out, true, nil
}

// coerceDefault converts a YAML scalar into the value type of an attribute.
func coerceDefault(vt types.ValueType, raw any) (any, error) {
	if raw == nil {
		return types.ZeroValue(vt)
	}
	var (
		v   any
		err error
	)
	switch vt {
	case types.ValueTypeText:
		v, err = cast.ToStringE(raw)
	case types.ValueTypeInteger:
		v, err = cast.ToInt64E(raw)
	case types.ValueTypeReal:
		v, err = cast.ToFloat64E(raw)
	case types.ValueTypeBoolean:
		v, err = cast.ToBoolE(raw)
	case types.ValueTypeTimestamp:
		v, err = cast.ToTimeE(raw)
	default:
		return raw, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTypeMismatch, err)
	}
	return v, nil
}
