package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/modelgraph/pkg/model"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// nodeView is the JSON form of a node.
type nodeView struct {
	ID         string         `json:"node_id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

type nodeHolder interface {
	Nodes(n *model.Node) []*model.Node
}

func newCreateCmd(f *rootFlags) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create a node of the given type",
		Args:  cobra.ExactArgs(1),
		RunE: run(f, true, func(s *session, args []string) error {
			typ, ok := s.model.Schema().Type(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", types.ErrUnknownType, args[0])
			}
			var (
				n   *model.Node
				err error
			)
			if id != "" {
				n, err = s.model.CreateAs(typ, id)
			} else {
				n, err = s.model.Create(typ)
			}
			if err != nil {
				return err
			}
			if s.flags.jsonMode {
				return writeJSON(s.out, nodeView{ID: n.ID(), Type: typ.Name()})
			}
			fmt.Fprintln(s.out, n.ID())
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "node id (default: a new UUID v7)")
	return cmd
}

func newSetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <property> <value>",
		Short: "Set an attribute, or link a node through an association",
		Long: "Set an attribute or enumeration value, coercing the text to the declared\n" +
			"type. For an association the value is the id of the node to link; a\n" +
			"multi-valued association adds it.",
		Args: cobra.ExactArgs(3),
		RunE: run(f, true, func(s *session, args []string) error {
			n, err := s.node(args[0])
			if err != nil {
				return err
			}
			v, err := s.parseValue(n, args[1], args[2])
			if err != nil {
				return err
			}
			if err := n.Set(args[1], v); err != nil {
				return err
			}
			return s.show(n)
		}),
	}
}

// parseValue converts raw into a value the named property of n accepts.
func (s *session) parseValue(n *model.Node, name, raw string) (any, error) {
	p, err := n.Property(name)
	if err != nil {
		return nil, err
	}
	switch p := p.(type) {
	case *model.Attribute:
		return p.Coerce(raw)
	case *model.Enumeration:
		return raw, nil
	case nodeHolder:
		return s.node(raw)
	default:
		return nil, fmt.Errorf("%w: %s cannot be set", errUsage, name)
	}
}

func newLinkCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "link <id> <association> <other-id>",
		Short: "Add a node to an association",
		Args:  cobra.ExactArgs(3),
		RunE: run(f, true, func(s *session, args []string) error {
			n, err := s.node(args[0])
			if err != nil {
				return err
			}
			other, err := s.node(args[2])
			if err != nil {
				return err
			}
			if err := n.Add(args[1], other); err != nil {
				return err
			}
			return s.show(n)
		}),
	}
}

func newUnsetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <id> <property> [other-id]",
		Short: "Reset an attribute, or remove a node from an association",
		Args:  cobra.RangeArgs(2, 3),
		RunE: run(f, true, func(s *session, args []string) error {
			n, err := s.node(args[0])
			if err != nil {
				return err
			}
			var v any
			if len(args) == 3 {
				if v, err = s.node(args[2]); err != nil {
					return err
				}
			}
			if err := n.Delete(args[1], v); err != nil {
				return err
			}
			return s.show(n)
		}),
	}
}

func newUnlinkCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <id>",
		Short: "Remove a node, and the nodes it owns, from the model",
		Args:  cobra.ExactArgs(1),
		RunE: run(f, true, func(s *session, args []string) error {
			n, err := s.node(args[0])
			if err != nil {
				return err
			}
			before := s.model.Len()
			n.Unlink()
			removed := before - s.model.Len()
			if s.flags.jsonMode {
				return writeJSON(s.out, map[string]any{"node_id": n.ID(), "removed": removed})
			}
			fmt.Fprintf(s.out, "unlinked %s (%d nodes removed)\n", n.ID(), removed)
			return nil
		}),
	}
}

func newShowCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display a node with every property value",
		Args:  cobra.ExactArgs(1),
		RunE: run(f, false, func(s *session, args []string) error {
			n, err := s.node(args[0])
			if err != nil {
				return err
			}
			return s.show(n)
		}),
	}
}

// view collects the non-empty property values of n. Node values are shown
// by id; derived unions and redefinitions are included.
func view(n *model.Node) (nodeView, error) {
	v := nodeView{ID: n.ID(), Type: n.Type().Name(), Properties: make(map[string]any)}
	for _, p := range n.Model().Schema().Properties(n.Type()) {
		if _, stub := p.(*model.Stub); stub {
			continue
		}
		if h, ok := p.(nodeHolder); ok {
			nodes := h.Nodes(n)
			switch {
			case len(nodes) == 0:
			case p.Upper() == 1:
				v.Properties[p.Name()] = nodes[0].ID()
			default:
				ids := make([]string, len(nodes))
				for i, node := range nodes {
					ids[i] = node.ID()
				}
				v.Properties[p.Name()] = ids
			}
			continue
		}
		value, err := p.Get(n)
		if err != nil {
			return nodeView{}, err
		}
		if value == nil || value == "" {
			continue
		}
		if ts, ok := value.(time.Time); ok {
			value = ts.Format(time.RFC3339Nano)
		}
		v.Properties[p.Name()] = value
	}
	return v, nil
}

func (s *session) show(n *model.Node) error {
	v, err := view(n)
	if err != nil {
		return err
	}
	if s.flags.jsonMode {
		return writeJSON(s.out, v)
	}
	fmt.Fprintf(s.out, "ID:   %s\n", v.ID)
	fmt.Fprintf(s.out, "Type: %s\n", v.Type)
	for _, p := range n.Model().Schema().Properties(n.Type()) {
		if value, ok := v.Properties[p.Name()]; ok {
			fmt.Fprintf(s.out, "  %s: %v\n", p.Name(), value)
		}
	}
	return nil
}
