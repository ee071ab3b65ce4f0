package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/modelgraph/internal/sqlite"
	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

func newListCmd(f *rootFlags) *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes, optionally only those of a type and its subtypes",
		Args:  cobra.NoArgs,
		RunE: run(f, false, func(s *session, args []string) error {
			var views []nodeView
			if typeName == "" {
				for _, n := range s.model.Nodes() {
					views = append(views, nodeView{ID: n.ID(), Type: n.Type().Name()})
				}
			} else {
				if _, ok := s.model.Schema().Type(typeName); !ok {
					return fmt.Errorf("%w: %s", types.ErrUnknownType, typeName)
				}
				ids, err := s.store.NodesOfType(typeName)
				if err != nil {
					return err
				}
				for _, id := range ids {
					n, err := s.node(id)
					if err != nil {
						return err
					}
					views = append(views, nodeView{ID: n.ID(), Type: n.Type().Name()})
				}
			}

			if s.flags.jsonMode {
				if views == nil {
					views = []nodeView{}
				}
				return writeJSON(s.out, views)
			}
			for _, v := range views {
				fmt.Fprintf(s.out, "%s\t%s\n", v.ID, v.Type)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&typeName, "type", "", "only nodes of this type or a subtype")
	return cmd
}

func newReferrersCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "referrers <id>",
		Short: "List the nodes whose associations point at a node",
		Args:  cobra.ExactArgs(1),
		RunE: run(f, false, func(s *session, args []string) error {
			if _, err := s.node(args[0]); err != nil {
				return err
			}
			refs, err := s.store.Referrers(args[0])
			if err != nil {
				return err
			}
			if s.flags.jsonMode {
				if refs == nil {
					refs = []sqlite.Reference{}
				}
				return writeJSON(s.out, refs)
			}
			for _, r := range refs {
				fmt.Fprintf(s.out, "%s\t%s\n", r.NodeID, r.Property)
			}
			return nil
		}),
	}
}
