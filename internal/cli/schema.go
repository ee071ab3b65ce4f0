package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/modelgraph/pkg/model"
)

// typeView is the JSON form of a type in "schema --json".
type typeView struct {
	Name       string   `json:"name"`
	Supers     []string `json:"supers,omitempty"`
	Properties []string `json:"properties,omitempty"`
}

func newSchemaCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the metamodel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := resolveConfig(f)
			if err != nil {
				return err
			}
			schema, err := loadSchema(cfg.SchemaFile, newLogger(cfg.LogLevel, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}

			views := describeSchema(schema)
			out := cmd.OutOrStdout()
			if f.jsonMode {
				return writeJSON(out, views)
			}
			for _, v := range views {
				if len(v.Supers) > 0 {
					fmt.Fprintf(out, "%s %v\n", v.Name, v.Supers)
				} else {
					fmt.Fprintln(out, v.Name)
				}
				for _, p := range v.Properties {
					fmt.Fprintln(out, "  "+p)
				}
			}
			return nil
		},
	}
}

// describeSchema lists each type with the properties it declares.
func describeSchema(s *model.Schema) []typeView {
	var views []typeView
	for _, t := range s.Types() {
		v := typeView{Name: t.Name()}
		for _, super := range t.Supers() {
			v.Supers = append(v.Supers, super.Name())
		}
		for _, p := range s.Properties(t) {
			if _, stub := p.(*model.Stub); stub || p.Owner() != t {
				continue
			}
			v.Properties = append(v.Properties, p.String())
		}
		views = append(views, v)
	}
	return views
}

func newValidateCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the stored model and check every property",
		Long: "Load the stored model, checking value types and that both ends of every\n" +
			"bidirectional association agree.",
		Args: cobra.NoArgs,
		RunE: run(f, false, func(s *session, args []string) error {
			if err := s.model.PostLoad(); err != nil {
				return err
			}
			if s.flags.jsonMode {
				return writeJSON(s.out, map[string]any{"valid": true, "nodes": s.model.Len()})
			}
			fmt.Fprintf(s.out, "model is valid: %d nodes\n", s.model.Len())
			return nil
		}),
	}
}
