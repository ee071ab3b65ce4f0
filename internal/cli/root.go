// Package cli implements the modelgraph command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/modelgraph/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds the persistent flag values shared by all subcommands.
type rootFlags struct {
	configDir  string
	dataDir    string
	schemaFile string
	jsonMode   bool
	stats      bool
}

// NewRootCmd creates the top-level "modelgraph" command with its persistent
// flags and every subcommand registered.
func NewRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "modelgraph",
		Short: "Build and query typed object graphs against a metamodel",
		Long: "modelgraph keeps a graph of typed nodes whose attributes and associations\n" +
			"are described by a metamodel, keeping opposite ends, derived unions and\n" +
			"redefinitions consistent on every change.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&f.dataDir, "data-dir", "", "data directory (default: $(CWD)/.modelgraph-db)")
	pf.StringVar(&f.schemaFile, "schema", "", "metamodel description (default: schema.yaml in the config dir, else built-in)")
	pf.BoolVar(&f.jsonMode, "json", false, "output as JSON")
	pf.BoolVar(&f.stats, "stats", false, "print notification counters after the command")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(f),
		newSchemaCmd(f),
		newValidateCmd(f),
		newCreateCmd(f),
		newSetCmd(f),
		newLinkCmd(f),
		newUnsetCmd(f),
		newUnlinkCmd(f),
		newShowCmd(f),
		newListCmd(f),
		newReferrersCmd(f),
	)
	return root
}

// Execute runs the root command and exits with the matching code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "modelgraph:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// errUsage marks malformed command input.
var errUsage = errors.New("invalid argument")

// userErrors are the failures caused by what the user asked for rather than
// by the environment.
var userErrors = []error{
	errUsage,
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrDuplicateID,
	types.ErrUnknownType,
	types.ErrUnknownProperty,
	types.ErrTypeMismatch,
	types.ErrInvalidEnumerationValue,
	types.ErrMultiplicityViolation,
	types.ErrUnionMutation,
	types.ErrStubProtocol,
	types.ErrNodeUnlinked,
}

func exitCode(err error) int {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
