package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/acharya-hq/smokecheck/internal/checklist"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in checklists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range checklist.BuiltinNames() {
				c, err := checklist.Builtin(name)
				if err != nil {
					return WrapExitError(ExitCommandError, "loading built-in checklist", err)
				}
				fmt.Fprintf(out, "%-22s %d steps  %s\n", name, len(c.Steps), c.Description)
			}
			return nil
		},
	}
}
