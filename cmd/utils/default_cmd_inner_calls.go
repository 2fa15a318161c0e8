package utils

import (
	"fmt"

	"github.com/spf13/cobra"
)

// PropagatePersistentPreRun runs the parent's PersistentPreRun, so commands
// that override it still get the root config ingestion.
func PropagatePersistentPreRun(cmd *cobra.Command, args []string) {
	if cmd.Parent() != nil && cmd.Parent().PersistentPreRun != nil {
		cmd.Parent().PersistentPreRun(cmd.Parent(), args)
	}
}

// CallHelpCommand prints the command help. Used as the RunE of commands that
// only exist to group subcommands.
func CallHelpCommand(cmd *cobra.Command, args []string) error {
	if err := cmd.Help(); err != nil {
		return fmt.Errorf("calling help command: %w", err)
	}
	return nil
}
