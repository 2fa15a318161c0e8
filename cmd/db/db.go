package db

import (
	"github.com/spf13/cobra"

	"github.com/fikir-app/fikir-backend/cmd/utils"
)

const DBConfigOptionFlagName = "database-url"

type DatabaseCommand struct{}

func (c *DatabaseCommand) Command(globalOptions *utils.GlobalOptionsType) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "db",
		Short:            "Database related commands",
		PersistentPreRun: utils.PropagatePersistentPreRun,
		RunE:             utils.CallHelpCommand,
	}

	cmd.AddCommand(c.migrateCmd(globalOptions)) // 'migrate up|down'
	cmd.AddCommand(c.seedCmd(globalOptions))    // 'seed'

	return cmd
}
