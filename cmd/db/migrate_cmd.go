package db

import (
	"context"
	"fmt"
	"go/types"
	"strconv"

	"github.com/manifoldco/promptui"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/fikir-app/fikir-backend/cmd/utils"
	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/support/config"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// migrateCmd returns a cobra.Command responsible for running the database migrations.
func (c *DatabaseCommand) migrateCmd(globalOptions *utils.GlobalOptionsType) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:              "migrate",
		Short:            "Schema migration helpers",
		PersistentPreRun: utils.PropagatePersistentPreRun,
		RunE:             utils.CallHelpCommand,
	}

	migrateUpCmd := &cobra.Command{
		Use:              "up [count]",
		Short:            "Migrates database up [count] migrations. When [count] is omitted, applies all pending migrations.",
		Args:             cobra.MaximumNArgs(1),
		PersistentPreRun: utils.PropagatePersistentPreRun,
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			var count int
			if len(args) > 0 {
				var err error
				count, err = strconv.Atoi(args[0])
				if err != nil {
					log.Ctx(ctx).Fatalf("Invalid [count] argument: %s", args[0])
				}
			}

			if err := executeMigrations(ctx, globalOptions.DatabaseURL, migrate.Up, count); err != nil {
				log.Ctx(ctx).Fatalf("Error executing migrate up: %v", err)
			}
		},
	}

	var skipConfirmation bool
	downConfigOptions := config.ConfigOptions{
		{
			Name:        "yes",
			Usage:       "Skip the interactive confirmation before migrating the database down.",
			OptType:     types.Bool,
			ConfigKey:   &skipConfirmation,
			FlagDefault: false,
			Required:    false,
		},
	}

	migrateDownCmd := &cobra.Command{
		Use:   "down [count]",
		Short: "Migrates database down [count] migrations",
		Args:  cobra.ExactArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.PropagatePersistentPreRun(cmd, args)
			downConfigOptions.Require()
			if err := downConfigOptions.SetValues(); err != nil {
				log.Ctx(cmd.Context()).Fatalf("Error setting values of config options: %v", err)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			ctx := cmd.Context()

			count, err := strconv.Atoi(args[0])
			if err != nil {
				log.Ctx(ctx).Fatalf("Invalid [count] argument: %s", args[0])
			}

			// Migrating down drops data. Make the operator say so, unless the
			// call comes from automation.
			if !skipConfirmation {
				prompt := promptui.Prompt{
					Label:     fmt.Sprintf("Migrate the database down %d migration(s)? This is destructive", count),
					IsConfirm: true,
				}
				if _, promptErr := prompt.Run(); promptErr != nil {
					log.Ctx(ctx).Info("Aborted.")
					return
				}
			}

			if err := executeMigrations(ctx, globalOptions.DatabaseURL, migrate.Down, count); err != nil {
				log.Ctx(ctx).Fatalf("Error executing migrate down: %v", err)
			}
		},
	}
	if err := downConfigOptions.Init(migrateDownCmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	return migrateCmd
}

// executeMigrations executes the migrations on the database, according with the direction and count.
func executeMigrations(ctx context.Context, dbURL string, dir migrate.MigrationDirection, count int) error {
	numMigrationsRun, err := db.Migrate(dbURL, dir, count)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	if numMigrationsRun == 0 {
		log.Ctx(ctx).Info("No migrations applied.")
	} else {
		log.Ctx(ctx).Infof("Successfully applied %d migrations %s.", numMigrationsRun, migrationDirectionStr(dir))
	}
	return nil
}

// migrationDirectionStr returns a string representation of the migration direction (up or down).
func migrationDirectionStr(dir migrate.MigrationDirection) string {
	if dir == migrate.Up {
		return "up"
	}
	return "down"
}
