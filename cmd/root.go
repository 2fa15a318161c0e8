package cmd

import (
	"go/types"

	"github.com/spf13/cobra"

	"github.com/fikir-app/fikir-backend/cmd/db"
	cmdUtils "github.com/fikir-app/fikir-backend/cmd/utils"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/support/config"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// globalOptions is a variable that holds the global CLI options that can be
// applied to any command or subcommand.
var globalOptions cmdUtils.GlobalOptionsType

func rootCmd() *cobra.Command {
	configOpts := config.ConfigOptions{
		{
			Name:           "log-level",
			Usage:          `The log level used in this project. Options: "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", or "PANIC".`,
			OptType:        types.String,
			FlagDefault:    "INFO",
			ConfigKey:      &globalOptions.LogLevel,
			CustomSetValue: cmdUtils.SetConfigOptionLogLevel,
			Required:       true,
		},
		{
			Name:      "sentry-dsn",
			Usage:     "The DSN (client key) of the Sentry project. If not provided, Sentry will not be used.",
			OptType:   types.String,
			ConfigKey: &globalOptions.SentryDSN,
			Required:  false,
		},
		{
			Name:        "environment",
			Usage:       `The environment where the application is running. Example: "development", "staging", "production".`,
			OptType:     types.String,
			FlagDefault: "development",
			ConfigKey:   &globalOptions.Environment,
			Required:    true,
		},
		{
			Name:        db.DBConfigOptionFlagName,
			Usage:       `Postgres DB URL`,
			OptType:     types.String,
			FlagDefault: "postgres://localhost:5432/fikir?sslmode=disable",
			ConfigKey:   &globalOptions.DatabaseURL,
			Required:    true,
		},
		{
			Name:        "base-url",
			Usage:       "The public base URL of this backend. The payment provider calls back on it.",
			OptType:     types.String,
			ConfigKey:   &globalOptions.BaseURL,
			FlagDefault: "http://localhost:8000",
			Required:    true,
		},
		{
			Name:           "frontend-url",
			Usage:          "The URL of the Fikir app frontend. Checkout pages send the customer back to it.",
			OptType:        types.String,
			ConfigKey:      &globalOptions.FrontendURL,
			CustomSetValue: cmdUtils.SetConfigOptionURLString,
			FlagDefault:    "http://localhost:3000",
			Required:       true,
		},
	}
	configOpts = append(configOpts, cmdUtils.PricingConfigOptions(&globalOptions)...)

	rootCmd := &cobra.Command{
		Use:     "fikir-backend",
		Short:   "Fikir Payments Backend",
		Long:    "Fikir Payments Backend powers the coin economy of the Fikir dating app: ChAPA top-ups, the coin wallet, gift sends, creator withdrawals and subscriptions.",
		Version: globalOptions.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}
			log.Info("Version: ", globalOptions.Version)
			log.Info("GitCommit: ", globalOptions.GitCommit)
		},
		Run: func(cmd *cobra.Command, args []string) {
			err := cmd.Help()
			if err != nil {
				log.Fatalf("Error calling help command: %s", err.Error())
			}
		},
	}

	err := configOpts.Init(rootCmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return rootCmd
}

// SetupCLI sets up the CLI and returns the root command with the subcommands
// attached.
func SetupCLI(version, gitCommit string) *cobra.Command {
	globalOptions.Version = version
	globalOptions.GitCommit = gitCommit
	rootCmd := rootCmd()

	// Add subcommands
	rootCmd.AddCommand((&ServeCommand{}).Command(&ServerService{}, &monitor.MonitorService{}))
	rootCmd.AddCommand((&db.DatabaseCommand{}).Command(&globalOptions))
	rootCmd.AddCommand((&AuthCommand{}).Command())

	return rootCmd
}
