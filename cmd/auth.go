package cmd

import (
	"fmt"
	"go/types"
	"time"

	"github.com/spf13/cobra"

	cmdUtils "github.com/fikir-app/fikir-backend/cmd/utils"
	"github.com/fikir-app/fikir-backend/internal/serve/auth"
	"github.com/fikir-app/fikir-backend/internal/support/config"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

type AuthCommand struct{}

func (a *AuthCommand) Command() *cobra.Command {
	authCmd := &cobra.Command{
		Use:              "auth",
		Short:            "Authentication helpers",
		Example:          "auth <sub-command>",
		PersistentPreRun: cmdUtils.PropagatePersistentPreRun,
		RunE:             cmdUtils.CallHelpCommand,
	}

	authCmd.AddCommand(a.issueTokenCmd())

	return authCmd
}

// issueTokenCmd mints a signed access token for a user. It is meant for local
// development and support tooling; the mobile app gets its tokens from the
// identity service.
func (a *AuthCommand) issueTokenCmd() *cobra.Command {
	var (
		userID     string
		expiresIn  time.Duration
		privateKey string
	)
	configOpts := config.ConfigOptions{
		{
			Name:      "user-id",
			Usage:     "The ID of the user the token is issued for.",
			OptType:   types.String,
			ConfigKey: &userID,
			Required:  true,
		},
		{
			Name:           "expires-in",
			Usage:          `How long the token stays valid, as a Go duration. Example: "24h".`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionDuration,
			ConfigKey:      &expiresIn,
			FlagDefault:    "24h",
			Required:       true,
		},
		{
			Name:           "ec256-private-key",
			Usage:          "The EC256 Private Key used to sign the token. It must pair with the server's --ec256-public-key.",
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionEC256PrivateKey,
			ConfigKey:      &privateKey,
			Required:       true,
		},
	}

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Issue a signed access token for a user",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdUtils.PropagatePersistentPreRun(cmd, args)
			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Ctx(cmd.Context()).Fatalf("Error setting values of config options: %v", err)
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			jwtManager, err := auth.NewSigningJWTManager(privateKey)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating JWT manager: %s", err.Error())
			}

			token, err := jwtManager.GenerateToken(ctx, userID, time.Now().Add(expiresIn))
			if err != nil {
				log.Ctx(ctx).Fatalf("error generating token: %s", err.Error())
			}

			fmt.Println(token)
		},
	}
	if err := configOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}
