package main

import (
	"github.com/sirupsen/logrus"

	"github.com/fikir-app/fikir-backend/cmd"
	cmdUtils "github.com/fikir-app/fikir-backend/cmd/utils"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// Version is the official version of this application.
const Version = "1.4.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	preConfigureLogger()

	if err := cmdUtils.LoadEnvFile(); err != nil {
		log.Warnf("error loading env file: %s", err.Error())
	}

	if err := cmd.SetupCLI(Version, GitCommit).Execute(); err != nil {
		log.Fatalf("Error executing CLI: %s", err.Error())
	}
}

// preConfigureLogger will set the log level to Trace, so logs works from the
// start. This will eventually be overwritten in cmd/root.go
func preConfigureLogger() {
	log.DefaultLogger = log.New()
	log.DefaultLogger.SetLevel(logrus.TraceLevel)
}
