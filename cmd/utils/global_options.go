package utils

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fikir-app/fikir-backend/internal/crashtracker"
)

type GlobalOptionsType struct {
	LogLevel    logrus.Level
	SentryDSN   string
	Environment string
	Version     string
	GitCommit   string
	DatabaseURL string
	BaseURL     string
	FrontendURL string

	// Platform economics, shared by the API server (gift splits) and the
	// catalog seeder (package gross-up).
	VATRate                decimal.Decimal
	PlatformCommissionRate decimal.Decimal
	GatewayRate            decimal.Decimal
	GatewayFixed           decimal.Decimal
	CoinsPerETB            decimal.Decimal
}

// populateConfigOptions populates the CrastTrackerOptions from the global options.
func (g GlobalOptionsType) PopulateCrashTrackerOptions(crashTrackerOptions *crashtracker.CrashTrackerOptions) {
	if crashTrackerOptions.CrashTrackerType == crashtracker.CrashTrackerTypeSentry {
		crashTrackerOptions.SentryDSN = g.SentryDSN
	}
	crashTrackerOptions.Environment = g.Environment
	crashTrackerOptions.GitCommit = g.GitCommit
}
