package db

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmdUtils "github.com/fikir-app/fikir-backend/cmd/utils"
	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/db/dbtest"
	"github.com/fikir-app/fikir-backend/internal/data"
)

func Test_DatabaseCommand_help(t *testing.T) {
	globalOptions := cmdUtils.GlobalOptionsType{}
	dbCommand := (&DatabaseCommand{}).Command(&globalOptions)

	var out bytes.Buffer
	dbCommand.SetOut(&out)
	dbCommand.SetArgs([]string{})

	err := dbCommand.Execute()
	require.NoError(t, err)

	assert.Contains(t, out.String(), "migrate")
	assert.Contains(t, out.String(), "seed")
}

func Test_DatabaseCommand_migrate_upAndDown(t *testing.T) {
	dbt := dbtest.OpenWithoutMigrations(t)
	defer dbt.Close()

	globalOptions := cmdUtils.GlobalOptionsType{DatabaseURL: dbt.DSN}

	dbCommand := (&DatabaseCommand{}).Command(&globalOptions)
	dbCommand.SetArgs([]string{"migrate", "up", "1"})
	err := dbCommand.Execute()
	require.NoError(t, err)

	conn := dbt.Open()
	defer conn.Close()

	var count int
	err = conn.Get(&count, "SELECT COUNT(*) FROM fikir_migrations")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// --yes skips the confirmation prompt, so down works unattended.
	dbCommand = (&DatabaseCommand{}).Command(&globalOptions)
	dbCommand.SetArgs([]string{"migrate", "down", "1", "--yes"})
	err = dbCommand.Execute()
	require.NoError(t, err)

	err = conn.Get(&count, "SELECT COUNT(*) FROM fikir_migrations")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func Test_DatabaseCommand_seed(t *testing.T) {
	dbt := dbtest.Open(t)
	defer dbt.Close()

	cmdUtils.ClearTestEnvironment(t)

	globalOptions := cmdUtils.GlobalOptionsType{
		DatabaseURL:  dbt.DSN,
		VATRate:      decimal.RequireFromString("0.15"),
		GatewayRate:  decimal.RequireFromString("0.03"),
		GatewayFixed: decimal.RequireFromString("2.00"),
		CoinsPerETB:  decimal.RequireFromString("1"),
	}

	tmpDir := t.TempDir()

	// The packages file starts with a UTF-8 BOM, the way spreadsheet exports
	// usually do. The Starter row leaves coins empty so it falls back to
	// target_net_etb x coins-per-etb.
	packagesFile := filepath.Join(tmpDir, "coin_packages.csv")
	packagesCSV := "\xEF\xBB\xBF" + "name,coins,target_net_etb\nStarter,,50\nPopular,600,500\n"
	err := os.WriteFile(packagesFile, []byte(packagesCSV), 0o600)
	require.NoError(t, err)

	giftsFile := filepath.Join(tmpDir, "gifts.csv")
	giftsCSV := "name,coins,value_etb,icon\nRose,10,10,🌹\nCrown,500,500,👑\n"
	err = os.WriteFile(giftsFile, []byte(giftsCSV), 0o600)
	require.NoError(t, err)

	runSeed := func() error {
		dbCommand := (&DatabaseCommand{}).Command(&globalOptions)
		dbCommand.SetArgs([]string{"seed", "--packages-file", packagesFile, "--gifts-file", giftsFile})
		return dbCommand.Execute()
	}
	require.NoError(t, runSeed())

	dbConnectionPool, err := db.OpenDBConnectionPool(dbt.DSN)
	require.NoError(t, err)
	defer dbConnectionPool.Close()

	models, err := data.NewModels(dbConnectionPool)
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("🎉 creates the coin packages with grossed-up prices", func(t *testing.T) {
		packages, err := models.CoinPackages.GetAll(ctx, false)
		require.NoError(t, err)
		require.Len(t, packages, 2)

		starter := packages[0] // cheapest first
		assert.Equal(t, "Starter", starter.Name)
		assert.Equal(t, int64(50), starter.Coins)
		assert.True(t, starter.TargetNetETB.Equal(decimal.RequireFromString("50")))
		assert.True(t, starter.VATETB.Equal(decimal.RequireFromString("7.50")), "got %s", starter.VATETB)
		// (50 + 7.50 + 2.00) / 0.97 = 61.34
		assert.True(t, starter.PriceTotalETB.Equal(decimal.RequireFromString("61.34")), "got %s", starter.PriceTotalETB)

		popular := packages[1]
		assert.Equal(t, "Popular", popular.Name)
		assert.Equal(t, int64(600), popular.Coins)
		// (500 + 75.00 + 2.00) / 0.97 = 594.85
		assert.True(t, popular.PriceTotalETB.Equal(decimal.RequireFromString("594.85")), "got %s", popular.PriceTotalETB)
	})

	t.Run("🎉 creates the gifts", func(t *testing.T) {
		gifts, err := models.Gifts.GetAll(ctx, false)
		require.NoError(t, err)
		require.Len(t, gifts, 2)

		names := []string{gifts[0].Name, gifts[1].Name}
		assert.Contains(t, names, "Rose")
		assert.Contains(t, names, "Crown")
	})

	t.Run("🎉 re-running the seed skips existing rows", func(t *testing.T) {
		require.NoError(t, runSeed())

		packages, err := models.CoinPackages.GetAll(ctx, false)
		require.NoError(t, err)
		assert.Len(t, packages, 2)

		gifts, err := models.Gifts.GetAll(ctx, false)
		require.NoError(t, err)
		assert.Len(t, gifts, 2)
	})
}
