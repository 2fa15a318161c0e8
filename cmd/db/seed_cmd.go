package db

import (
	"context"
	"errors"
	"fmt"
	"go/types"
	"os"

	"github.com/dimchansky/utfbom"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/fikir-app/fikir-backend/cmd/utils"
	"github.com/fikir-app/fikir-backend/db"
	"github.com/fikir-app/fikir-backend/internal/data"
	"github.com/fikir-app/fikir-backend/internal/money"
	"github.com/fikir-app/fikir-backend/internal/support/config"
	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// seedCmd returns a cobra.Command that loads the coin package and gift
// catalogs from CSV files. Packages are priced from the platform economics
// flags so the stored totals always net the target amount after VAT and
// gateway fees.
func (c *DatabaseCommand) seedCmd(globalOptions *utils.GlobalOptionsType) *cobra.Command {
	var packagesFile, giftsFile string
	configOptions := config.ConfigOptions{
		{
			Name:      "packages-file",
			Usage:     "Path of the CSV file with the coin packages to seed. Columns: name, coins, target_net_etb.",
			OptType:   types.String,
			ConfigKey: &packagesFile,
			Required:  false,
		},
		{
			Name:      "gifts-file",
			Usage:     "Path of the CSV file with the gifts to seed. Columns: name, coins, value_etb, icon.",
			OptType:   types.String,
			ConfigKey: &giftsFile,
			Required:  false,
		},
	}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the coin package and gift catalogs from CSV files",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			utils.PropagatePersistentPreRun(cmd, args)
			configOptions.Require()
			if err := configOptions.SetValues(); err != nil {
				log.Ctx(cmd.Context()).Fatalf("Error setting values of config options: %v", err)
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			if packagesFile == "" && giftsFile == "" {
				log.Ctx(ctx).Fatal("provide --packages-file and/or --gifts-file")
			}

			dbConnectionPool, err := db.OpenDBConnectionPool(globalOptions.DatabaseURL)
			if err != nil {
				log.Ctx(ctx).Fatalf("error connecting to the database: %s", err.Error())
			}
			defer dbConnectionPool.Close()

			models, err := data.NewModels(dbConnectionPool)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating models: %s", err.Error())
			}

			if packagesFile != "" {
				if err = seedCoinPackages(ctx, models, globalOptions, packagesFile); err != nil {
					log.Ctx(ctx).Fatalf("error seeding coin packages: %s", err.Error())
				}
			}
			if giftsFile != "" {
				if err = seedGifts(ctx, models, giftsFile); err != nil {
					log.Ctx(ctx).Fatalf("error seeding gifts: %s", err.Error())
				}
			}
		},
	}
	if err := configOptions.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

func seedCoinPackages(ctx context.Context, models *data.Models, globalOptions *utils.GlobalOptionsType, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening packages file %s: %w", path, err)
	}
	defer file.Close()

	rows := []*data.CoinPackage{}
	if err = gocsv.Unmarshal(utfbom.SkipOnly(file), &rows); err != nil {
		return fmt.Errorf("parsing packages file %s: %w", path, err)
	}

	for _, row := range rows {
		coins := row.Coins
		if coins == 0 {
			coins = row.TargetNetETB.Mul(globalOptions.CoinsPerETB).Round(0).IntPart()
		}

		base, vat, total, err := money.GrossTopUpPrice(row.TargetNetETB, globalOptions.VATRate, globalOptions.GatewayRate, globalOptions.GatewayFixed)
		if err != nil {
			return fmt.Errorf("pricing coin package %q: %w", row.Name, err)
		}

		pkg, err := models.CoinPackages.Insert(ctx, data.CoinPackageInsert{
			Name:          row.Name,
			Coins:         coins,
			TargetNetETB:  row.TargetNetETB,
			BaseETB:       base,
			VATETB:        vat,
			PriceTotalETB: total,
		})
		if errors.Is(err, data.ErrRecordAlreadyExists) {
			log.Ctx(ctx).Infof("coin package %q already exists, skipping", row.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("inserting coin package %q: %w", row.Name, err)
		}
		log.Ctx(ctx).Infof("created coin package %q: %d coins for ETB %s (nets ETB %s)", pkg.Name, pkg.Coins, pkg.PriceTotalETB, pkg.TargetNetETB)
	}

	log.Ctx(ctx).Infof("Processed %d coin package row(s) from %s.", len(rows), path)
	return nil
}

func seedGifts(ctx context.Context, models *data.Models, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening gifts file %s: %w", path, err)
	}
	defer file.Close()

	rows := []*data.Gift{}
	if err = gocsv.Unmarshal(utfbom.SkipOnly(file), &rows); err != nil {
		return fmt.Errorf("parsing gifts file %s: %w", path, err)
	}

	for _, row := range rows {
		gift, err := models.Gifts.Insert(ctx, data.GiftInsert{
			Name:     row.Name,
			Coins:    row.Coins,
			ValueETB: row.ValueETB,
			Icon:     row.Icon,
		})
		if errors.Is(err, data.ErrRecordAlreadyExists) {
			log.Ctx(ctx).Infof("gift %q already exists, skipping", row.Name)
			continue
		}
		if err != nil {
			return fmt.Errorf("inserting gift %q: %w", row.Name, err)
		}
		log.Ctx(ctx).Infof("created gift %q: %d coins, carries ETB %s", gift.Name, gift.Coins, gift.ValueETB)
	}

	log.Ctx(ctx).Infof("Processed %d gift row(s) from %s.", len(rows), path)
	return nil
}
