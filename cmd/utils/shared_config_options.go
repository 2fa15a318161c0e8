package utils

import (
	"go/types"

	"github.com/fikir-app/fikir-backend/internal/services"
	"github.com/fikir-app/fikir-backend/internal/support/config"
)

// PricingConfigOptions returns the platform economics tunables. They live on
// the root command because two subcommands consume them: `serve` splits gift
// values with the VAT and commission rates, and `db seed` grosses up coin
// package prices with the VAT, gateway and coins-per-ETB values.
func PricingConfigOptions(opts *GlobalOptionsType) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:           "vat-rate",
			Usage:          "VAT rate charged on the platform commission and on coin package base prices.",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDecimal,
			ConfigKey:      &opts.VATRate,
			FlagDefault:    "0.15",
			Required:       true,
		},
		{
			Name:           "platform-commission-rate",
			Usage:          "Commission the platform keeps from the gross value of each gift.",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDecimal,
			ConfigKey:      &opts.PlatformCommissionRate,
			FlagDefault:    "0.25",
			Required:       true,
		},
		{
			Name:           "gateway-rate",
			Usage:          "Percentage fee the payment gateway charges on each checkout.",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDecimal,
			ConfigKey:      &opts.GatewayRate,
			FlagDefault:    "0.03",
			Required:       true,
		},
		{
			Name:           "gateway-fixed",
			Usage:          "Fixed ETB fee the payment gateway charges on each checkout.",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDecimal,
			ConfigKey:      &opts.GatewayFixed,
			FlagDefault:    "2.00",
			Required:       true,
		},
		{
			Name:           "coins-per-etb",
			Usage:          "How many coins one ETB buys. Used to derive package coin amounts at seed time.",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDecimal,
			ConfigKey:      &opts.CoinsPerETB,
			FlagDefault:    "1",
			Required:       true,
		},
	}
}

// RiskConfigOptions returns the velocity-rule tunables consumed by the risk
// engine.
func RiskConfigOptions(cfg *services.RiskConfig) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:           "risk-topups-window-min",
			Usage:          "Window in minutes over which successful top-ups are counted.",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationMinutes,
			ConfigKey:      &cfg.TopUpsWindow,
			FlagDefault:    60,
			Required:       true,
		},
		{
			Name:           "risk-topups-count",
			Usage:          "Number of successful top-ups inside the window that flags the wallet.",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionPositiveInt64,
			ConfigKey:      &cfg.TopUpsCount,
			FlagDefault:    5,
			Required:       true,
		},
		{
			Name:           "risk-gifts-window-min",
			Usage:          "Window in minutes over which received gift value is summed.",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationMinutes,
			ConfigKey:      &cfg.GiftsWindow,
			FlagDefault:    60,
			Required:       true,
		},
		{
			Name:           "risk-gifts-etb-threshold",
			Usage:          "Received gift value in ETB inside the window that flags the wallet.",
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDecimal,
			ConfigKey:      &cfg.GiftsETBThreshold,
			FlagDefault:    "10000",
			Required:       true,
		},
		{
			Name:           "risk-withdrawals-window-min",
			Usage:          "Window in minutes over which withdrawal destinations are compared.",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionDurationMinutes,
			ConfigKey:      &cfg.WithdrawalsWindow,
			FlagDefault:    60,
			Required:       true,
		},
		{
			Name:           "risk-same-destination-count",
			Usage:          "Withdrawals to one destination inside the window that flags the wallet.",
			OptType:        types.Int,
			CustomSetValue: SetConfigOptionPositiveInt64,
			ConfigKey:      &cfg.SameDestinationCount,
			FlagDefault:    3,
			Required:       true,
		},
	}
}
