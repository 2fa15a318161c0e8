package utils

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/fikir-app/fikir-backend/internal/crashtracker"
	"github.com/fikir-app/fikir-backend/internal/monitor"
	"github.com/fikir-app/fikir-backend/internal/support/config"
	"github.com/fikir-app/fikir-backend/internal/support/log"
	"github.com/fikir-app/fikir-backend/internal/utils"
)

func SetConfigOptionMetricType(co *config.ConfigOption) error {
	metricType := viper.GetString(co.Name)

	metricTypeParsed, err := monitor.ParseMetricType(metricType)
	if err != nil {
		return fmt.Errorf("couldn't parse metric type: %w", err)
	}

	*(co.ConfigKey.(*monitor.MetricType)) = metricTypeParsed
	return nil
}

func SetConfigOptionCrashTrackerType(co *config.ConfigOption) error {
	ctType := viper.GetString(co.Name)

	ctTypeParsed, err := crashtracker.ParseCrashTrackerType(ctType)
	if err != nil {
		return fmt.Errorf("couldn't parse crash tracker type: %w", err)
	}

	*(co.ConfigKey.(*crashtracker.CrashTrackerType)) = ctTypeParsed
	return nil
}

func SetConfigOptionLogLevel(co *config.ConfigOption) error {
	// parse string to logLevel object
	logLevelStr := viper.GetString(co.Name)
	logLevel, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		return fmt.Errorf("couldn't parse log level: %w", err)
	}

	// update the configKey
	key, ok := co.ConfigKey.(*logrus.Level)
	if !ok {
		return fmt.Errorf("configKey has an invalid type %T", co.ConfigKey)
	}
	*key = logLevel

	// Log for debugging
	if config.IsExplicitlySet(co) {
		log.Debugf("Setting log level to: %q", logLevel)
		log.DefaultLogger.SetLevel(*key)
	} else {
		log.Debugf("Using default log level: %q", logLevel)
	}
	return nil
}

// SetConfigOptionEC256PublicKey parses the config option incoming value and validates if it is a valid EC256PublicKey.
func SetConfigOptionEC256PublicKey(co *config.ConfigOption) error {
	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("not a valid EC256PublicKey: the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}

	publicKey := viper.GetString(co.Name)

	// We must remove the literal \n in case of the config options being set this way
	publicKey = strings.Replace(publicKey, `\n`, "\n", -1)

	_, err := utils.ParseStrongECPublicKey(publicKey)
	if err != nil {
		return fmt.Errorf("parsing EC256PublicKey: %w", err)
	}

	*key = publicKey
	return nil
}

// SetConfigOptionEC256PrivateKey parses the config option incoming value and validates if it is a valid EC256PrivateKey.
func SetConfigOptionEC256PrivateKey(co *config.ConfigOption) error {
	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("not a valid EC256PrivateKey: the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}

	privateKey := viper.GetString(co.Name)

	// We must remove the literal \n in case of the config options being set this way
	privateKey = strings.Replace(privateKey, `\n`, "\n", -1)

	_, err := utils.ParseStrongECPrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("parsing EC256PrivateKey: %w", err)
	}

	*key = privateKey
	return nil
}

func SetCorsAllowedOrigins(co *config.ConfigOption) error {
	corsAllowedOriginsOptions := viper.GetString(co.Name)

	if corsAllowedOriginsOptions == "" {
		return fmt.Errorf("cors allowed addresses cannot be empty")
	}

	corsAllowedOrigins := strings.Split(corsAllowedOriginsOptions, ",")

	// validate addresses
	for _, address := range corsAllowedOrigins {
		_, err := url.ParseRequestURI(address)
		if err != nil {
			return fmt.Errorf("error parsing cors addresses: %w", err)
		}
		if address == "*" {
			log.Warn(`The value "*" for the CORS Allowed Origins is too permissive and not recommended.`)
		}
	}

	key, ok := co.ConfigKey.(*[]string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string slice, but got a %T instead", co.ConfigKey)
	}
	*key = corsAllowedOrigins

	return nil
}

func SetConfigOptionURLString(co *config.ConfigOption) error {
	u := viper.GetString(co.Name)

	if u == "" {
		return fmt.Errorf("url cannot be empty")
	}

	_, err := url.ParseRequestURI(u)
	if err != nil {
		return fmt.Errorf("error parsing url: %w", err)
	}

	key, ok := co.ConfigKey.(*string)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a string, but got a %T instead", co.ConfigKey)
	}
	*key = u

	return nil
}

// SetConfigOptionDecimal parses the incoming value as an exact decimal. Money
// rates and thresholds travel as strings so binary floats never touch them.
func SetConfigOptionDecimal(co *config.ConfigOption) error {
	value := viper.GetString(co.Name)

	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("parsing %s as a decimal: %w", co.Name, err)
	}
	if parsed.IsNegative() {
		return fmt.Errorf("%s cannot be negative", co.Name)
	}

	key, ok := co.ConfigKey.(*decimal.Decimal)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a decimal, but got a %T instead", co.ConfigKey)
	}
	*key = parsed

	return nil
}

// SetConfigOptionDurationMinutes converts a flag given in whole minutes into a
// time.Duration.
func SetConfigOptionDurationMinutes(co *config.ConfigOption) error {
	minutes := viper.GetInt(co.Name)
	if minutes <= 0 {
		return fmt.Errorf("%s must be a positive number of minutes", co.Name)
	}

	key, ok := co.ConfigKey.(*time.Duration)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a duration, but got a %T instead", co.ConfigKey)
	}
	*key = time.Duration(minutes) * time.Minute

	return nil
}

// SetConfigOptionDuration parses a Go duration string such as "24h" or "45m".
func SetConfigOptionDuration(co *config.ConfigOption) error {
	value := viper.GetString(co.Name)

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parsing %s as a duration: %w", co.Name, err)
	}
	if parsed <= 0 {
		return fmt.Errorf("%s must be a positive duration", co.Name)
	}

	key, ok := co.ConfigKey.(*time.Duration)
	if !ok {
		return fmt.Errorf("the expected type for this config key is a duration, but got a %T instead", co.ConfigKey)
	}
	*key = parsed

	return nil
}

// SetConfigOptionPositiveInt64 parses rule counts that only make sense above
// zero.
func SetConfigOptionPositiveInt64(co *config.ConfigOption) error {
	value := viper.GetInt64(co.Name)
	if value <= 0 {
		return fmt.Errorf("%s must be positive", co.Name)
	}

	key, ok := co.ConfigKey.(*int64)
	if !ok {
		return fmt.Errorf("the expected type for this config key is an int64, but got a %T instead", co.ConfigKey)
	}
	*key = value

	return nil
}
