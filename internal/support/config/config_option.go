// Package config provides the ConfigOption machinery the CLI commands use to
// declare their flags once and have them resolved from command line,
// environment, or defaults (in that order) through viper.
package config

import (
	"fmt"
	"go/types"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fikir-app/fikir-backend/internal/support/log"
)

// ConfigOption declares a single configurable value: the flag that sets it,
// the environment variable it binds to, and the destination it is written to.
type ConfigOption struct {
	Name           string
	EnvVar         string
	Usage          string
	OptType        types.BasicKind
	FlagDefault    interface{}
	Required       bool
	ConfigKey      interface{}
	CustomSetValue func(*ConfigOption) error
}

// ConfigOptions is a group of ConfigOption entries, initialized and resolved
// together.
type ConfigOptions []*ConfigOption

// Init registers every option's flag on the command and binds it in viper.
func (cos ConfigOptions) Init(cmd *cobra.Command) error {
	for _, co := range cos {
		if err := co.Init(cmd); err != nil {
			return fmt.Errorf("initializing config option %q: %w", co.Name, err)
		}
	}
	return nil
}

// Require exits the program with a usage message when a required option has
// no value from any source.
func (cos ConfigOptions) Require() {
	for _, co := range cos {
		co.Require()
	}
}

// SetValues writes every option's resolved value into its ConfigKey.
func (cos ConfigOptions) SetValues() error {
	for _, co := range cos {
		if err := co.SetValue(); err != nil {
			return fmt.Errorf("setting value of config option %q: %w", co.Name, err)
		}
	}
	return nil
}

func (co *ConfigOption) Init(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()

	switch co.OptType {
	case types.String:
		def, _ := co.FlagDefault.(string)
		flags.String(co.Name, def, co.Usage)
	case types.Int:
		def, _ := co.FlagDefault.(int)
		flags.Int(co.Name, def, co.Usage)
	case types.Bool:
		def, _ := co.FlagDefault.(bool)
		flags.Bool(co.Name, def, co.Usage)
	case types.Float64:
		def, _ := co.FlagDefault.(float64)
		flags.Float64(co.Name, def, co.Usage)
	default:
		return fmt.Errorf("unsupported option type %v", co.OptType)
	}

	if co.EnvVar == "" {
		co.EnvVar = strings.ToUpper(strings.ReplaceAll(co.Name, "-", "_"))
	}
	if err := viper.BindEnv(co.Name, co.EnvVar); err != nil {
		return fmt.Errorf("binding env var %q: %w", co.EnvVar, err)
	}

	return viper.BindPFlag(co.Name, flags.Lookup(co.Name))
}

func (co *ConfigOption) Require() {
	if co.Required && viper.GetString(co.Name) == "" {
		log.Fatalf("Invalid config: %s is blank. Specify --%s on the command line or set the %s environment variable.", co.Name, co.Name, co.EnvVar)
	}
}

func (co *ConfigOption) SetValue() error {
	if co.CustomSetValue != nil {
		return co.CustomSetValue(co)
	}

	switch key := co.ConfigKey.(type) {
	case *string:
		*key = viper.GetString(co.Name)
	case *int:
		*key = viper.GetInt(co.Name)
	case *bool:
		*key = viper.GetBool(co.Name)
	case *float64:
		*key = viper.GetFloat64(co.Name)
	default:
		return fmt.Errorf("config key for %q has unsupported type %T", co.Name, co.ConfigKey)
	}

	return nil
}

// IsExplicitlySet reports whether the option was provided by flag or
// environment rather than falling back to its default.
func IsExplicitlySet(co *ConfigOption) bool {
	return viper.IsSet(co.Name)
}
