// Package cli provides the Cobra and Viper helpers shared by dbmeta commands.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bkdbm/dbmeta/src/common/logs"
	"github.com/bkdbm/dbmeta/src/common/paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigOptions controls where configuration is looked up
type ConfigOptions struct {
	// ConfigFile is an explicit path from --config
	ConfigFile string
	// ConfigName is the file name without extension
	ConfigName string
	ConfigType string
	// EnvPrefix maps keys to env vars, e.g. DBMETA -> DBMETA_DATABASE_URL
	EnvPrefix   string
	SearchPaths []string
}

// DefaultConfigOptions returns the standard search locations
func DefaultConfigOptions(configName, envPrefix string) ConfigOptions {
	return ConfigOptions{
		ConfigName: configName,
		ConfigType: "yaml",
		EnvPrefix:  envPrefix,
		SearchPaths: []string{
			"/etc/dbmeta",
			"~/.dbmeta",
			".",
		},
	}
}

// InitConfig loads the config file (if any) and binds environment variables.
// A missing config file is not an error.
func InitConfig(opts ConfigOptions) error {
	if opts.ConfigFile != "" {
		viper.SetConfigFile(paths.Expand(opts.ConfigFile))
	} else {
		viper.SetConfigName(opts.ConfigName)
		viper.SetConfigType(opts.ConfigType)
		for _, p := range opts.SearchPaths {
			viper.AddConfigPath(paths.Expand(p))
		}
	}

	if opts.EnvPrefix != "" {
		viper.SetEnvPrefix(opts.EnvPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// RegisterLogFlags adds --log-output and --log-level as persistent flags
func RegisterLogFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("log-output", "auto", "Log output destination (auto, stdout, stderr, journald)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	_ = viper.BindPFlag("log.output", cmd.PersistentFlags().Lookup("log-output"))
	_ = viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))

	viper.SetDefault("log.output", "auto")
	viper.SetDefault("log.level", "info")
}

// RegisterConfigFlag adds --config
func RegisterConfigFlag(cmd *cobra.Command, cfgFile *string, defaultPath string) {
	cmd.PersistentFlags().StringVar(cfgFile, "config", "", fmt.Sprintf("config file (default: %s)", defaultPath))
}

// InitLogger builds a logger from the log.* keys. Call after InitConfig.
func InitLogger(prefix string) *logs.Logger {
	return logs.New(logs.Config{
		Output: logs.LogOutput(viper.GetString("log.output")),
		Level:  viper.GetString("log.level"),
		Prefix: prefix,
	})
}

// BindPersistentFlag binds a persistent flag to a Viper key
func BindPersistentFlag(cmd *cobra.Command, flagName, viperKey string) error {
	return viper.BindPFlag(viperKey, cmd.PersistentFlags().Lookup(flagName))
}
