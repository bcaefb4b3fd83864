// Package cmd provides the minipack command-line interface.
//
// Configuration is read from several sources, highest priority first:
//
//  1. Command-line flags (--output, --mode, ...)
//  2. Environment variables following MINIPACK_<SECTION>_<OPTION>
//  3. The configuration file: --config, then MINIPACK_CONFIG_FILE, then
//     minipack.yml in the working directory
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/minipack/internal/config"
	"github.com/conneroisu/minipack/internal/logging"
)

const envPrefix = "MINIPACK"

// rootOptions is the state shared by every subcommand.
type rootOptions struct {
	viper   *viper.Viper
	cfgFile string
}

// NewRootCommand builds the minipack command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{viper: viper.New()}

	cmd := &cobra.Command{
		Use:   "minipack",
		Short: "A small build engine with loaders, hooks and plugins",
		Long: `minipack transforms the units matched by its entry patterns through
configurable loader chains, lets plugins hook into every stage of the build and
writes the resulting assets to the output directory.

Quick Start:
  minipack build                  Build using minipack.yml
  minipack list                   List built-in loaders and plugins
  minipack config                 Print the effective configuration`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.initConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is minipack.yml, can also use MINIPACK_CONFIG_FILE env var)")
	cmd.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	if err := bindFlags(opts.viper, cmd.PersistentFlags(), map[string]string{"log-level": "log.level"}); err != nil {
		panic(err)
	}

	cmd.AddCommand(
		newBuildCommand(opts),
		newListCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// initConfig locates and reads the configuration file. A missing default
// file is not an error; a missing explicit file is.
func (o *rootOptions) initConfig(cmd *cobra.Command) error {
	v := o.viper

	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	} else if envConfigFile := os.Getenv(envPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		v.SetConfigFile(envConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("minipack")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", v.ConfigFileUsed())
	return nil
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.LoadFrom(o.viper)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	}), nil
}
