// Package config provides configuration management for minipack builds
// using Viper for loading from files, environment variables and flags.
//
// A configuration names the entry patterns to discover, the rules that map
// units to transform stages, the plugins to apply and where outputs are
// written. Environment variables use the MINIPACK_ prefix.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"

	DefaultOutputPath     = "dist"
	DefaultOutputFilename = "[path][name].[ext]"
	DefaultParallelism    = 4
	MaxParallelism        = 64
)

type Config struct {
	Context     string         `yaml:"context" mapstructure:"context"`
	Mode        string         `yaml:"mode" mapstructure:"mode"`
	Entry       []string       `yaml:"entry" mapstructure:"entry"`
	Output      OutputConfig   `yaml:"output" mapstructure:"output"`
	Rules       []RuleConfig   `yaml:"rules" mapstructure:"rules"`
	Plugins     []PluginConfig `yaml:"plugins" mapstructure:"plugins"`
	Parallelism int            `yaml:"parallelism" mapstructure:"parallelism"`
	Log         LogConfig      `yaml:"log" mapstructure:"log"`
}

type OutputConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	Filename string `yaml:"filename" mapstructure:"filename"`
}

// RuleConfig applies its loaders to every unit whose identifier matches Test.
type RuleConfig struct {
	Test string      `yaml:"test" mapstructure:"test"`
	Use  []UseConfig `yaml:"use" mapstructure:"use"`
	// Filename overrides the output filename template for matching units.
	Filename string `yaml:"filename,omitempty" mapstructure:"filename"`
}

type UseConfig struct {
	Loader  string                 `yaml:"loader" mapstructure:"loader"`
	Options map[string]interface{} `yaml:"options,omitempty" mapstructure:"options"`
}

type PluginConfig struct {
	Name    string                 `yaml:"name" mapstructure:"name"`
	Options map[string]interface{} `yaml:"options,omitempty" mapstructure:"options"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Defaults returns a configuration with every optional field set.
func Defaults() *Config {
	return &Config{
		Context: ".",
		Mode:    ModeDevelopment,
		Output: OutputConfig{
			Path:     DefaultOutputPath,
			Filename: DefaultOutputFilename,
		},
		Parallelism: DefaultParallelism,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom builds and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config := Defaults()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Viper folds map keys to lower case and loader options are case
	// sensitive, so rules and plugins come from the raw document.
	if file := v.ConfigFileUsed(); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		raw, err := decode(data)
		if err != nil {
			return nil, err
		}
		config.Rules = raw.Rules
		config.Plugins = raw.Plugins
	}

	// Handle entry set via environment as a single string
	if v.IsSet("entry") && len(config.Entry) == 0 {
		config.Entry = v.GetStringSlice("entry")
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Parse decodes and validates a yaml document.
func Parse(data []byte) (*Config, error) {
	config, err := decode(data)
	if err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func decode(data []byte) (*Config, error) {
	config := Defaults()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

// ApplyDefaults fills empty optional fields.
func (c *Config) ApplyDefaults() {
	defaults := Defaults()

	if c.Context == "" {
		c.Context = defaults.Context
	}
	if c.Mode == "" {
		c.Mode = defaults.Mode
	}
	if c.Output.Path == "" {
		c.Output.Path = defaults.Output.Path
	}
	if c.Output.Filename == "" {
		c.Output.Filename = defaults.Output.Filename
	}
	if c.Parallelism == 0 {
		c.Parallelism = defaults.Parallelism
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// Marshal renders the configuration as yaml.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Production reports whether the build runs in production mode.
func (c *Config) Production() bool {
	return c.Mode == ModeProduction
}
