//go:build property

package config

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestConfigurationProperties tests validation bounds
func TestConfigurationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("parallelism is accepted only within bounds", prop.ForAll(
		func(parallelism int) bool {
			config := Defaults()
			config.Entry = []string{"index.js"}
			config.Parallelism = parallelism

			valid := parallelism >= 1 && parallelism <= MaxParallelism
			return (config.Validate() == nil) == valid
		},
		gen.IntRange(-10, 100),
	))

	properties.Property("defaults fill only empty fields", prop.ForAll(
		func(path string) bool {
			config := &Config{Output: OutputConfig{Path: path}}
			config.ApplyDefaults()

			if path == "" {
				return config.Output.Path == DefaultOutputPath
			}
			return config.Output.Path == path
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
