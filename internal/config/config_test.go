package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/minipack/internal/errors"
)

const sampleConfig = `
context: ./site
mode: production
entry:
  - "src/**/*.js"
  - "src/*.css"
output:
  path: build
rules:
  - test: "\\.js$"
    use:
      - loader: clean-log-loader
      - loader: banner-loader
        options:
          author: ada
  - test: "\\.png$"
    filename: "assets/[name].[ext]"
    use:
      - loader: file-loader
        options:
          esModule: true
plugins:
  - name: analyze-plugin
  - name: banner-plugin
    options:
      author: ada
      year: 2024
parallelism: 8
log:
  level: debug
  format: json
`

func TestParse(t *testing.T) {
	config, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	want := &Config{
		Context: "./site",
		Mode:    ModeProduction,
		Entry:   []string{"src/**/*.js", "src/*.css"},
		Output:  OutputConfig{Path: "build", Filename: DefaultOutputFilename},
		Rules: []RuleConfig{
			{
				Test: `\.js$`,
				Use: []UseConfig{
					{Loader: "clean-log-loader"},
					{Loader: "banner-loader", Options: map[string]interface{}{"author": "ada"}},
				},
			},
			{
				Test:     `\.png$`,
				Filename: "assets/[name].[ext]",
				Use: []UseConfig{
					{Loader: "file-loader", Options: map[string]interface{}{"esModule": true}},
				},
			},
		},
		Plugins: []PluginConfig{
			{Name: "analyze-plugin"},
			{Name: "banner-plugin", Options: map[string]interface{}{"author": "ada", "year": 2024}},
		},
		Parallelism: 8,
		Log:         LogConfig{Level: "debug", Format: "json"},
	}

	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, config.Production())
}

func TestParse_AppliesDefaults(t *testing.T) {
	config, err := Parse([]byte("entry: [index.js]\n"))
	require.NoError(t, err)

	want := Defaults()
	want.Entry = []string{"index.js"}

	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("entry: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:   "missing entry",
			mutate: func(c *Config) { c.Entry = nil },
			fields: []string{"entry"},
		},
		{
			name:   "unknown mode",
			mutate: func(c *Config) { c.Mode = "staging" },
			fields: []string{"mode"},
		},
		{
			name:   "parallelism too high",
			mutate: func(c *Config) { c.Parallelism = 65 },
			fields: []string{"parallelism"},
		},
		{
			name: "bad rule",
			mutate: func(c *Config) {
				c.Rules = []RuleConfig{{Test: "([", Use: []UseConfig{{Loader: ""}}}}
			},
			fields: []string{"rules[0].test", "rules[0].use[0].loader"},
		},
		{
			name:   "rule without loaders",
			mutate: func(c *Config) { c.Rules = []RuleConfig{{Test: "x"}} },
			fields: []string{"rules[0].use"},
		},
		{
			name:   "unnamed plugin",
			mutate: func(c *Config) { c.Plugins = []PluginConfig{{}} },
			fields: []string{"plugins[0].name"},
		},
		{
			name:   "bad log settings",
			mutate: func(c *Config) { c.Log = LogConfig{Level: "loud", Format: "xml"} },
			fields: []string{"log.level", "log.format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Defaults()
			config.Entry = []string{"index.js"}
			tt.mutate(config)

			err := config.Validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindConfiguration))
			for _, field := range tt.fields {
				assert.Contains(t, err.Error(), field)
			}
		})
	}
}

func TestRuleConfig_Pattern(t *testing.T) {
	pattern, err := RuleConfig{Test: `\.css$`}.Pattern()
	require.NoError(t, err)
	assert.True(t, pattern.MatchString("src/app.css"))

	_, err = RuleConfig{Test: "("}.Pattern()
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
}

func TestLoadFrom_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "minipack.yml")
	require.NoError(t, os.WriteFile(file, []byte(sampleConfig), 0o600))

	t.Setenv("MINIPACK_MODE", "development")
	t.Setenv("MINIPACK_OUTPUT_PATH", "out")

	v := viper.New()
	v.SetConfigFile(file)
	v.SetEnvPrefix("MINIPACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	require.NoError(t, v.ReadInConfig())

	config, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, ModeDevelopment, config.Mode)
	assert.Equal(t, "out", config.Output.Path)
	assert.Equal(t, 8, config.Parallelism)
	require.Len(t, config.Rules, 2)
	assert.Equal(t, map[string]interface{}{"esModule": true}, config.Rules[1].Use[0].Options)
}

func TestLoadFrom_SetValues(t *testing.T) {
	v := viper.New()
	v.Set("entry", []string{"a.js"})
	v.Set("parallelism", 2)

	config, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.js"}, config.Entry)
	assert.Equal(t, 2, config.Parallelism)
	assert.Equal(t, DefaultOutputFilename, config.Output.Filename)
}

func TestLoadFrom_Invalid(t *testing.T) {
	v := viper.New()
	v.Set("parallelism", "many")

	_, err := LoadFrom(v)
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	config, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	data, err := config.Marshal()
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)

	if diff := cmp.Diff(config, again); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}
}
