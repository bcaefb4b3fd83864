package config

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/conneroisu/minipack/internal/errors"
	"github.com/conneroisu/minipack/internal/logging"
)

// Validate reports every invalid field as a configuration error.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Entry) == 0 {
		errs = append(errs, errors.NewConfigError("entry", "at least one entry pattern is required"))
	}
	for i, entry := range c.Entry {
		if strings.TrimSpace(entry) == "" {
			errs = append(errs, errors.NewConfigError(fmt.Sprintf("entry[%d]", i), "entry pattern is empty"))
		}
	}

	switch c.Mode {
	case ModeDevelopment, ModeProduction:
	default:
		errs = append(errs, errors.NewConfigError("mode", fmt.Sprintf("unknown mode %q", c.Mode)))
	}

	if c.Output.Path == "" {
		errs = append(errs, errors.NewConfigError("output.path", "output path is required"))
	}
	if c.Output.Filename == "" {
		errs = append(errs, errors.NewConfigError("output.filename", "filename template is required"))
	}

	if c.Parallelism < 1 || c.Parallelism > MaxParallelism {
		errs = append(errs, errors.NewConfigError("parallelism",
			fmt.Sprintf("parallelism must be between 1 and %d, got %d", MaxParallelism, c.Parallelism)))
	}

	for i, rule := range c.Rules {
		errs = append(errs, validateRule(fmt.Sprintf("rules[%d]", i), rule)...)
	}

	for i, plugin := range c.Plugins {
		if strings.TrimSpace(plugin.Name) == "" {
			errs = append(errs, errors.NewConfigError(fmt.Sprintf("plugins[%d].name", i), "plugin name is required"))
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, errors.NewConfigError("log.level", err.Error()))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, errors.NewConfigError("log.format", fmt.Sprintf("unknown log format %q", c.Log.Format)))
	}

	return stderrors.Join(errs...)
}

func validateRule(field string, rule RuleConfig) []error {
	var errs []error

	if rule.Test == "" {
		errs = append(errs, errors.NewConfigError(field+".test", "test pattern is required"))
	} else if _, err := regexp.Compile(rule.Test); err != nil {
		errs = append(errs, errors.NewConfigError(field+".test", fmt.Sprintf("invalid pattern: %v", err)))
	}

	if len(rule.Use) == 0 {
		errs = append(errs, errors.NewConfigError(field+".use", "at least one loader is required"))
	}
	for j, use := range rule.Use {
		if strings.TrimSpace(use.Loader) == "" {
			errs = append(errs, errors.NewConfigError(fmt.Sprintf("%s.use[%d].loader", field, j), "loader name is required"))
		}
	}
	return errs
}

// Pattern compiles the rule test expression.
func (r RuleConfig) Pattern() (*regexp.Regexp, error) {
	pattern, err := regexp.Compile(r.Test)
	if err != nil {
		return nil, errors.NewConfigError("rules.test", fmt.Sprintf("invalid pattern %q: %v", r.Test, err))
	}
	return pattern, nil
}
