package loader

import (
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/conneroisu/minipack/internal/errors"
)

// MustSchema parses a JSON schema document and panics on failure. It is meant
// for package-level loader definitions.
func MustSchema(doc string) *jsonschema.Schema {
	var schema jsonschema.Schema
	if err := json.Unmarshal([]byte(doc), &schema); err != nil {
		panic(fmt.Sprintf("loader: invalid schema: %v", err))
	}
	return &schema
}

// ValidateOptions normalizes options to JSON values and validates them
// against the loader schema.
func ValidateOptions(l *Loader, options map[string]any) (map[string]any, error) {
	normalized, err := normalizeOptions(options)
	if err != nil {
		return nil, errors.NewConfigError(l.Name, "options are not JSON encodable").WithContext("cause", err.Error())
	}
	if l.Schema == nil {
		return normalized, nil
	}

	l.resolveOnce.Do(func() {
		l.resolved, l.resolveErr = l.Schema.Resolve(&jsonschema.ResolveOptions{})
	})
	if l.resolveErr != nil {
		cfgErr := errors.NewConfigError(l.Name, "invalid options schema")
		cfgErr.Cause = l.resolveErr
		return nil, cfgErr
	}

	if err := l.resolved.Validate(normalized); err != nil {
		cfgErr := errors.NewConfigError(l.Name, "options do not match schema")
		cfgErr.Cause = err
		return nil, cfgErr
	}
	return normalized, nil
}

// normalizeOptions round-trips options through JSON so yaml integers and
// nested maps reach the validator as plain JSON values.
func normalizeOptions(options map[string]any) (map[string]any, error) {
	if len(options) == 0 {
		return map[string]any{}, nil
	}

	data, err := json.Marshal(options)
	if err != nil {
		return nil, err
	}

	var normalized map[string]any
	if err := json.Unmarshal(data, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// DecodeOptions decodes the stage options into target using json tags.
func DecodeOptions(options map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}
