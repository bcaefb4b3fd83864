package loader

import (
	"testing"

	"github.com/conneroisu/minipack/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bannerSchema = MustSchema(`{
	"type": "object",
	"properties": {
		"author": {"type": "string"},
		"width": {"type": "integer", "minimum": 1}
	},
	"required": ["author"]
}`)

func schemaLoader() *Loader {
	return &Loader{
		Name:   "schema",
		Schema: bannerSchema,
		Normal: func(_ *Context, in Payload) (*Payload, error) { return &in, nil },
	}
}

func TestNewStage_ValidatesOptions(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		wantErr bool
	}{
		{name: "valid", options: map[string]any{"author": "ada"}},
		{name: "yaml integer", options: map[string]any{"author": "ada", "width": 80}},
		{name: "missing required", options: map[string]any{}, wantErr: true},
		{name: "nil options", options: nil, wantErr: true},
		{name: "wrong type", options: map[string]any{"author": 7}, wantErr: true},
		{name: "below minimum", options: map[string]any{"author": "ada", "width": 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, err := NewStage(schemaLoader(), tt.options)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsKind(err, errors.KindConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ada", stage.Options["author"])
		})
	}
}

func TestNewStage_RejectsIncompleteLoaders(t *testing.T) {
	_, err := NewStage(nil, nil)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))

	_, err = NewStage(&Loader{Name: "x"}, nil)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))

	_, err = NewStage(&Loader{Normal: func(*Context, Payload) (*Payload, error) { return nil, nil }}, nil)
	assert.True(t, errors.IsKind(err, errors.KindConfiguration))
}

func TestNewStage_NoSchemaAcceptsAnything(t *testing.T) {
	l := &Loader{Name: "free", Normal: func(_ *Context, in Payload) (*Payload, error) { return &in, nil }}

	stage, err := NewStage(l, map[string]any{"anything": []any{1, "two"}})
	require.NoError(t, err)
	assert.Equal(t, []any{float64(1), "two"}, stage.Options["anything"])
}

func TestDecodeOptions(t *testing.T) {
	var target struct {
		Author string `json:"author"`
		Width  int    `json:"width"`
		Esm    bool   `json:"esModule"`
	}

	err := DecodeOptions(map[string]any{"author": "ada", "width": float64(80), "esModule": "true"}, &target)
	require.NoError(t, err)

	assert.Equal(t, "ada", target.Author)
	assert.Equal(t, 80, target.Width)
	assert.True(t, target.Esm)
}

func TestMustSchema_PanicsOnInvalidDocument(t *testing.T) {
	assert.Panics(t, func() { MustSchema("{not json") })
}
