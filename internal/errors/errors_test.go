package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	testCases := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name:     "module not found",
			err:      NewModuleNotFound("./src/a.js"),
			contains: []string{"[module_not_found]", "./src/a.js"},
		},
		{
			name:     "transform carries stage",
			err:      NewTransformError(2, "banner-loader", fmt.Errorf("boom")),
			contains: []string{"[transform]", "stage:2", "listener:banner-loader", "boom"},
		},
		{
			name:     "hook carries listener",
			err:      NewHookError("finalize", "BannerPlugin", fmt.Errorf("bad asset")),
			contains: []string{"[hook]", "finalize", "listener:BannerPlugin", "bad asset"},
		},
		{
			name:     "late registration",
			err:      NewLateRegistration("setup", "Late"),
			contains: []string{"[late_registration]", "setup", "already fired"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := tc.err.Error()
			for _, want := range tc.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestErrorNoIndexOmitted(t *testing.T) {
	err := NewConfigError("rules[0].test", "invalid regexp")
	assert.NotContains(t, err.Error(), "stage:")
	assert.Equal(t, NoIndex, err.Index)
}

func TestErrorUnwrapAndIs(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewHookError("finalize", "Writer", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, &Error{Kind: KindHook}))
	assert.False(t, errors.Is(err, &Error{Kind: KindTransform}))
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := NewTransformError(0, "uppercase", fmt.Errorf("nope"))
	outer := NewHookError("build", "compiler", inner)
	wrapped := fmt.Errorf("run failed: %w", outer)

	assert.True(t, IsKind(wrapped, KindHook))
	assert.True(t, IsKind(wrapped, KindTransform))
	assert.False(t, IsKind(wrapped, KindConfiguration))
	assert.Equal(t, KindHook, KindOf(wrapped))
}

func TestIsKindThroughJoin(t *testing.T) {
	joined := errors.Join(
		NewTransformError(1, "a", fmt.Errorf("x")),
		NewProtocolViolation("b", "callback invoked twice"),
	)

	assert.True(t, IsKind(joined, KindTransform))
	assert.True(t, IsKind(joined, KindProtocolViolation))
	assert.False(t, IsKind(nil, KindTransform))
}

func TestStageIndex(t *testing.T) {
	idx, ok := StageIndex(fmt.Errorf("wrap: %w", NewTransformError(3, "l", nil)))
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = StageIndex(NewModuleNotFound("x"))
	assert.False(t, ok)
}

func TestWithContext(t *testing.T) {
	err := NewConfigError("options", "schema mismatch").
		WithContext("loader", "banner-loader").
		WithContext("field", "author")

	assert.Equal(t, "banner-loader", err.Context["loader"])
	assert.Equal(t, "author", err.Context["field"])
}
