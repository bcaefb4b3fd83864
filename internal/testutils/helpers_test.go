package testutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/minipack/internal/registry"
)

func TestMemFS_ReadTree(t *testing.T) {
	files := map[string]string{
		"index.js":        "a",
		"src/lib/deep.js": "b",
	}
	fs := MemFS(t, "site", files)

	assert.Equal(t, files, ReadTree(t, fs, "site"))
}

func TestTestConfig(t *testing.T) {
	assert.Equal(t, []string{"**/*"}, TestConfig().Entry)
	assert.Equal(t, []string{"*.js"}, TestConfig("*.js").Entry)
	assert.NoError(t, TestConfig().Validate())
}

func TestDefineValue(t *testing.T) {
	mods := registry.New()
	DefineValue(t, mods, "answer", 42)

	v, err := registry.Export[int](mods, "answer", registry.DefaultExport)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 3, "a": 1, "b": 2}))
}
