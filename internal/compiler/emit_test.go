package compiler

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/minipack/internal/hooks"
)

func emitCompiler(t *testing.T, out afero.Fs) *Compiler {
	t.Helper()
	cfg := testConfig()
	cfg.Output.Path = "dist"

	c, err := New(cfg, WithUnitSource(StaticSource{}), WithOutputFS(out))
	require.NoError(t, err)
	require.NoError(t, c.Hooks().Build.Tap("assets", func(comp *Compilation) error {
		if err := comp.EmitAsset("main.js", RawAsset("console.log(1)")); err != nil {
			return err
		}
		return comp.EmitAsset("css/site.css", RawAsset("body{}"))
	}))
	return c
}

func TestCompiler_Emit(t *testing.T) {
	out := afero.NewMemMapFs()
	c := emitCompiler(t, out)
	var before []bool
	require.NoError(t, c.Hooks().BeforeEmit.Tap("check-dir", func(*Result) error {
		exists, err := afero.Exists(out, "dist/main.js")
		before = append(before, exists)
		return err
	}))

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	files, err := c.Emit(context.Background(), result)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, []bool{false}, before, "beforeEmit fires once before any write")
	assert.Equal(t, "css/site.css", files[0].Name)

	content, err := afero.ReadFile(out, "dist/main.js")
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(content))

	content, err = afero.ReadFile(out, "dist/css/site.css")
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(content))

	assert.Equal(t, int64(2), c.Metrics().GetSnapshot().AssetsEmitted)
}

func TestCompiler_EmitSkippedOnBail(t *testing.T) {
	out := afero.NewMemMapFs()
	c := emitCompiler(t, out)
	require.NoError(t, c.Hooks().ShouldEmit.Tap("dry-run", func(*Result) error {
		return hooks.ErrBail
	}))
	require.NoError(t, c.Hooks().BeforeEmit.Tap("unreached", func(*Result) error {
		t.Error("beforeEmit fired after a bail")
		return nil
	}))

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	files, err := c.Emit(context.Background(), result)
	require.NoError(t, err)
	assert.Empty(t, files)

	exists, err := afero.Exists(out, "dist/main.js")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCompiler_EmitNilResult(t *testing.T) {
	c := emitCompiler(t, afero.NewMemMapFs())

	_, err := c.Emit(context.Background(), nil)
	assert.Error(t, err)
}

func TestBuildMetrics(t *testing.T) {
	metrics := NewBuildMetrics()

	metrics.RecordRun(2_000_000_000, nil)
	metrics.RecordRun(0, assert.AnError)
	metrics.RecordUnit(nil)
	metrics.RecordUnit(nil)
	metrics.RecordUnit(assert.AnError)
	metrics.RecordEmit(3)

	snapshot := metrics.GetSnapshot()
	assert.Equal(t, int64(2), snapshot.TotalRuns)
	assert.Equal(t, int64(1), snapshot.SuccessfulRuns)
	assert.Equal(t, int64(1), snapshot.FailedRuns)

	expected := `
# HELP minipack_runs_total Completed build runs by outcome.
# TYPE minipack_runs_total counter
minipack_runs_total{result="failed"} 1
minipack_runs_total{result="ok"} 1
# HELP minipack_units_total Transformed units by outcome.
# TYPE minipack_units_total counter
minipack_units_total{result="failed"} 1
minipack_units_total{result="transformed"} 2
# HELP minipack_assets_emitted_total Assets written to the output filesystem.
# TYPE minipack_assets_emitted_total counter
minipack_assets_emitted_total 3
# HELP minipack_run_duration_seconds Run duration statistics.
# TYPE minipack_run_duration_seconds gauge
minipack_run_duration_seconds{stat="average"} 1
minipack_run_duration_seconds{stat="last"} 0
`
	require.NoError(t, testutil.CollectAndCompare(metrics, strings.NewReader(expected)))
	assert.Equal(t, 7, testutil.CollectAndCount(metrics))
}
