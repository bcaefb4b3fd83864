package hooks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/conneroisu/minipack/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trace records events from concurrently running listeners.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (tr *trace) add(event string) {
	tr.mu.Lock()
	tr.events = append(tr.events, event)
	tr.mu.Unlock()
}

func (tr *trace) list() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.events...)
}

func TestParseDiscipline(t *testing.T) {
	tests := []struct {
		input   string
		want    Discipline
		wantErr bool
	}{
		{input: "sync", want: Sync},
		{input: "Async-Series", want: AsyncSeries},
		{input: "parallel", want: AsyncParallel},
		{input: "eventually", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDiscipline(tt.input)
			if tt.wantErr {
				assert.True(t, errors.IsKind(err, errors.KindConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHook_SyncRunsInOrder(t *testing.T) {
	hook := New[*trace]("setup", Sync)
	for _, name := range []string{"a", "b", "c"} {
		name := name
		require.NoError(t, hook.Tap(name, func(tr *trace) error {
			tr.add(name)
			return nil
		}))
	}

	tr := &trace{}
	require.NoError(t, hook.Call(context.Background(), tr))

	assert.Equal(t, []string{"a", "b", "c"}, tr.list())
	assert.Equal(t, []string{"a", "b", "c"}, hook.Listeners())
	assert.True(t, hook.Fired())
}

func TestHook_SyncErrorAborts(t *testing.T) {
	hook := New[*trace]("setup", Sync)
	require.NoError(t, hook.Tap("a", func(tr *trace) error { tr.add("a"); return nil }))
	require.NoError(t, hook.Tap("b", func(*trace) error { return fmt.Errorf("broken") }))
	require.NoError(t, hook.Tap("c", func(tr *trace) error { tr.add("c"); return nil }))

	tr := &trace{}
	err := hook.Call(context.Background(), tr)
	require.Error(t, err)

	var hookErr *errors.Error
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, errors.KindHook, hookErr.Kind)
	assert.Equal(t, "setup", hookErr.Subject)
	assert.Equal(t, "b", hookErr.Listener)
	assert.Equal(t, []string{"a"}, tr.list())
}

func TestHook_SyncRejectsAsyncListeners(t *testing.T) {
	hook := New[int]("setup", Sync)

	err := hook.TapAsync("async", func(int, Done) {})
	assert.True(t, errors.IsKind(err, errors.KindDisciplineMismatch))

	err = hook.TapPromise("promise", func(int) <-chan error { return nil })
	assert.True(t, errors.IsKind(err, errors.KindDisciplineMismatch))

	assert.Equal(t, 0, hook.Len())
}

func TestHook_LateRegistration(t *testing.T) {
	for _, discipline := range []Discipline{Sync, AsyncSeries, AsyncParallel} {
		t.Run(discipline.String(), func(t *testing.T) {
			hook := New[int]("build", discipline)
			require.NoError(t, hook.Call(context.Background(), 1))

			err := hook.Tap("late", func(int) error { return nil })
			assert.True(t, errors.IsKind(err, errors.KindLateRegistration))
			assert.Equal(t, 0, hook.Len())
		})
	}
}

func TestHook_NilListener(t *testing.T) {
	hook := New[int]("build", AsyncSeries)

	assert.Error(t, hook.Tap("x", nil))
	assert.Error(t, hook.TapAsync("x", nil))
	assert.Error(t, hook.TapPromise("x", nil))
}

func TestHook_AsyncSeriesCompletesInRegistrationOrder(t *testing.T) {
	hook := New[*trace]("build", AsyncSeries)
	delays := []time.Duration{30 * time.Millisecond, 10 * time.Millisecond, 0}

	for i, delay := range delays {
		name := fmt.Sprintf("l%d", i)
		delay := delay
		require.NoError(t, hook.TapAsync(name, func(tr *trace, done Done) {
			tr.add("start " + name)
			go func() {
				time.Sleep(delay)
				tr.add("end " + name)
				_ = done(nil)
			}()
		}))
	}

	tr := &trace{}
	require.NoError(t, hook.Call(context.Background(), tr))

	assert.Equal(t, []string{
		"start l0", "end l0",
		"start l1", "end l1",
		"start l2", "end l2",
	}, tr.list())
}

func TestHook_AsyncSeriesAbortsOnSecondListener(t *testing.T) {
	hook := New[*trace]("build", AsyncSeries)

	require.NoError(t, hook.TapAsync("one", func(tr *trace, done Done) {
		tr.add("one")
		_ = done(nil)
	}))
	require.NoError(t, hook.TapPromise("two", func(tr *trace) <-chan error {
		tr.add("two")
		ch := make(chan error, 1)
		go func() { ch <- fmt.Errorf("listener two failed") }()
		return ch
	}))
	for _, name := range []string{"three", "four"} {
		name := name
		require.NoError(t, hook.Tap(name, func(tr *trace) error {
			tr.add(name)
			return nil
		}))
	}

	tr := &trace{}
	err := hook.Call(context.Background(), tr)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "listener two failed")
	var hookErr *errors.Error
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, "two", hookErr.Listener)
	assert.Equal(t, []string{"one", "two"}, tr.list())
}

func TestHook_AsyncParallelWaitsForSlowest(t *testing.T) {
	hook := New[*trace]("build", AsyncParallel)
	delays := []time.Duration{60 * time.Millisecond, 40 * time.Millisecond, 20 * time.Millisecond}

	for i, delay := range delays {
		name := fmt.Sprintf("l%d", i)
		delay := delay
		require.NoError(t, hook.TapAsync(name, func(tr *trace, done Done) {
			go func() {
				time.Sleep(delay)
				tr.add(name)
				_ = done(nil)
			}()
		}))
	}

	tr := &trace{}
	start := time.Now()
	require.NoError(t, hook.Call(context.Background(), tr))

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.ElementsMatch(t, []string{"l0", "l1", "l2"}, tr.list())
}

func TestHook_AsyncParallelErrorWaitsForOthers(t *testing.T) {
	hook := New[*trace]("build", AsyncParallel)

	require.NoError(t, hook.Tap("fails", func(*trace) error {
		return fmt.Errorf("fast failure")
	}))
	require.NoError(t, hook.TapPromise("slow", func(tr *trace) <-chan error {
		ch := make(chan error)
		go func() {
			time.Sleep(30 * time.Millisecond)
			tr.add("slow finished")
			close(ch)
		}()
		return ch
	}))

	tr := &trace{}
	err := hook.Call(context.Background(), tr)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "fast failure")
	assert.Equal(t, []string{"slow finished"}, tr.list())
}

func TestHook_DoneTwiceIsProtocolViolation(t *testing.T) {
	hook := New[int]("build", AsyncSeries)
	var second error

	require.NoError(t, hook.TapAsync("twice", func(_ int, done Done) {
		_ = done(nil)
		second = done(nil)
	}))

	err := hook.Call(context.Background(), 0)
	require.Error(t, err)

	assert.True(t, errors.IsKind(err, errors.KindProtocolViolation))
	assert.True(t, errors.IsKind(second, errors.KindProtocolViolation))
}

func TestHook_PromiseNilChannelCompletes(t *testing.T) {
	hook := New[int]("build", AsyncSeries)
	require.NoError(t, hook.TapPromise("nil", func(int) <-chan error { return nil }))

	assert.NoError(t, hook.Call(context.Background(), 0))
}

func TestHook_CallBail(t *testing.T) {
	hook := New[*trace]("shouldEmit", Sync)
	require.NoError(t, hook.Tap("a", func(tr *trace) error { tr.add("a"); return nil }))
	require.NoError(t, hook.Tap("veto", func(tr *trace) error { tr.add("veto"); return ErrBail }))
	require.NoError(t, hook.Tap("c", func(tr *trace) error { tr.add("c"); return nil }))

	tr := &trace{}
	bailed, err := hook.CallBail(context.Background(), tr)
	require.NoError(t, err)

	assert.True(t, bailed)
	assert.Equal(t, []string{"a", "veto"}, tr.list())
}

func TestHook_PanicBecomesHookError(t *testing.T) {
	hook := New[int]("setup", Sync)
	require.NoError(t, hook.Tap("panics", func(int) error { panic("kaboom") }))

	err := hook.Call(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindHook))
	assert.Contains(t, err.Error(), "kaboom")
}

func TestHook_ContextAbandonsWait(t *testing.T) {
	for _, discipline := range []Discipline{AsyncSeries, AsyncParallel} {
		t.Run(discipline.String(), func(t *testing.T) {
			hook := New[int]("build", discipline)
			require.NoError(t, hook.TapAsync("hung", func(int, Done) {}))

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			err := hook.Call(ctx, 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		})
	}
}

func TestHook_RepeatedCalls(t *testing.T) {
	hook := New[int]("alterAssetTags", AsyncSeries)
	calls := 0
	require.NoError(t, hook.Tap("count", func(int) error { calls++; return nil }))

	require.NoError(t, hook.Call(context.Background(), 0))
	require.NoError(t, hook.Call(context.Background(), 0))
	assert.Equal(t, 2, calls)
}
