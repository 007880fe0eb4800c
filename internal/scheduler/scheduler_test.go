package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunOnce(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), "data.json.lock")
	var calls int
	s := New(Config{LockFile: lockFile}, func(context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, s.RunOnce(context.Background()))
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestScheduler_RunOnceSkipsWhenLocked(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), "data.json.lock")

	held := flock.New(lockFile)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	s := New(Config{LockFile: lockFile}, func(context.Context) error {
		t.Fatal("job must not run while the lock is held")
		return nil
	}, nil)

	assert.ErrorIs(t, s.RunOnce(context.Background()), ErrLocked)
}

func TestScheduler_RunOnceReturnsJobError(t *testing.T) {
	boom := errors.New("boom")
	s := New(Config{}, func(context.Context) error { return boom }, nil)
	assert.ErrorIs(t, s.RunOnce(context.Background()), boom)
}

func TestScheduler_Run(t *testing.T) {
	lockFile := filepath.Join(t.TempDir(), "data.json.lock")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	s := New(Config{Interval: 10 * time.Millisecond, LockFile: lockFile}, func(context.Context) error {
		if calls.Add(1) == 3 {
			cancel()
		}
		return errors.New("failures do not stop the loop")
	}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestNew_DefaultInterval(t *testing.T) {
	s := New(Config{}, func(context.Context) error { return nil }, nil)
	assert.Equal(t, DefaultInterval, s.interval)
}
