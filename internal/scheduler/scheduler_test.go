package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(context.Background(), discardLogger(), "not a schedule", func(context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid schedule "not a schedule"`)
}

func TestScheduler_RunsJob(t *testing.T) {
	var runs atomic.Int32
	s, err := New(context.Background(), discardLogger(), "@every 1s", func(context.Context) error {
		runs.Add(1)
		return errors.New("failures are logged, not fatal")
	})
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	var (
		running atomic.Int32
		maxSeen atomic.Int32
		started atomic.Int32
	)
	release := make(chan struct{})
	s, err := New(context.Background(), discardLogger(), "@every 1s", func(context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		started.Add(1)
		<-release
		return nil
	})
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return started.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	// Let at least two more ticks fire while the first run blocks.
	time.Sleep(2500 * time.Millisecond)
	assert.Equal(t, int32(1), started.Load())
	close(release)
	s.Stop()

	assert.Equal(t, int32(1), maxSeen.Load())
}
