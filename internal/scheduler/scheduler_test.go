package scheduler

import (
	"context"
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

func TestScheduler_RegisterValidation(t *testing.T) {
	s := New(discardLogger())

	require.NoError(t, s.Every(time.Minute, "sweep", func(context.Context) {}))

	t.Run("duplicate name rejected", func(t *testing.T) {
		err := s.Every(time.Minute, "sweep", func(context.Context) {})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("sub-second interval rejected", func(t *testing.T) {
		err := s.Every(200*time.Millisecond, "fast", func(context.Context) {})
		require.Error(t, err)
	})

	t.Run("bad cron spec rejected", func(t *testing.T) {
		err := s.Cron("not a spec", "broken", func(context.Context) {})
		require.Error(t, err)
	})

	assert.ElementsMatch(t, []string{"sweep"}, s.Jobs())
}

func TestScheduler_RunsRegisteredJob(t *testing.T) {
	s := New(discardLogger())

	var runs atomic.Int64
	require.NoError(t, s.Every(time.Second, "tick", func(ctx context.Context) {
		runs.Add(1)
	}))

	s.Start()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool {
		return runs.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_StopCancelsJobContext(t *testing.T) {
	s := New(discardLogger())

	started := make(chan struct{})
	var canceled atomic.Bool
	require.NoError(t, s.Every(time.Second, "blocker", func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		canceled.Store(true)
	}))

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(ctx)

	assert.True(t, canceled.Load())
}

func TestScheduler_StartTwiceIsNoop(t *testing.T) {
	s := New(discardLogger())
	s.Start()
	s.Start()
	s.Stop(context.Background())
}
