package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadTimezone(t *testing.T) {
	_, err := New("Mars/Olympus_Mons")
	assert.Error(t, err)

	s, err := New("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, s.timezone)
}

func TestOnceScheduleFiresOnce(t *testing.T) {
	o := &onceSchedule{delay: 5 * time.Second}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(5*time.Second), o.Next(now))
	assert.True(t, o.Next(now.Add(time.Hour)).IsZero())
	assert.True(t, o.Next(now.Add(2*time.Hour)).IsZero())
}

func TestAddOnceRunsAndRemovesItself(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	var runs atomic.Int32
	done := make(chan struct{})
	s.AddOnce("initial", 20*time.Millisecond, func(ctx context.Context) error {
		if runs.Add(1) == 1 {
			close(done)
		}
		return nil
	})
	require.Len(t, s.ListJobs(), 1)

	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("one-shot job never ran")
	}

	assert.Eventually(t, func() bool { return len(s.ListJobs()) == 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
}

func TestAddTrendJobs(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)
	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, s.AddTrendJobs(time.Hour, "", noop))
	assert.Len(t, s.ListJobs(), 1)

	require.NoError(t, s.AddTrendJobs(time.Hour, "0 */6 * * *", noop))
	names := map[string]bool{}
	for _, j := range s.ListJobs() {
		names[j.Name] = true
	}
	assert.True(t, names["trends"])
	assert.True(t, names["trends-initial"])

	assert.Error(t, s.AddTrendJobs(time.Hour, "not a cron spec", noop))
}

func TestRemoveJob(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	require.NoError(t, s.AddJob("hourly", "0 * * * *", func(ctx context.Context) error { return nil }))
	require.Len(t, s.ListJobs(), 1)

	s.RemoveJob("hourly")
	assert.Empty(t, s.ListJobs())
	s.RemoveJob("hourly")
}

func TestStopCancelsRunningJob(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	started := make(chan struct{})
	finished := make(chan error, 1)
	s.AddOnce("blocking", 0, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		finished <- ctx.Err()
		return ctx.Err()
	})
	s.Start()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	stopped := s.Stop()
	select {
	case err := <-finished:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("job was not cancelled")
	}
	<-stopped.Done()
}

func TestRunNow(t *testing.T) {
	s, err := New("UTC")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.RunNow("manual", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)
}
