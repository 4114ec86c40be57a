package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_FiresAtInstant(t *testing.T) {
	s := newScheduler(time.Now)
	fired := make(chan JobHandle, 1)

	h, err := s.Arm("n1", time.Now().Add(20*time.Millisecond), func(h JobHandle) { fired <- h })
	require.NoError(t, err)
	assert.Equal(t, "n1", h.ID())
	assert.True(t, s.Active("n1"))

	select {
	case got := <-fired:
		assert.Equal(t, h, got)
	case <-time.After(time.Second):
		t.Fatal("job never fired")
	}
}

func TestScheduler_PastInstantFiresImmediately(t *testing.T) {
	s := newScheduler(time.Now)
	fired := make(chan struct{})

	_, err := s.Arm("n1", time.Now().Add(-time.Hour), func(JobHandle) { close(fired) })
	require.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("past-due job never fired")
	}
}

func TestScheduler_ArmReplacesPrevious(t *testing.T) {
	s := newScheduler(time.Now)
	var first, second atomic.Int32

	_, err := s.Arm("n1", time.Now().Add(30*time.Millisecond), func(JobHandle) { first.Add(1) })
	require.NoError(t, err)
	_, err = s.Arm("n1", time.Now().Add(10*time.Millisecond), func(JobHandle) { second.Add(1) })
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	require.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load(), "replaced timer must not fire")
}

func TestScheduler_Cancel(t *testing.T) {
	s := newScheduler(time.Now)
	var fired atomic.Bool

	_, err := s.Arm("n1", time.Now().Add(20*time.Millisecond), func(JobHandle) { fired.Store(true) })
	require.NoError(t, err)

	assert.True(t, s.Cancel("n1"))
	assert.False(t, s.Cancel("n1"), "second cancel is a no-op")
	assert.False(t, s.Cancel("unknown"))
	assert.False(t, s.Active("n1"))

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestScheduler_RearmAfterCancelIsRejected(t *testing.T) {
	s := newScheduler(time.Now)
	h, err := s.Arm("n1", time.Now().Add(time.Hour), func(JobHandle) {})
	require.NoError(t, err)

	s.Cancel("n1")

	_, ok, err := s.Rearm(h, time.Now().Add(time.Hour), func(JobHandle) {})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, s.Active("n1"))
}

func TestScheduler_RearmCurrentHandle(t *testing.T) {
	s := newScheduler(time.Now)
	h, err := s.Arm("n1", time.Now().Add(time.Hour), func(JobHandle) {})
	require.NoError(t, err)

	at := time.Now().Add(2 * time.Hour)
	next, ok, err := s.Rearm(h, at, func(JobHandle) {})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEqual(t, h, next)

	got, ok := s.FireAt("n1")
	require.True(t, ok)
	assert.True(t, got.Equal(at))

	assert.False(t, s.Release(h), "superseded handle cannot release")
	assert.True(t, s.Release(next))
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_StopAndWait(t *testing.T) {
	s := newScheduler(time.Now)
	started := make(chan struct{})
	release := make(chan struct{})

	_, err := s.Arm("running", time.Now(), func(JobHandle) {
		close(started)
		<-release
	})
	require.NoError(t, err)
	_, err = s.Arm("later", time.Now().Add(time.Hour), func(JobHandle) {})
	require.NoError(t, err)
	<-started

	s.Stop()
	assert.True(t, s.Stopped())
	assert.Equal(t, 0, s.Len())

	_, err = s.Arm("n2", time.Now(), func(JobHandle) {})
	assert.True(t, errors.Is(err, ErrSchedulerStopped))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(s.Wait(ctx), context.DeadlineExceeded))

	close(release)
	require.NoError(t, s.Wait(context.Background()))
}

func TestScheduler_UsesInjectedClock(t *testing.T) {
	frozen := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := newScheduler(func() time.Time { return frozen })
	fired := make(chan struct{})

	// Due 10ms after the frozen instant, so it fires 10ms from now.
	_, err := s.Arm("n1", frozen.Add(10*time.Millisecond), func(JobHandle) { close(fired) })
	require.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("job never fired")
	}
}
