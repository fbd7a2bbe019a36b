package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSerial(t *testing.T) *Serial {
	t.Helper()
	s, err := NewSerial(nil)
	require.NoError(t, err)
	s.Start()
	t.Cleanup(s.Close)
	return s
}

func TestSerial_RunsInOrder(t *testing.T) {
	s := newTestSerial(t)

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 100; i++ {
		s.Submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	s.Close()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestSerial_OneAtATime(t *testing.T) {
	s := newTestSerial(t)

	var running, maxRunning atomic.Int32
	for i := 0; i < 20; i++ {
		s.Submit(func() {
			n := running.Add(1)
			if n > maxRunning.Load() {
				maxRunning.Store(n)
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
		})
	}
	s.Close()

	assert.Equal(t, int32(1), maxRunning.Load())
}

func TestSerial_QueuedBeforeStart(t *testing.T) {
	s, err := NewSerial(nil)
	require.NoError(t, err)

	var ran atomic.Bool
	s.Submit(func() { ran.Store(true) })
	assert.Equal(t, 1, s.Len())
	assert.False(t, ran.Load())

	s.Start()
	s.Start()
	s.Close()
	assert.True(t, ran.Load())
}

func TestSerial_LenCountsRunningTask(t *testing.T) {
	s := newTestSerial(t)

	release := make(chan struct{})
	started := make(chan struct{})
	s.Submit(func() {
		close(started)
		<-release
	})
	s.Submit(func() {})

	<-started
	assert.Equal(t, 2, s.Len())
	close(release)

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, time.Millisecond)
}

func TestSerial_RecoversPanics(t *testing.T) {
	s := newTestSerial(t)

	var after atomic.Bool
	s.Submit(func() { panic("boom") })
	s.Submit(func() { after.Store(true) })
	s.Close()

	assert.True(t, after.Load(), "worker survives a panicking task")
}

func TestSerial_DropsAfterClose(t *testing.T) {
	s := newTestSerial(t)
	s.Close()

	var ran atomic.Bool
	s.Submit(func() { ran.Store(true) })
	time.Sleep(10 * time.Millisecond)

	assert.False(t, ran.Load())
	assert.Equal(t, 0, s.Len())
}

func TestSerial_CloseWithoutStart(t *testing.T) {
	s, err := NewSerial(nil)
	require.NoError(t, err)

	var ran atomic.Bool
	s.Submit(func() { ran.Store(true) })

	done := make(chan struct{})
	go func() {
		s.Close()
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a worker that was never started")
	}
	assert.True(t, ran.Load(), "queued tasks still run")

	s.Start()
	s.Submit(func() {})
	assert.Equal(t, 0, s.Len())
}
