package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_New(t *testing.T) {
	q := New[string]()
	require.NotNil(t, q)
	assert.Zero(t, q.Len())
}

func TestQueue_PushPopOrder(t *testing.T) {
	q := New[int]()

	_, ok := q.Pop()
	assert.False(t, ok, "pop on empty queue")

	q.Push(1)
	q.Push(2, 3)
	assert.Equal(t, 3, q.Len())

	for want := 1; want <= 3; want++ {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Zero(t, q.Len())
}

func TestQueue_ReadySignal(t *testing.T) {
	q := New[int]()

	select {
	case <-q.Ready():
		t.Fatal("no signal before push")
	default:
	}

	q.Push()
	select {
	case <-q.Ready():
		t.Fatal("empty push must not signal")
	default:
	}

	q.Push(1)
	q.Push(2)
	select {
	case <-q.Ready():
	case <-time.After(time.Second):
		t.Fatal("expected signal after push")
	}
	assert.Equal(t, 2, q.Len(), "one signal may cover several pushes")
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[string]()
	q.Push("a", "b")

	items := q.GetAndEmpty()
	assert.Equal(t, []string{"a", "b"}, items)
	assert.Zero(t, q.Len())

	q.Push("c")
	assert.Equal(t, []string{"a", "b"}, items, "returned slice is detached")
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, q.Len())
}
