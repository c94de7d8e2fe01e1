package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/orrery/engine/core"
)

func TestRingQueueWrapsAround(t *testing.T) {
	rq := NewRingQueue[int](3)

	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	require.NoError(t, rq.Enqueue(3))
	assert.ErrorIs(t, rq.Enqueue(4), core.ErrQueueFull)

	v, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, rq.Enqueue(4))
	head, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 2, head)

	var got []int
	rq.Drain(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{2, 3, 4}, got)
	assert.True(t, rq.IsEmpty())

	_, err = rq.Dequeue()
	assert.ErrorIs(t, err, core.ErrQueueEmpty)
}

func TestRingQueueBack(t *testing.T) {
	rq := NewRingQueue[int](2)
	_, ok := rq.Back()
	assert.False(t, ok)

	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	_, _ = rq.Dequeue()
	require.NoError(t, rq.Enqueue(3))

	back, ok := rq.Back()
	require.True(t, ok)
	assert.Equal(t, 3, *back)
	*back = 30

	var got []int
	rq.Drain(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{2, 30}, got)
}

func TestRingQueueRetainKeepsOrder(t *testing.T) {
	rq := NewRingQueue[int](5)
	// Start past the beginning of the buffer so the contents wrap.
	require.NoError(t, rq.Enqueue(0))
	_, _ = rq.Dequeue()
	for i := 1; i <= 5; i++ {
		require.NoError(t, rq.Enqueue(i))
	}

	removed := rq.Retain(func(v int) bool { return v%2 == 1 })
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, rq.Len())

	var got []int
	rq.Drain(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{1, 3, 5}, got)
}
