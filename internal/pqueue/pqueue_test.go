package pqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrapegate/internal/model"
)

func TestPriorityOrdering(t *testing.T) {
	q := New(10)

	var order []string
	require.NoError(t, q.Enqueue(model.PriorityLow, func() { order = append(order, "low") }))
	require.NoError(t, q.Enqueue(model.PriorityHigh, func() { order = append(order, "high") }))
	require.NoError(t, q.Enqueue(model.PriorityMedium, func() { order = append(order, "medium") }))

	want := []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow}
	for i, w := range want {
		req, ok := q.Dequeue()
		require.Truef(t, ok, "dequeue %d: queue unexpectedly empty", i)
		assert.Equal(t, w, req.Priority)
	}

	_, ok := q.Dequeue()
	assert.False(t, ok, "expected queue to be empty after three dequeues")
}

func TestFIFOWithinPriority(t *testing.T) {
	q := New(10)
	var seq []int
	for i := 0; i < 3; i++ {
		n := i
		require.NoError(t, q.Enqueue(model.PriorityMedium, func() { seq = append(seq, n) }))
	}

	for i := 0; i < 3; i++ {
		req, ok := q.Dequeue()
		require.Truef(t, ok, "dequeue %d: queue unexpectedly empty", i)
		req.Run()
	}
	assert.Equal(t, []int{0, 1, 2}, seq)
}

func TestQueueFull(t *testing.T) {
	q := New(2)
	for i := 0; i < 2; i++ {
		require.NoError(t, q.Enqueue(model.PriorityLow, func() {}))
	}

	err := q.Enqueue(model.PriorityLow, func() {})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, "Request queue is full", err.Error())
}

func TestZeroCapacityDefaultsTo1000(t *testing.T) {
	q := New(0)
	assert.Equal(t, 1000, q.Capacity())
}

func TestLenAndCapacity(t *testing.T) {
	q := New(5)
	assert.Equal(t, 5, q.Capacity())
	assert.Equal(t, 0, q.Len())
	q.Enqueue(model.PriorityHigh, func() {})
	assert.Equal(t, 1, q.Len())
}
