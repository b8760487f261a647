// Package pqueue implements the bounded, 3-level priority admission buffer
// that fronts the dispatcher. Strict priority ordering with FIFO tie-break
// within a level; a full queue rejects admission synchronously.
package pqueue

import (
	"container/heap"
	"errors"
	"sync"
	"time"

	"scrapegate/internal/model"
)

// ErrQueueFull is returned by Enqueue when the buffer is at capacity.
var ErrQueueFull = errors.New("Request queue is full")

// item is one admitted request sitting in the heap, plus the sequence number
// that breaks ties between equal priorities in FIFO order.
type item struct {
	req   model.QueuedRequest
	seq   uint64
	index int
}

type itemHeap []*item

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].req.Priority != h[j].req.Priority {
		return h[i].req.Priority < h[j].req.Priority
	}
	return h[i].seq < h[j].seq
}

func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Queue is a bounded, thread-safe priority queue of pending operations.
type Queue struct {
	mu       sync.Mutex
	heap     itemHeap
	capacity int
	nextSeq  uint64
}

// New returns a Queue with the given capacity.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1000
	}
	q := &Queue{capacity: capacity}
	heap.Init(&q.heap)
	return q
}

// Enqueue admits a request at the given priority. It fails synchronously
// with ErrQueueFull if the buffer is already at capacity.
func (q *Queue) Enqueue(priority model.Priority, run func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) >= q.capacity {
		return ErrQueueFull
	}

	it := &item{
		req: model.QueuedRequest{
			Priority: priority,
			Enqueued: time.Now(),
			Run:      run,
		},
		seq: q.nextSeq,
	}
	q.nextSeq++
	heap.Push(&q.heap, it)
	return nil
}

// Dequeue removes and returns the highest-priority, oldest-enqueued request.
// Returns false if the queue is empty.
func (q *Queue) Dequeue() (model.QueuedRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.heap) == 0 {
		return model.QueuedRequest{}, false
	}
	it := heap.Pop(&q.heap).(*item)
	return it.req, true
}

// Len reports the current number of admitted, not-yet-dequeued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Capacity returns the queue's configured maximum size.
func (q *Queue) Capacity() int {
	return q.capacity
}
