package jobs

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-process queue backed by a buffered channel. Jobs are
// lost on restart; use SQSQueue where that matters.
type MemoryQueue struct {
	ch        chan *Job
	closeOnce sync.Once
	closed    chan struct{}
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryQueue{ch: make(chan *Job, capacity), closed: make(chan struct{})}
}

// Enqueue blocks while the buffer is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, job *Job) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- job:
		return nil
	case <-q.closed:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Receive(ctx context.Context) (Delivery, error) {
	select {
	case job := <-q.ch:
		return &memoryDelivery{q: q, job: job}, nil
	case <-q.closed:
		return nil, ErrQueueClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len is the number of jobs waiting.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// Close stops Receive and Enqueue. Jobs still buffered are dropped.
func (q *MemoryQueue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

type memoryDelivery struct {
	q   *MemoryQueue
	job *Job
}

func (d *memoryDelivery) Job() *Job { return d.job }

func (d *memoryDelivery) Ack(context.Context) error { return nil }

// Nack puts the job back after delay from a timer goroutine, so a worker
// never waits on a full buffer. The job is dropped if the queue closes first.
func (d *memoryDelivery) Nack(_ context.Context, delay time.Duration) error {
	select {
	case <-d.q.closed:
		return ErrQueueClosed
	default:
	}

	d.job.Attempt++
	job := d.job
	time.AfterFunc(delay, func() {
		_ = d.q.Enqueue(context.Background(), job)
	})
	return nil
}
