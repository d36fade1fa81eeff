package queue

import (
	"context"
	"log"
	"sync"
)

// MemoryQueue is a bounded in-process queue backed by a buffered channel.
type MemoryQueue struct {
	jobs   chan Job
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a queue holding at most capacity pending jobs.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryQueue{jobs: make(chan Job, capacity)}
}

// Enqueue adds a job, failing fast with ErrQueueFull instead of blocking the caller.
func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		log.Printf("Enqueue: queue full, dropping job type=%s id=%s", job.Type, job.ID)
		return ErrQueueFull
	}
}

// Dequeue blocks until a job is available, the context ends, or the queue
// is closed and empty.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, error) {
	select {
	case <-ctx.Done():
		return Job{}, ctx.Err()
	case job, ok := <-q.jobs:
		if !ok {
			return Job{}, ErrQueueClosed
		}
		return job, nil
	}
}

// Len reports the number of pending jobs.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs. Pending jobs remain available to Dequeue.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}
