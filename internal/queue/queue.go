package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned by Enqueue when a bounded queue has no room left.
	ErrQueueFull = errors.New("job queue is full")
	// ErrQueueClosed is returned once a queue is closed and drained.
	ErrQueueClosed = errors.New("job queue is closed")
)

// Job represents a job in the queue.
type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewJob builds a job with a fresh id and the payload marshalled to JSON.
func NewJob(jobType string, payload interface{}) (Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Job{}, err
	}
	return Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   data,
		CreatedAt: time.Now(),
	}, nil
}

// Queue defines the interface for job queues.
type Queue interface {
	// Enqueue adds a job to the queue without blocking.
	Enqueue(ctx context.Context, job Job) error

	// Dequeue blocks until a job is available, then returns it.
	// Returns an error if the context is cancelled, the queue is closed and
	// drained, or the operation fails.
	Dequeue(ctx context.Context) (Job, error)

	// Close stops accepting new jobs. Jobs already queued can still be dequeued.
	Close() error
}
