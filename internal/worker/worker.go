package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/the-line/internal/metrics"
	"github.com/the-line/internal/queue"
)

// dequeueBackoff spaces out retries after a transient dequeue failure.
const dequeueBackoff = 500 * time.Millisecond

// HandlerFunc processes a job. It should return an error if processing fails.
type HandlerFunc func(ctx context.Context, job queue.Job) error

// Pool describes how jobs are processed.
type Pool struct {
	Queue       queue.Queue
	Handler     HandlerFunc
	Workers     int
	MaxAttempts int
	Metrics     *metrics.Metrics
}

// StartWorkers starts a pool of workers that process jobs from the queue.
// Workers stop when ctx is cancelled or once the queue is closed and drained.
// A failed job is re-enqueued until it has been attempted MaxAttempts times,
// after which it is logged and counted as dead.
func StartWorkers(ctx context.Context, p Pool) error {
	if p.Workers < 1 {
		p.Workers = 1
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	log.Printf("StartWorkers: workerCount=%d maxAttempts=%d", p.Workers, p.MaxAttempts)

	var wg sync.WaitGroup
	wg.Add(p.Workers)

	for i := 0; i < p.Workers; i++ {
		workerID := i + 1
		go func() {
			defer wg.Done()
			p.workerLoop(ctx, workerID)
		}()
	}

	wg.Wait()
	log.Printf("StartWorkers: all workers stopped")
	return nil
}

// workerLoop is the main loop for a single worker.
func (p Pool) workerLoop(ctx context.Context, workerID int) {
	log.Printf("workerLoop: workerID=%d started", workerID)

	for {
		job, err := p.Queue.Dequeue(ctx)
		if err != nil {
			switch {
			case errors.Is(err, queue.ErrQueueClosed):
				log.Printf("workerLoop: workerID=%d queue closed and drained, stopping", workerID)
				return
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				log.Printf("workerLoop: workerID=%d context cancelled during dequeue", workerID)
				return
			}
			log.Printf("workerLoop: workerID=%d dequeue error: %v, continuing", workerID, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(dequeueBackoff):
			}
			continue
		}

		if err := p.Handler(ctx, job); err != nil {
			p.fail(ctx, workerID, job, err)
			continue
		}

		p.Metrics.Job(job.Type, metrics.OutcomeDone)
		log.Printf("workerLoop: workerID=%d processed job type=%s id=%s", workerID, job.Type, job.ID)
	}
}

func (p Pool) fail(ctx context.Context, workerID int, job queue.Job, cause error) {
	job.Attempts++
	if job.Attempts >= p.MaxAttempts {
		p.Metrics.Job(job.Type, metrics.OutcomeDead)
		log.Printf("workerLoop: workerID=%d giving up on job type=%s id=%s after %d attempts: %v", workerID, job.Type, job.ID, job.Attempts, cause)
		return
	}

	if err := p.Queue.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		p.Metrics.Job(job.Type, metrics.OutcomeDead)
		log.Printf("workerLoop: workerID=%d could not requeue job type=%s id=%s: %v (cause: %v)", workerID, job.Type, job.ID, err, cause)
		return
	}

	p.Metrics.Job(job.Type, metrics.OutcomeRetried)
	log.Printf("workerLoop: workerID=%d handler error for job type=%s id=%s attempt=%d: %v", workerID, job.Type, job.ID, job.Attempts, cause)
}
