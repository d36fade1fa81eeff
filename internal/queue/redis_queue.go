package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// popTimeout bounds each BLPOP so Dequeue notices Close and cancellation.
const popTimeout = time.Second

// RedisQueue implements Queue using Redis Lists. Jobs left in the list
// survive a process restart.
type RedisQueue struct {
	client   *redis.Client
	key      string
	capacity int64
	closed   atomic.Bool
}

// NewRedisQueue creates a new Redis-backed queue.
// client: the Redis client to use
// key: the Redis key name for the queue (e.g., "jobs:line")
// capacity: maximum pending jobs, 0 for unbounded
func NewRedisQueue(ctx context.Context, client *redis.Client, key string, capacity int) (*RedisQueue, error) {
	if key == "" {
		key = "jobs:line"
	}

	log.Printf("NewRedisQueue: key=%s capacity=%d", key, capacity)

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("NewRedisQueue: failed to ping Redis: %v", err)
		return nil, err
	}

	return &RedisQueue{
		client:   client,
		key:      key,
		capacity: int64(capacity),
	}, nil
}

// Enqueue adds a job to the queue using RPUSH.
func (r *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	if r.closed.Load() {
		return ErrQueueClosed
	}

	if r.capacity > 0 {
		n, err := r.client.LLen(ctx, r.key).Result()
		if err != nil {
			log.Printf("Enqueue: failed to read queue length: %v", err)
			return err
		}
		if n >= r.capacity {
			log.Printf("Enqueue: queue full key=%s len=%d, dropping job type=%s", r.key, n, job.Type)
			return ErrQueueFull
		}
	}

	data, err := json.Marshal(job)
	if err != nil {
		log.Printf("Enqueue: failed to marshal job: %v", err)
		return err
	}

	if err := r.client.RPush(ctx, r.key, data).Err(); err != nil {
		log.Printf("Enqueue: failed to push to Redis: %v", err)
		return err
	}
	return nil
}

// Dequeue blocks until a job is available using BLPOP, then returns it.
func (r *RedisQueue) Dequeue(ctx context.Context) (Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Job{}, err
		}

		val, err := r.client.BLPop(ctx, popTimeout, r.key).Result()
		if errors.Is(err, redis.Nil) {
			if r.closed.Load() {
				return Job{}, ErrQueueClosed
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			log.Printf("Dequeue: failed to pop from Redis: %v", err)
			return Job{}, err
		}

		if len(val) < 2 {
			return Job{}, fmt.Errorf("invalid result from Redis, expected 2 elements, got %d", len(val))
		}

		var job Job
		if err := json.Unmarshal([]byte(val[1]), &job); err != nil {
			log.Printf("Dequeue: failed to unmarshal job: %v", err)
			return Job{}, err
		}
		return job, nil
	}
}

// Close stops accepting jobs. The Redis list itself is kept.
func (r *RedisQueue) Close() error {
	r.closed.Store(true)
	return nil
}
