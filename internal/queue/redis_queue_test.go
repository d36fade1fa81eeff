// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package queue

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/the-line/internal/config"
)

func newTestRedisQueue(t *testing.T, capacity int) (*RedisQueue, func()) {
	t.Helper()
	ctx := context.Background()
	client, err := config.NewRedisClient(ctx, config.RedisConfig{Addr: os.Getenv("REDIS_ADDR")})
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	queueKey := "test:line:queue:" + time.Now().Format("20060102150405.000000")
	q, err := NewRedisQueue(ctx, client, queueKey, capacity)
	if err != nil {
		t.Fatalf("NewRedisQueue failed: %v", err)
	}
	return q, func() {
		client.Del(ctx, queueKey)
		client.Close()
	}
}

func TestRedisQueue_EnqueueDequeue(t *testing.T) {
	q, cleanup := newTestRedisQueue(t, 0)
	defer cleanup()
	ctx := context.Background()

	job, err := NewJob("append_history", map[string]int{"user_id": 1})
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if err := q.Enqueue(ctx, job); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	dequeueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	dequeued, err := q.Dequeue(dequeueCtx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if dequeued.ID != job.ID || dequeued.Type != job.Type {
		t.Errorf("Expected job %s/%s, got %s/%s", job.ID, job.Type, dequeued.ID, dequeued.Type)
	}
}

func TestRedisQueue_Capacity(t *testing.T) {
	q, cleanup := newTestRedisQueue(t, 1)
	defer cleanup()
	ctx := context.Background()

	if err := q.Enqueue(ctx, Job{Type: "one"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Enqueue(ctx, Job{Type: "two"}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestRedisQueue_CloseDrains(t *testing.T) {
	q, cleanup := newTestRedisQueue(t, 0)
	defer cleanup()
	ctx := context.Background()

	if err := q.Enqueue(ctx, Job{Type: "pending"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	q.Close()

	dequeueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := q.Dequeue(dequeueCtx); err != nil {
		t.Fatalf("Dequeue of pending job failed: %v", err)
	}
	if _, err := q.Dequeue(dequeueCtx); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed once drained, got %v", err)
	}
}
