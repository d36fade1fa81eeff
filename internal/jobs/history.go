// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/the-line/internal/queue"
)

const JobTypeAppendHistory = "append_history"

// AppendHistoryPayload represents the payload for an append history job.
type AppendHistoryPayload struct {
	UserID int64     `json:"userId"`
	Action string    `json:"action"`
	At     time.Time `json:"at"`
}

// NewAppendHistoryJob creates a new job for recording a user action.
func NewAppendHistoryJob(payload AppendHistoryPayload) (queue.Job, error) {
	job, err := queue.NewJob(JobTypeAppendHistory, payload)
	if err != nil {
		log.Printf("NewAppendHistoryJob: failed to marshal payload: %v", err)
		return queue.Job{}, err
	}
	return job, nil
}

// EnqueueAppendHistory enqueues an append history job.
func EnqueueAppendHistory(ctx context.Context, q queue.Queue, payload AppendHistoryPayload) error {
	log.Printf("EnqueueAppendHistory: userId=%d action=%s", payload.UserID, payload.Action)

	job, err := NewAppendHistoryJob(payload)
	if err != nil {
		return err
	}

	if err := q.Enqueue(ctx, job); err != nil {
		log.Printf("EnqueueAppendHistory: failed to enqueue job: %v", err)
		return err
	}
	return nil
}

// HandleAppendHistory writes the action to the history table.
func HandleAppendHistory(ctx context.Context, store Store, job queue.Job) error {
	var payload AppendHistoryPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Printf("HandleAppendHistory: failed to unmarshal payload: %v", err)
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	log.Printf("HandleAppendHistory: userId=%d action=%s at=%s", payload.UserID, payload.Action, payload.At.Format(time.RFC3339))
	return store.AppendHistory(ctx, payload.UserID, payload.Action, payload.At)
}
