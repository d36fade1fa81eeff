// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package jobs

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/the-line/internal/metrics"
	"github.com/the-line/internal/queue"
)

// ErrBadPayload marks a job whose payload cannot be decoded. Retrying it is pointless.
var ErrBadPayload = errors.New("malformed job payload")

// Store is the part of the durable store the job handlers write to.
type Store interface {
	AppendHistory(ctx context.Context, userID int64, action string, at time.Time) error
	AppendBroadcast(ctx context.Context, adminID int64, text string, at time.Time) error
}

// Handler returns the worker handler dispatching jobs by type.
// Unknown job types and malformed payloads are logged and discarded.
func Handler(store Store) func(ctx context.Context, job queue.Job) error {
	return func(ctx context.Context, job queue.Job) error {
		var err error
		switch job.Type {
		case JobTypeAppendHistory:
			err = HandleAppendHistory(ctx, store, job)
		case JobTypeRecordBroadcast:
			err = HandleRecordBroadcast(ctx, store, job)
		default:
			log.Printf("Handler: unexpected job type %s id=%s, discarding", job.Type, job.ID)
			return nil
		}
		if errors.Is(err, ErrBadPayload) {
			log.Printf("Handler: discarding job type=%s id=%s: %v", job.Type, job.ID, err)
			return nil
		}
		return err
	}
}

// Recorder schedules history and broadcast writes on the job queue.
// Enqueue failures are logged and counted, never returned, so that a full
// queue cannot fail the operation that produced the record. Records are
// enqueued even when the caller's context is already cancelled.
type Recorder struct {
	q       queue.Queue
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRecorder creates a recorder backed by q.
func NewRecorder(q queue.Queue, m *metrics.Metrics) *Recorder {
	return &Recorder{q: q, metrics: m, now: time.Now}
}

// RecordAction schedules an append to the user's action history.
func (r *Recorder) RecordAction(ctx context.Context, userID int64, action string) {
	err := EnqueueAppendHistory(context.WithoutCancel(ctx), r.q, AppendHistoryPayload{UserID: userID, Action: action, At: r.now()})
	if err != nil {
		r.metrics.Job(JobTypeAppendHistory, metrics.OutcomeDropped)
		log.Printf("RecordAction: dropped history userId=%d action=%s: %v", userID, action, err)
	}
}

// RecordBroadcast schedules storing an administrator announcement.
func (r *Recorder) RecordBroadcast(ctx context.Context, adminID int64, text string) {
	err := EnqueueRecordBroadcast(context.WithoutCancel(ctx), r.q, RecordBroadcastPayload{AdminID: adminID, Text: text, At: r.now()})
	if err != nil {
		r.metrics.Job(JobTypeRecordBroadcast, metrics.OutcomeDropped)
		log.Printf("RecordBroadcast: dropped broadcast adminId=%d: %v", adminID, err)
	}
}
