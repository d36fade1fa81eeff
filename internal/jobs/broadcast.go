package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/the-line/internal/queue"
)

const JobTypeRecordBroadcast = "record_broadcast"

// RecordBroadcastPayload represents the payload for a record broadcast job.
type RecordBroadcastPayload struct {
	AdminID int64     `json:"adminId"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// EnqueueRecordBroadcast enqueues a job storing an administrator announcement.
func EnqueueRecordBroadcast(ctx context.Context, q queue.Queue, payload RecordBroadcastPayload) error {
	log.Printf("EnqueueRecordBroadcast: adminId=%d length=%d", payload.AdminID, len(payload.Text))

	job, err := queue.NewJob(JobTypeRecordBroadcast, payload)
	if err != nil {
		log.Printf("EnqueueRecordBroadcast: failed to marshal payload: %v", err)
		return err
	}

	if err := q.Enqueue(ctx, job); err != nil {
		log.Printf("EnqueueRecordBroadcast: failed to enqueue job: %v", err)
		return err
	}
	return nil
}

// HandleRecordBroadcast writes the announcement to the broadcast table.
func HandleRecordBroadcast(ctx context.Context, store Store, job queue.Job) error {
	var payload RecordBroadcastPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Printf("HandleRecordBroadcast: failed to unmarshal payload: %v", err)
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return store.AppendBroadcast(ctx, payload.AdminID, payload.Text, payload.At)
}
