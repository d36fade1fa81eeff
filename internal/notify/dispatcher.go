// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/the-line/internal/metrics"
)

const (
	KindPosition     = "position"
	KindReminder     = "reminder"
	KindAnnouncement = "announcement"
)

// Recipient is a queue member to be notified.
type Recipient struct {
	UserID int64
	Name   string
}

// Report summarizes one fan-out.
type Report struct {
	Attempted int     `json:"attempted"`
	Delivered int     `json:"delivered"`
	Failed    []int64 `json:"failed,omitempty"`
}

// PositionText is the message telling a member where they stand.
func PositionText(name string, position int) string {
	return fmt.Sprintf("%s, your position in the queue: %d", name, position)
}

// ReminderText is the message sent to the head of a queue.
func ReminderText(name string) string {
	return fmt.Sprintf("%s, you are first in line! Please get ready.", name)
}

// AnnouncementText is the message carrying an administrator broadcast.
func AnnouncementText(adminName, text string) string {
	return fmt.Sprintf("📢 Announcement from administrator %s:\n%s", adminName, text)
}

// Dispatcher drives a Messenger for queue notifications. Deliveries are
// attempted one recipient at a time; a failure is logged and counted and the
// loop moves on. Nothing is retried.
type Dispatcher struct {
	messenger Messenger
	metrics   *metrics.Metrics
}

// NewDispatcher creates a dispatcher sending through m.
func NewDispatcher(m Messenger, mt *metrics.Metrics) *Dispatcher {
	return &Dispatcher{messenger: m, metrics: mt}
}

// NotifyPositions tells every recipient its new 1-based position, taken from
// its index in recipients.
func (d *Dispatcher) NotifyPositions(ctx context.Context, recipients []Recipient) Report {
	return d.fanOut(ctx, KindPosition, recipients, func(i int, r Recipient) string {
		return "The queue has moved! " + PositionText(r.Name, i+1)
	})
}

// Remind tells the head of a queue to get ready.
func (d *Dispatcher) Remind(ctx context.Context, r Recipient) error {
	return d.send(ctx, KindReminder, r.UserID, ReminderText(r.Name))
}

// Announce delivers an administrator broadcast to every recipient.
func (d *Dispatcher) Announce(ctx context.Context, adminName, text string, recipients []Recipient) Report {
	msg := AnnouncementText(adminName, text)
	return d.fanOut(ctx, KindAnnouncement, recipients, func(int, Recipient) string { return msg })
}

func (d *Dispatcher) fanOut(ctx context.Context, kind string, recipients []Recipient, text func(int, Recipient) string) Report {
	var report Report
	for i, r := range recipients {
		report.Attempted++
		if err := d.send(ctx, kind, r.UserID, text(i, r)); err != nil {
			report.Failed = append(report.Failed, r.UserID)
			continue
		}
		report.Delivered++
	}
	log.Printf("fanOut: kind=%s attempted=%d delivered=%d failed=%d", kind, report.Attempted, report.Delivered, len(report.Failed))
	return report
}

func (d *Dispatcher) send(ctx context.Context, kind string, userID int64, text string) error {
	if err := d.messenger.Send(ctx, userID, text); err != nil {
		d.metrics.Notification(kind, metrics.OutcomeFailed)
		log.Printf("send: kind=%s userId=%d failed: %v", kind, userID, err)
		return err
	}
	d.metrics.Notification(kind, metrics.OutcomeDelivered)
	return nil
}
