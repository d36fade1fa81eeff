// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/the-line/internal/engine"
	"github.com/the-line/internal/logger"
	"github.com/the-line/internal/notify"
)

// ErrEmptyMessage is returned for a broadcast without text.
var ErrEmptyMessage = errors.New("broadcast message is empty")

// previewLength is how much of the message goes into the history label.
const previewLength = 50

// Recorder schedules the durable records of a broadcast.
type Recorder interface {
	RecordAction(ctx context.Context, userID int64, action string)
	RecordBroadcast(ctx context.Context, adminID int64, text string)
}

// Members returns the current members of an organization's queue.
type Members interface {
	Snapshot(orgID int64) []engine.Member
}

// Announcer delivers an announcement to each recipient independently.
type Announcer interface {
	Announce(ctx context.Context, adminName, text string, recipients []notify.Recipient) notify.Report
}

// Service sends administrator announcements to everyone waiting in a queue.
// Callers must check authorization first.
type Service struct {
	recorder  Recorder
	members   Members
	announcer Announcer
}

func NewService(recorder Recorder, members Members, announcer Announcer) *Service {
	return &Service{recorder: recorder, members: members, announcer: announcer}
}

// Broadcast records the announcement and delivers it to the members of orgID
// as they are at the time of the call.
func (s *Service) Broadcast(ctx context.Context, adminID int64, adminName, text string, orgID int64) (notify.Report, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return notify.Report{}, ErrEmptyMessage
	}

	s.recorder.RecordBroadcast(ctx, adminID, text)
	s.recorder.RecordAction(ctx, adminID, historyLabel(orgID, text))

	members := s.members.Snapshot(orgID)
	recipients := make([]notify.Recipient, len(members))
	for i, m := range members {
		recipients[i] = notify.Recipient{UserID: m.UserID, Name: m.Name}
	}

	report := s.announcer.Announce(context.WithoutCancel(ctx), adminName, text, recipients)
	logger.Printf("Broadcast: adminId=%d orgId=%d attempted=%d delivered=%d", adminID, orgID, report.Attempted, report.Delivered)
	return report, nil
}

func historyLabel(orgID int64, text string) string {
	preview := []rune(text)
	if len(preview) > previewLength {
		preview = preview[:previewLength]
	}
	return fmt.Sprintf("broadcast_message_org_%d: %s...", orgID, string(preview))
}
