// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/the-line/internal/database"
	"github.com/the-line/internal/metrics"
	"github.com/the-line/internal/notify"
)

// ErrNotLoaded is reported when a mutation arrives before LoadAll has succeeded.
var ErrNotLoaded = errors.New("queue state not loaded")

// Mode selects how mutations reach the durable store.
type Mode string

const (
	// ModeIncremental writes only the entry that changed.
	ModeIncremental Mode = "incremental"
	// ModeSnapshot replaces the whole stored queue after every mutation.
	ModeSnapshot Mode = "snapshot"
)

// ParseMode validates a persistence mode from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeIncremental, ModeSnapshot:
		return Mode(s), nil
	case "":
		return ModeIncremental, nil
	}
	return "", fmt.Errorf("unknown persistence mode %q", s)
}

// Store is the durable side of the queue state.
type Store interface {
	LoadQueue(ctx context.Context) ([]database.QueueEntry, error)
	ReplaceQueue(ctx context.Context, entries []database.QueueEntry) error
	InsertQueueEntry(ctx context.Context, e database.QueueEntry) error
	DeleteQueueEntry(ctx context.Context, userID, orgID int64) error
	DeleteOrganizationQueue(ctx context.Context, orgID int64) error
	ClearQueue(ctx context.Context) error
	UserHistory(ctx context.Context, userID int64) ([]database.HistoryRecord, error)
}

// Recorder schedules history writes without blocking the caller.
type Recorder interface {
	RecordAction(ctx context.Context, userID int64, action string)
}

// Notifier delivers queue notifications.
type Notifier interface {
	NotifyPositions(ctx context.Context, recipients []notify.Recipient) notify.Report
	Remind(ctx context.Context, r notify.Recipient) error
}

// Reminders arms and cancels the first-in-line reminder of an organization.
// Both are called with the engine lock held and must not wait for a reminder
// to fire.
type Reminders interface {
	Arm(orgID int64, epoch uint64)
	Cancel(orgID int64)
}

// Member is one entry of a queue.
type Member struct {
	UserID   int64     `json:"user_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// line is the queue of one organization. order and members always hold the
// same set of users.
type line struct {
	order   []int64
	members map[int64]Member
}

func newLine() *line {
	return &line{members: make(map[int64]Member)}
}

func (l *line) has(userID int64) bool {
	_, ok := l.members[userID]
	return ok
}

func (l *line) push(m Member) {
	l.order = append(l.order, m.UserID)
	l.members[m.UserID] = m
}

// position is 1-based, 0 when absent.
func (l *line) position(userID int64) int {
	for i, id := range l.order {
		if id == userID {
			return i + 1
		}
	}
	return 0
}

func (l *line) remove(userID int64) (Member, bool) {
	m, ok := l.members[userID]
	if !ok {
		return Member{}, false
	}
	delete(l.members, userID)
	for i, id := range l.order {
		if id == userID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return m, true
}

func (l *line) head() Member {
	return l.members[l.order[0]]
}

func (l *line) snapshot() []Member {
	out := make([]Member, len(l.order))
	for i, id := range l.order {
		out[i] = l.members[id]
	}
	return out
}

// Options configures an Engine. Nil collaborators are skipped.
type Options struct {
	Mode      Mode
	Recorder  Recorder
	Notifier  Notifier
	Reminders Reminders
	Metrics   *metrics.Metrics
	Clock     func() time.Time
}

// Engine owns the waiting lines of every organization. One mutex spans each
// memory mutation and its write to the store, so writes are never interleaved.
type Engine struct {
	mu     sync.Mutex
	queues map[int64]*line
	// epochs changes whenever the head of an organization's queue changes
	epochs map[int64]uint64
	loaded bool
	dirty  bool

	store     Store
	mode      Mode
	recorder  Recorder
	notifier  Notifier
	reminders Reminders
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New creates an engine. LoadAll must be called before mutations are accepted.
func New(store Store, opts Options) *Engine {
	if opts.Mode == "" {
		opts.Mode = ModeIncremental
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{
		queues:    make(map[int64]*line),
		epochs:    make(map[int64]uint64),
		store:     store,
		mode:      opts.Mode,
		recorder:  opts.Recorder,
		notifier:  opts.Notifier,
		reminders: opts.Reminders,
		metrics:   opts.Metrics,
		now:       opts.Clock,
	}
}

func (e *Engine) record(ctx context.Context, userID int64, action string) {
	if e.recorder != nil {
		e.recorder.RecordAction(ctx, userID, action)
	}
}

func (e *Engine) cancelReminder(orgID int64) {
	if e.reminders != nil {
		e.reminders.Cancel(orgID)
	}
}

func (e *Engine) bumpEpoch(orgID int64) uint64 {
	e.epochs[orgID]++
	return e.epochs[orgID]
}

func (e *Engine) updateLength(orgID int64) {
	n := 0
	if l, ok := e.queues[orgID]; ok {
		n = len(l.order)
	}
	e.metrics.SetQueueLength(orgID, n)
}

// joinTime returns the current time at the store's precision, kept strictly
// after the previous member so that reloading by join time keeps the order.
func (e *Engine) joinTime(l *line) time.Time {
	t := e.now().Truncate(time.Microsecond)
	if n := len(l.order); n > 0 {
		last := l.members[l.order[n-1]].JoinedAt
		if !t.After(last) {
			t = last.Add(time.Microsecond)
		}
	}
	return t
}

func recipients(members []Member) []notify.Recipient {
	out := make([]notify.Recipient, len(members))
	for i, m := range members {
		out[i] = notify.Recipient{UserID: m.UserID, Name: m.Name}
	}
	return out
}
