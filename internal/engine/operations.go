// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package engine

import (
	"context"

	"github.com/the-line/internal/database"
	"github.com/the-line/internal/logger"
	"github.com/the-line/internal/metrics"
)

// Join appends the user to the organization's queue, creating the queue if needed.
func (e *Engine) Join(ctx context.Context, userID int64, name string, orgID int64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		logger.Errorf("Join: userId=%d orgId=%d: %v", userID, orgID, ErrNotLoaded)
		return errorResult()
	}

	l, ok := e.queues[orgID]
	if ok && l.has(userID) {
		return alreadyQueuedResult(l.position(userID))
	}
	if !ok {
		l = newLine()
		e.queues[orgID] = l
	}

	m := Member{UserID: userID, Name: name, JoinedAt: e.joinTime(l)}
	l.push(m)
	if len(l.order) == 1 {
		e.bumpEpoch(orgID)
	}

	err := e.persist(ctx, "insert", func(ctx context.Context) error {
		return e.store.InsertQueueEntry(ctx, database.QueueEntry{UserID: userID, OrgID: orgID, UserName: name, JoinTime: m.JoinedAt})
	})
	if err != nil {
		// a row the store rejects must not stay in memory, or every later
		// full save would fail on it
		l.remove(userID)
		if len(l.order) == 0 {
			delete(e.queues, orgID)
		}
		logger.Errorf("Join: userId=%d orgId=%d rolled back: %v", userID, orgID, err)
		return errorResult()
	}
	e.record(ctx, userID, actionJoin(orgID))
	e.updateLength(orgID)

	logger.Printf("Join: userId=%d name=%s orgId=%d position=%d", userID, name, orgID, len(l.order))
	return joinedResult(name, len(l.order))
}

// Leave removes the user from the organization's queue. Removing the last
// member drops the organization from the collection.
func (e *Engine) Leave(ctx context.Context, userID, orgID int64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		logger.Errorf("Leave: userId=%d orgId=%d: %v", userID, orgID, ErrNotLoaded)
		return errorResult()
	}

	l, ok := e.queues[orgID]
	if !ok || !l.has(userID) {
		logger.Warnf("Leave: userId=%d is not in queue orgId=%d", userID, orgID)
		return Result{Status: StatusNotQueued, Text: TextNotQueued}
	}

	wasHead := l.order[0] == userID
	m, _ := l.remove(userID)
	if len(l.order) == 0 {
		delete(e.queues, orgID)
	}
	if wasHead {
		e.bumpEpoch(orgID)
		e.cancelReminder(orgID)
	}

	e.persist(ctx, "delete", func(ctx context.Context) error {
		return e.store.DeleteQueueEntry(ctx, userID, orgID)
	})
	e.record(ctx, userID, actionLeave(orgID))
	e.updateLength(orgID)

	logger.Printf("Leave: userId=%d name=%s orgId=%d", userID, m.Name, orgID)
	return leftResult(m.Name)
}

// Advance serves the head of the queue. When members remain, each is told its
// new position and a reminder is armed for the new head.
func (e *Engine) Advance(ctx context.Context, orgID int64) AdvanceResult {
	res, remaining := e.advance(ctx, orgID)
	if len(remaining) == 0 {
		return res
	}

	if e.notifier != nil {
		res.Report = e.notifier.NotifyPositions(context.WithoutCancel(ctx), recipients(remaining))
	}
	return res
}

func (e *Engine) advance(ctx context.Context, orgID int64) (AdvanceResult, []Member) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		logger.Errorf("Advance: orgId=%d: %v", orgID, ErrNotLoaded)
		return AdvanceResult{Result: errorResult(), Affected: []int64{}}, nil
	}

	l, ok := e.queues[orgID]
	if !ok || len(l.order) == 0 {
		return AdvanceResult{Result: emptyResult(), Affected: []int64{}}, nil
	}

	served, _ := l.remove(l.order[0])
	epoch := e.bumpEpoch(orgID)

	e.persist(ctx, "delete", func(ctx context.Context) error {
		return e.store.DeleteQueueEntry(ctx, served.UserID, orgID)
	})
	e.record(ctx, served.UserID, actionNext(orgID))

	if len(l.order) == 0 {
		delete(e.queues, orgID)
		e.cancelReminder(orgID)
		e.updateLength(orgID)
		logger.Printf("Advance: orgId=%d served userId=%d, queue now empty", orgID, served.UserID)
		return AdvanceResult{Result: emptyResult(), Served: &served, Affected: []int64{}}, nil
	}
	e.updateLength(orgID)
	// armed under e.mu so reminders are armed in epoch order
	if e.reminders != nil {
		e.reminders.Arm(orgID, epoch)
	}

	remaining := l.snapshot()
	affected := make([]int64, len(remaining))
	for i, m := range remaining {
		affected[i] = m.UserID
	}

	logger.Printf("Advance: orgId=%d served userId=%d next userId=%d remaining=%d", orgID, served.UserID, remaining[0].UserID, len(remaining))
	return AdvanceResult{Result: nextResult(remaining[0].Name), Served: &served, Affected: affected}, remaining
}

// Position reports the user's 1-based place in the queue.
func (e *Engine) Position(ctx context.Context, userID, orgID int64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.queues[orgID]
	if !ok {
		return Result{Status: StatusNotQueued, Text: TextNotQueued}
	}
	pos := l.position(userID)
	if pos == 0 {
		return Result{Status: StatusNotQueued, Text: TextNotQueued}
	}
	return positionResult(l.members[userID].Name, pos)
}

// Clear removes every member of one organization's queue.
func (e *Engine) Clear(ctx context.Context, orgID int64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		logger.Errorf("Clear: orgId=%d: %v", orgID, ErrNotLoaded)
		return errorResult()
	}

	n := 0
	if l, ok := e.queues[orgID]; ok {
		n = len(l.order)
		delete(e.queues, orgID)
		e.bumpEpoch(orgID)
	}
	e.cancelReminder(orgID)

	e.persist(ctx, "clear", func(ctx context.Context) error {
		return e.store.DeleteOrganizationQueue(ctx, orgID)
	})
	e.updateLength(orgID)

	logger.Printf("Clear: orgId=%d removed=%d", orgID, n)
	return Result{Status: StatusCleared, Text: TextCleared, Count: n}
}

// ClearAll removes every queue of every organization.
func (e *Engine) ClearAll(ctx context.Context) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for orgID, l := range e.queues {
		n += len(l.order)
		delete(e.queues, orgID)
		e.bumpEpoch(orgID)
		e.cancelReminder(orgID)
		e.metrics.SetQueueLength(orgID, 0)
	}

	if err := e.store.ClearQueue(context.WithoutCancel(ctx)); err != nil {
		e.dirty = true
		e.metrics.PersistenceError("clear_all")
		logger.Errorf("ClearAll: failed to clear stored queue: %v", err)
	} else {
		e.dirty = false
	}

	logger.Printf("ClearAll: removed=%d", n)
	return Result{Status: StatusCleared, Text: TextCleared, Count: n}
}

// Snapshot returns a copy of the organization's queue in order.
func (e *Engine) Snapshot(orgID int64) []Member {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.queues[orgID]
	if !ok {
		return nil
	}
	return l.snapshot()
}

// FireReminder sends the first-in-line reminder if the head of the queue has
// not changed since the reminder was armed with epoch.
func (e *Engine) FireReminder(orgID int64, epoch uint64) {
	e.mu.Lock()
	l, ok := e.queues[orgID]
	if !ok || e.epochs[orgID] != epoch {
		e.mu.Unlock()
		e.metrics.Reminder(metrics.OutcomeStale)
		logger.Debugf("FireReminder: orgId=%d epoch=%d is stale", orgID, epoch)
		return
	}
	head := l.head()
	e.mu.Unlock()

	e.metrics.Reminder(metrics.OutcomeFired)
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Remind(context.Background(), recipients([]Member{head})[0]); err != nil {
		logger.Warnf("FireReminder: orgId=%d userId=%d: %v", orgID, head.UserID, err)
	}
}
