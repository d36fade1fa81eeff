package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/the-line/internal/database"
	"github.com/the-line/internal/logger"
)

// LoadAll rebuilds every queue from the store, ordered by join time. It
// replaces whatever is in memory and must succeed before mutations are accepted.
func (e *Engine) LoadAll(ctx context.Context) error {
	entries, err := e.store.LoadQueue(ctx)
	if err != nil {
		return fmt.Errorf("failed to load queue state: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].JoinTime.Before(entries[j].JoinTime)
	})

	e.mu.Lock()
	defer e.mu.Unlock()

	for orgID := range e.queues {
		e.metrics.SetQueueLength(orgID, 0)
	}
	e.queues = make(map[int64]*line)

	for _, entry := range entries {
		l, ok := e.queues[entry.OrgID]
		if !ok {
			l = newLine()
			e.queues[entry.OrgID] = l
			e.bumpEpoch(entry.OrgID)
		}
		if l.has(entry.UserID) {
			logger.Warnf("LoadAll: duplicate entry userId=%d orgId=%d skipped", entry.UserID, entry.OrgID)
			continue
		}
		l.push(Member{UserID: entry.UserID, Name: entry.UserName, JoinedAt: entry.JoinTime})
	}
	for orgID, l := range e.queues {
		e.metrics.SetQueueLength(orgID, len(l.order))
	}

	e.loaded = true
	e.dirty = false
	logger.Printf("LoadAll: restored %d entries across %d organizations", len(entries), len(e.queues))
	return nil
}

// Loaded reports whether LoadAll has completed.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// SaveAll replaces the stored queue with the current memory state.
func (e *Engine) SaveAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saveAllLocked(context.WithoutCancel(ctx))
}

func (e *Engine) saveAllLocked(ctx context.Context) error {
	if err := e.store.ReplaceQueue(ctx, e.entriesLocked()); err != nil {
		e.dirty = true
		e.metrics.PersistenceError("snapshot")
		return err
	}
	e.dirty = false
	return nil
}

// entriesLocked flattens memory into store rows, organizations in id order.
func (e *Engine) entriesLocked() []database.QueueEntry {
	orgIDs := make([]int64, 0, len(e.queues))
	for orgID := range e.queues {
		orgIDs = append(orgIDs, orgID)
	}
	sort.Slice(orgIDs, func(i, j int) bool { return orgIDs[i] < orgIDs[j] })

	var entries []database.QueueEntry
	for _, orgID := range orgIDs {
		for _, m := range e.queues[orgID].snapshot() {
			entries = append(entries, database.QueueEntry{UserID: m.UserID, OrgID: orgID, UserName: m.Name, JoinTime: m.JoinedAt})
		}
	}
	return entries
}

// persist writes one mutation while e.mu is held. In snapshot mode, or after
// an earlier write failed, the whole state is saved instead of the single
// change. Failures are logged and leave the engine dirty.
func (e *Engine) persist(ctx context.Context, op string, write func(ctx context.Context) error) error {
	ctx = context.WithoutCancel(ctx)

	if e.mode == ModeSnapshot || e.dirty {
		if err := e.saveAllLocked(ctx); err != nil {
			logger.Errorf("persist: op=%s full save failed: %v", op, err)
			return err
		}
		return nil
	}

	if err := write(ctx); err != nil {
		e.dirty = true
		e.metrics.PersistenceError(op)
		logger.Errorf("persist: op=%s failed, next write saves the full state: %v", op, err)
		return err
	}
	return nil
}
