// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// QueueEntry is one stored membership of a user in an organization's line
type QueueEntry struct {
	UserID   int64     `json:"user_id"`
	OrgID    int64     `json:"org_id"`
	UserName string    `json:"user_name"`
	JoinTime time.Time `json:"join_time"`
}

// LoadQueue returns every stored entry with the member's display name,
// ordered by join time ascending.
func (s *Store) LoadQueue(ctx context.Context) ([]QueueEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.user_id, u.user_name, q.org_id, q.join_time
		FROM queue q
		JOIN users u ON q.user_id = u.user_id
		ORDER BY q.join_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue: %w", err)
	}
	defer rows.Close()

	var entries []QueueEntry
	for rows.Next() {
		var e QueueEntry
		if err := rows.Scan(&e.UserID, &e.UserName, &e.OrgID, &e.JoinTime); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	return entries, nil
}

// ReplaceQueue deletes every stored entry and inserts entries in their place,
// all in one transaction.
func (s *Store) ReplaceQueue(ctx context.Context, entries []QueueEntry) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM queue"); err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO queue (user_id, org_id, join_time) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.UserID, e.OrgID, e.JoinTime); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace queue: %w", err)
	}
	return nil
}

// InsertQueueEntry stores a single new membership
func (s *Store) InsertQueueEntry(ctx context.Context, e QueueEntry) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO queue (user_id, org_id, join_time) VALUES (?, ?, ?)",
		e.UserID, e.OrgID, e.JoinTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}
	return nil
}

// DeleteQueueEntry removes a single membership. Missing rows are not an error.
func (s *Store) DeleteQueueEntry(ctx context.Context, userID, orgID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM queue WHERE user_id = ? AND org_id = ?", userID, orgID)
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}
	return nil
}

// DeleteOrganizationQueue removes every membership of one organization
func (s *Store) DeleteOrganizationQueue(ctx context.Context, orgID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM queue WHERE org_id = ?", orgID)
	if err != nil {
		return fmt.Errorf("failed to clear organization queue: %w", err)
	}
	return nil
}

// ClearQueue wipes the whole queue table
func (s *Store) ClearQueue(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM queue"); err != nil {
		return fmt.Errorf("failed to clear queue table: %w", err)
	}
	return nil
}
