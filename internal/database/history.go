// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package database

import (
	"context"
	"fmt"
	"time"
)

// HistoryRecord is one action taken by a user, joined with their name
type HistoryRecord struct {
	UserName  string    `json:"user_name"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendHistory records an action for a user
func (s *Store) AppendHistory(ctx context.Context, userID int64, action string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO user_history (user_id, action, timestamp) VALUES (?, ?, ?)",
		userID, action, at,
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// UserHistory returns the actions of one user, newest first
func (s *Store) UserHistory(ctx context.Context, userID int64) ([]HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.user_name, h.action, h.timestamp
		FROM user_history h
		JOIN users u ON h.user_id = u.user_id
		WHERE h.user_id = ?
		ORDER BY h.timestamp DESC, h.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var r HistoryRecord
		if err := rows.Scan(&r.UserName, &r.Action, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// AppendBroadcast records an administrator announcement
func (s *Store) AppendBroadcast(ctx context.Context, adminID int64, text string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO broadcast_messages (admin_id, message_text, timestamp) VALUES (?, ?, ?)",
		adminID, text, at,
	)
	if err != nil {
		return fmt.Errorf("failed to append broadcast: %w", err)
	}
	return nil
}
