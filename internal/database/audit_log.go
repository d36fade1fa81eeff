// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package database

import (
	"context"
	"fmt"
	"time"
)

// DefaultAuditLimit is used when the caller asks for zero or fewer records.
const DefaultAuditLimit = 50

// BroadcastRecord is one stored administrator announcement
type BroadcastRecord struct {
	ID        int64     `json:"id"`
	AdminID   int64     `json:"admin_id"`
	AdminName string    `json:"admin_name"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// RecentBroadcasts returns the last limit broadcasts, newest first.
// If adminID is non-zero only that administrator's broadcasts are returned.
func (s *Store) RecentBroadcasts(ctx context.Context, limit int, adminID int64) ([]BroadcastRecord, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}

	query := `
		SELECT b.id, b.admin_id, u.user_name, b.message_text, b.timestamp
		FROM broadcast_messages b
		JOIN users u ON b.admin_id = u.user_id`
	args := []interface{}{}
	if adminID != 0 {
		query += " WHERE b.admin_id = ?"
		args = append(args, adminID)
	}
	query += " ORDER BY b.timestamp DESC, b.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query broadcasts: %w", err)
	}
	defer rows.Close()

	var records []BroadcastRecord
	for rows.Next() {
		var r BroadcastRecord
		if err := rows.Scan(&r.ID, &r.AdminID, &r.AdminName, &r.Text, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan broadcast: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
