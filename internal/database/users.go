// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// User is a registered person who may join lines
type User struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	IsAdmin     bool   `json:"is_admin"`
}

// UpsertUser inserts a user or updates name and phone of an existing one.
// The admin flag of an existing user is left untouched.
func (s *Store) UpsertUser(ctx context.Context, userID int64, name, phone string) error {
	query := `
		INSERT INTO users (user_id, user_name, phone_number, is_admin)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			user_name = excluded.user_name,
			phone_number = excluded.phone_number`
	if s.driver == "mysql" {
		query = `
		INSERT INTO users (user_id, user_name, phone_number, is_admin)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			user_name = VALUES(user_name),
			phone_number = VALUES(phone_number)`
	}

	if _, err := s.db.ExecContext(ctx, query, userID, name, phone, false); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// PhoneOf returns the stored phone number. ok is false when the user is unknown.
func (s *Store) PhoneOf(ctx context.Context, userID int64) (phone string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT phone_number FROM users WHERE user_id = ?", userID).Scan(&phone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query phone number: %w", err)
	}
	return phone, phone != "", nil
}

// IsAdmin reports the administrator flag. Unknown users are not admins.
func (s *Store) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var isAdmin bool
	err := s.db.QueryRowContext(ctx, "SELECT is_admin FROM users WHERE user_id = ?", userID).Scan(&isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query admin flag: %w", err)
	}
	return isAdmin, nil
}

// SetAdmin changes the administrator flag of an existing user
func (s *Store) SetAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET is_admin = ? WHERE user_id = ?", isAdmin, userID)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("user %d not found", userID)
	}
	return nil
}

// GetUser returns a user or nil when unknown
func (s *Store) GetUser(ctx context.Context, userID int64) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, user_name, phone_number, is_admin FROM users WHERE user_id = ?", userID,
	).Scan(&u.ID, &u.Name, &u.PhoneNumber, &u.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}
