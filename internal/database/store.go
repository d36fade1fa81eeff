// Copyright (c) 2025 Northbound System
// Author: Nicholas Skitch
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"
)

// ErrUnsupportedDriver is returned for drivers other than sqlite3 and mysql
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Store is the durable store for organizations, users, queue entries,
// action history and broadcast records. It wraps a pooled *sql.DB.
type Store struct {
	db     *sql.DB
	driver string
}

// Open opens a connection pool for driver/dsn. SQLite allows a single writer
// so its pool is capped at one connection.
func Open(driver, dsn string, maxOpenConns int) (*sql.DB, error) {
	if driver != "sqlite3" && driver != "mysql" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite3" || maxOpenConns < 1 {
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return db, nil
}

// NewStore creates a store over db and creates the schema if needed
func NewStore(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	if driver != "sqlite3" && driver != "mysql" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDriver, driver)
	}

	store := &Store{db: db, driver: driver}
	if err := store.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// DB exposes the underlying pool for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// initSchema creates all tables. Statements run one at a time because the
// mysql driver rejects multi-statement Exec by default.
func (s *Store) initSchema(ctx context.Context) error {
	statements := sqliteSchema
	if s.driver == "mysql" {
		statements = mysqlSchema
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	log.Printf("initSchema: schema ready driver=%s", s.driver)
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		org_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		user_name TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS queue (
		user_id INTEGER NOT NULL,
		org_id INTEGER NOT NULL,
		join_time DATETIME NOT NULL,
		PRIMARY KEY (user_id, org_id),
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE,
		FOREIGN KEY (org_id) REFERENCES organizations(org_id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_queue_join_time ON queue(join_time)`,
	`CREATE TABLE IF NOT EXISTS user_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		action TEXT NOT NULL,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_history_user ON user_history(user_id, timestamp DESC)`,
	`CREATE TABLE IF NOT EXISTS broadcast_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		admin_id INTEGER NOT NULL,
		message_text TEXT NOT NULL,
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (admin_id) REFERENCES users(user_id) ON DELETE CASCADE
	)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		org_id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		UNIQUE (name)
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		user_name VARCHAR(255) NOT NULL,
		phone_number VARCHAR(20) NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS queue (
		user_id BIGINT NOT NULL,
		org_id BIGINT NOT NULL,
		join_time DATETIME(6) NOT NULL,
		PRIMARY KEY (user_id, org_id),
		INDEX idx_queue_join_time (join_time),
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE,
		FOREIGN KEY (org_id) REFERENCES organizations(org_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS user_history (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		action VARCHAR(255) NOT NULL,
		timestamp DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_user_history_user (user_id, timestamp),
		FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS broadcast_messages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		admin_id BIGINT NOT NULL,
		message_text TEXT NOT NULL,
		timestamp DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		FOREIGN KEY (admin_id) REFERENCES users(user_id) ON DELETE CASCADE
	)`,
}

// withTx runs fn inside a transaction. A failed rollback is reported
// together with the error that caused it.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			err = multierror.Append(err, rollbackErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			err = multierror.Append(err, rollbackErr)
		}
		return err
	}
	return nil
}
