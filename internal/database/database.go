// Package database implements the SQLite-backed booking store.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sql.DB connection for the booking store.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

var (
	// ErrSlotTaken is returned when an insert would violate the
	// one-active-booking-per-slot invariant. The partial unique index on
	// (resource, date, time_slot) makes the check-and-insert atomic, so
	// racing writers get this error instead of a double booking.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrNotFound is returned when a referenced booking does not exist.
	ErrNotFound = errors.New("booking not found")

	// ErrVersionConflict is returned when an optimistic status update
	// lost against a concurrent modification.
	ErrVersionConflict = errors.New("concurrent modification")
)

// NewDB opens the database at path, applying WAL mode and running migrations.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			internal_id TEXT PRIMARY KEY,
			booking_id TEXT NOT NULL,
			resource TEXT NOT NULL,
			date TEXT NOT NULL,
			time_slot TEXT NOT NULL,
			purpose TEXT NOT NULL,
			requester_id TEXT NOT NULL,
			requester_email TEXT NOT NULL DEFAULT '',
			requester_name TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			updated_by TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1
		)`,

		// Single-slot exclusivity. Cancelled bookings fall out of the
		// index, so a cancelled slot can be re-booked while history is
		// preserved.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_slot
			ON bookings(resource, date, time_slot)
			WHERE status != 'cancelled'`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_requester ON bookings(requester_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_booking_id ON bookings(booking_id)`,

		// Administrators, seeded from config at startup.
		`CREATE TABLE IF NOT EXISTS admins (
			uid TEXT PRIMARY KEY,
			added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			added_by TEXT NOT NULL DEFAULT ''
		)`,

		// Requesters barred from creating new bookings.
		`CREATE TABLE IF NOT EXISTS blocked_requesters (
			uid TEXT PRIMARY KEY,
			blocked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reason TEXT NOT NULL DEFAULT '',
			blocked_by TEXT NOT NULL
		)`,

		// Outbound sheet synchronization queue.
		`CREATE TABLE IF NOT EXISTS sync_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_type TEXT NOT NULL,
			internal_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			processed_at DATETIME,
			next_retry_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
