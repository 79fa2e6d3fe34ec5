package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"slotbook/internal/models"
)

const bookingColumns = `internal_id, booking_id, resource, date, time_slot, purpose,
	requester_id, requester_email, requester_name, status,
	created_at, updated_at, updated_by, version`

// CreateBooking inserts a new booking. The partial unique index on
// (resource, date, time_slot) for non-cancelled rows makes this the
// single atomic conflict check: a racing writer receives ErrSlotTaken.
func (db *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1

	_, err := db.ExecContext(ctx, `
		INSERT INTO bookings (
			internal_id, booking_id, resource, date, time_slot, purpose,
			requester_id, requester_email, requester_name, status,
			created_at, updated_at, updated_by, version
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.InternalID, b.BookingID, string(b.Resource), b.Date, b.TimeSlot, b.Purpose,
		b.RequesterID, b.RequesterMail, b.RequesterName, string(b.Status),
		b.CreatedAt, b.UpdatedAt, b.UpdatedBy, b.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// GetBooking loads a booking by its internal storage key.
func (db *DB) GetBooking(ctx context.Context, internalID string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE internal_id = ?`, internalID)
	return scanBooking(row)
}

// GetBookingByRef loads a booking by its human-readable reference.
// References are not guaranteed globally unique; the earliest created
// match wins.
func (db *DB) GetBookingByRef(ctx context.Context, bookingID string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ? ORDER BY created_at LIMIT 1`,
		bookingID)
	return scanBooking(row)
}

// UpdateBookingStatus transitions a booking with optimistic locking.
// The version check keeps racing administrative decisions from
// clobbering each other.
func (db *DB) UpdateBookingStatus(ctx context.Context, internalID string, version int64, status models.Status, updatedBy string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, updated_at = ?, updated_by = ?, version = version + 1
		WHERE internal_id = ? AND version = ?`,
		string(status), time.Now().UTC(), updatedBy, internalID, version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Un-cancelling into an occupied slot would resurrect a
			// conflict; surface it the same way as a racing insert.
			return ErrSlotTaken
		}
		return fmt.Errorf("update booking status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := db.GetBooking(ctx, internalID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	return nil
}

// CountActiveForSlot counts non-cancelled bookings occupying the triple.
func (db *DB) CountActiveForSlot(ctx context.Context, resource models.Resource, date, timeSlot string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE resource = ? AND date = ? AND time_slot = ?
		AND status != 'cancelled'`,
		string(resource), date, timeSlot,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active for slot: %w", err)
	}
	return count, nil
}

// GetBookingsByDateRange returns all bookings with date in [from, to],
// ordered by date then slot. Dates are YYYY-MM-DD strings, which sort
// lexicographically.
func (db *DB) GetBookingsByDateRange(ctx context.Context, from, to string) ([]models.Booking, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings
		WHERE date >= ? AND date <= ?
		ORDER BY date, time_slot`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query date range: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// GetUserBookings returns a requester's bookings ordered by date.
func (db *DB) GetUserBookings(ctx context.Context, requesterID, from, to string, excludeCancelled bool) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE requester_id = ?`
	args := []interface{}{requesterID}

	if from != "" {
		query += ` AND date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND date <= ?`
		args = append(args, to)
	}
	if excludeCancelled {
		query += ` AND status != 'cancelled'`
	}
	query += ` ORDER BY date, time_slot`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListBookings returns all bookings, optionally filtered by status,
// newest first. Free-text search happens in the service layer where
// resource display names are known.
func (db *DB) ListBookings(ctx context.Context, status models.Status) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var resource, status string
	err := row.Scan(
		&b.InternalID, &b.BookingID, &resource, &b.Date, &b.TimeSlot, &b.Purpose,
		&b.RequesterID, &b.RequesterMail, &b.RequesterName, &status,
		&b.CreatedAt, &b.UpdatedAt, &b.UpdatedBy, &b.Version,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan booking: %w", err)
	}
	b.Resource = models.Resource(resource)
	b.Status = models.Status(status)
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
