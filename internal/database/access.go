package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BlockedRequester is a requester barred from creating bookings.
type BlockedRequester struct {
	UID       string
	BlockedAt time.Time
	Reason    string
	BlockedBy string
}

// IsAdmin checks if a requester has administrative rights.
func (db *DB) IsAdmin(ctx context.Context, uid string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM admins WHERE uid = ?", uid,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return count > 0, nil
}

// SeedAdmins inserts the configured admin UIDs if missing.
func (db *DB) SeedAdmins(ctx context.Context, uids []string) error {
	for _, uid := range uids {
		if uid == "" {
			continue
		}
		_, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO admins (uid, added_by) VALUES (?, 'config')`, uid)
		if err != nil {
			return fmt.Errorf("seed admin %s: %w", uid, err)
		}
	}
	return nil
}

// AddAdmin grants administrative rights.
func (db *DB) AddAdmin(ctx context.Context, uid, addedBy string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO admins (uid, added_at, added_by) VALUES (?, ?, ?)`,
		uid, time.Now().UTC(), addedBy)
	return err
}

// IsBlocked checks if a requester is on the denylist.
func (db *DB) IsBlocked(ctx context.Context, uid string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM blocked_requesters WHERE uid = ?", uid,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check blocked: %w", err)
	}
	return count > 0, nil
}

// GetBlockedRequester returns denylist details, or nil when not blocked.
func (db *DB) GetBlockedRequester(ctx context.Context, uid string) (*BlockedRequester, error) {
	var br BlockedRequester
	err := db.QueryRowContext(ctx,
		"SELECT uid, blocked_at, reason, blocked_by FROM blocked_requesters WHERE uid = ?",
		uid,
	).Scan(&br.UID, &br.BlockedAt, &br.Reason, &br.BlockedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &br, nil
}

// BlockRequester adds a requester to the denylist.
func (db *DB) BlockRequester(ctx context.Context, uid, reason, blockedBy string) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO blocked_requesters (uid, blocked_at, reason, blocked_by)
		VALUES (?, ?, ?, ?)`,
		uid, time.Now().UTC(), reason, blockedBy)
	return err
}

// UnblockRequester removes a requester from the denylist.
func (db *DB) UnblockRequester(ctx context.Context, uid string) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM blocked_requesters WHERE uid = ?", uid)
	return err
}

// ListBlockedRequesters returns the denylist, newest first.
func (db *DB) ListBlockedRequesters(ctx context.Context) ([]BlockedRequester, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT uid, blocked_at, reason, blocked_by FROM blocked_requesters
		ORDER BY blocked_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocked []BlockedRequester
	for rows.Next() {
		var br BlockedRequester
		if err := rows.Scan(&br.UID, &br.BlockedAt, &br.Reason, &br.BlockedBy); err != nil {
			return nil, err
		}
		blocked = append(blocked, br)
	}
	return blocked, rows.Err()
}
