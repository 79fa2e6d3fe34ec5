package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Sync task types understood by the sheet worker.
const (
	SyncTaskUpsert       = "upsert"
	SyncTaskStatusUpdate = "update_status"
)

// SyncTask is a pending outbound synchronization job.
type SyncTask struct {
	ID         int64
	TaskType   string
	InternalID string
	RetryCount int
	CreatedAt  time.Time
}

// EnqueueSyncTask records a booking change for the sheet worker.
func (db *DB) EnqueueSyncTask(ctx context.Context, taskType, internalID string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_queue (task_type, internal_id, status, created_at, next_retry_at)
		VALUES (?, ?, 'pending', ?, ?)`,
		taskType, internalID, time.Now().UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("enqueue sync task: %w", err)
	}
	return nil
}

// DequeueSyncTasks returns due pending tasks, oldest first.
func (db *DB) DequeueSyncTasks(ctx context.Context, limit int) ([]SyncTask, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, task_type, internal_id, retry_count, created_at
		FROM sync_queue
		WHERE status = 'pending' AND next_retry_at <= ?
		ORDER BY created_at
		LIMIT ?`,
		time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []SyncTask
	for rows.Next() {
		var t SyncTask
		if err := rows.Scan(&t.ID, &t.TaskType, &t.InternalID, &t.RetryCount, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkSyncDone marks a task as processed.
func (db *DB) MarkSyncDone(ctx context.Context, taskID int64) error {
	_, err := db.ExecContext(ctx, `
		UPDATE sync_queue SET status = 'done', processed_at = ? WHERE id = ?`,
		time.Now().UTC(), taskID)
	return err
}

// MarkSyncFailed records a failure and schedules the next retry with
// exponential backoff; tasks give up after maxRetries.
func (db *DB) MarkSyncFailed(ctx context.Context, taskID int64, taskErr error, maxRetries int) error {
	var retryCount int
	err := db.QueryRowContext(ctx,
		"SELECT retry_count FROM sync_queue WHERE id = ?", taskID,
	).Scan(&retryCount)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	retryCount++
	status := "pending"
	if retryCount >= maxRetries {
		status = "failed"
	}
	backoff := time.Duration(1<<uint(retryCount)) * time.Minute

	_, err = db.ExecContext(ctx, `
		UPDATE sync_queue
		SET status = ?, retry_count = ?, last_error = ?, next_retry_at = ?
		WHERE id = ?`,
		status, retryCount, taskErr.Error(), time.Now().UTC().Add(backoff), taskID)
	return err
}
