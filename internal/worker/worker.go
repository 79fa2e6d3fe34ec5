// Package worker drains the sync queue into the Google Sheets mirror.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"slotbook/internal/database"
	"slotbook/internal/models"
)

const (
	batchSize  = 20
	maxRetries = 5
)

// Queue is the persistence surface of the worker.
type Queue interface {
	DequeueSyncTasks(ctx context.Context, limit int) ([]database.SyncTask, error)
	MarkSyncDone(ctx context.Context, taskID int64) error
	MarkSyncFailed(ctx context.Context, taskID int64, taskErr error, maxRetries int) error
	GetBooking(ctx context.Context, internalID string) (*models.Booking, error)
}

// Mirror receives booking rows.
type Mirror interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
}

// SyncWorker polls the queue, pushing each change to the mirror. The
// queue survives restarts so no booking change is ever lost to a sheet
// outage; failed tasks back off and retry.
type SyncWorker struct {
	queue    Queue
	mirror   Mirror
	interval time.Duration
	logger   *zerolog.Logger
}

func NewSyncWorker(queue Queue, mirror Mirror, interval time.Duration, logger *zerolog.Logger) *SyncWorker {
	sub := logger.With().Str("component", "sync_worker").Logger()
	return &SyncWorker{queue: queue, mirror: mirror, interval: interval, logger: &sub}
}

// Start blocks until ctx is cancelled.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("sync worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("sync worker stopped")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch drains one batch of due tasks.
func (w *SyncWorker) ProcessBatch(ctx context.Context) {
	tasks, err := w.queue.DequeueSyncTasks(ctx, batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("dequeue failed")
		return
	}

	for _, task := range tasks {
		if err := w.process(ctx, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).
				Int("retry", task.RetryCount).Msg("sync task failed")
			if markErr := w.queue.MarkSyncFailed(ctx, task.ID, err, maxRetries); markErr != nil {
				w.logger.Error().Err(markErr).Int64("task_id", task.ID).Msg("mark failed")
			}
			continue
		}
		if err := w.queue.MarkSyncDone(ctx, task.ID); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark done")
		}
	}
}

func (w *SyncWorker) process(ctx context.Context, task database.SyncTask) error {
	booking, err := w.queue.GetBooking(ctx, task.InternalID)
	if errors.Is(err, database.ErrNotFound) {
		// The booking disappeared; drop the task rather than retry forever.
		w.logger.Warn().Str("internal_id", task.InternalID).Msg("booking gone, task dropped")
		return nil
	}
	if err != nil {
		return err
	}

	switch task.TaskType {
	case database.SyncTaskUpsert, database.SyncTaskStatusUpdate:
		return w.mirror.UpsertBooking(ctx, booking)
	default:
		w.logger.Warn().Str("task_type", task.TaskType).Msg("unknown task type, dropped")
		return nil
	}
}
