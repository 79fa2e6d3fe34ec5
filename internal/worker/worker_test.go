package worker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"slotbook/internal/database"
	"slotbook/internal/models"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) DequeueSyncTasks(ctx context.Context, limit int) ([]database.SyncTask, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]database.SyncTask), args.Error(1)
}

func (m *mockQueue) MarkSyncDone(ctx context.Context, taskID int64) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *mockQueue) MarkSyncFailed(ctx context.Context, taskID int64, taskErr error, maxRetries int) error {
	return m.Called(ctx, taskID, taskErr, maxRetries).Error(0)
}

func (m *mockQueue) GetBooking(ctx context.Context, internalID string) (*models.Booking, error) {
	args := m.Called(ctx, internalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

type mockMirror struct {
	mock.Mock
}

func (m *mockMirror) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func newTestWorker(queue Queue, mirror Mirror) *SyncWorker {
	logger := zerolog.New(io.Discard)
	return NewSyncWorker(queue, mirror, time.Second, &logger)
}

func TestProcessBatchSuccess(t *testing.T) {
	queue := new(mockQueue)
	mirror := new(mockMirror)
	ctx := context.Background()

	booking := &models.Booking{InternalID: "uuid-1", BookingID: "BK-1"}
	tasks := []database.SyncTask{{ID: 7, TaskType: database.SyncTaskUpsert, InternalID: "uuid-1"}}

	queue.On("DequeueSyncTasks", ctx, batchSize).Return(tasks, nil)
	queue.On("GetBooking", ctx, "uuid-1").Return(booking, nil)
	mirror.On("UpsertBooking", ctx, booking).Return(nil)
	queue.On("MarkSyncDone", ctx, int64(7)).Return(nil)

	newTestWorker(queue, mirror).ProcessBatch(ctx)

	queue.AssertExpectations(t)
	mirror.AssertExpectations(t)
}

func TestProcessBatchMirrorFailure(t *testing.T) {
	queue := new(mockQueue)
	mirror := new(mockMirror)
	ctx := context.Background()

	booking := &models.Booking{InternalID: "uuid-1"}
	tasks := []database.SyncTask{{ID: 7, TaskType: database.SyncTaskStatusUpdate, InternalID: "uuid-1"}}
	sheetErr := errors.New("quota exceeded")

	queue.On("DequeueSyncTasks", ctx, batchSize).Return(tasks, nil)
	queue.On("GetBooking", ctx, "uuid-1").Return(booking, nil)
	mirror.On("UpsertBooking", ctx, booking).Return(sheetErr)
	queue.On("MarkSyncFailed", ctx, int64(7), sheetErr, maxRetries).Return(nil)

	newTestWorker(queue, mirror).ProcessBatch(ctx)

	queue.AssertExpectations(t)
	queue.AssertNotCalled(t, "MarkSyncDone", mock.Anything, mock.Anything)
}

func TestProcessBatchBookingGone(t *testing.T) {
	queue := new(mockQueue)
	mirror := new(mockMirror)
	ctx := context.Background()

	tasks := []database.SyncTask{{ID: 9, TaskType: database.SyncTaskUpsert, InternalID: "missing"}}

	queue.On("DequeueSyncTasks", ctx, batchSize).Return(tasks, nil)
	queue.On("GetBooking", ctx, "missing").Return(nil, database.ErrNotFound)
	queue.On("MarkSyncDone", ctx, int64(9)).Return(nil)

	newTestWorker(queue, mirror).ProcessBatch(ctx)

	queue.AssertExpectations(t)
	mirror.AssertNotCalled(t, "UpsertBooking", mock.Anything, mock.Anything)
}

func TestProcessBatchDequeueError(t *testing.T) {
	queue := new(mockQueue)
	mirror := new(mockMirror)
	ctx := context.Background()

	queue.On("DequeueSyncTasks", ctx, batchSize).Return(nil, errors.New("db locked"))

	newTestWorker(queue, mirror).ProcessBatch(ctx)

	mirror.AssertNotCalled(t, "UpsertBooking", mock.Anything, mock.Anything)
}

func TestStartStopsOnCancel(t *testing.T) {
	queue := new(mockQueue)
	mirror := new(mockMirror)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		newTestWorker(queue, mirror).Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}
