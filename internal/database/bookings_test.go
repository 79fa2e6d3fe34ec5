package database

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotbook/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testBooking(resource models.Resource, date, slot string) *models.Booking {
	return &models.Booking{
		InternalID:    uuid.NewString(),
		BookingID:     "BK-12345678ABCDEF",
		Resource:      resource,
		Date:          date,
		TimeSlot:      slot,
		Purpose:       "team meeting",
		RequesterID:   "user-1",
		RequesterMail: "user1@example.com",
		RequesterName: "User One",
		Status:        models.StatusPending,
	}
}

func TestCreateBooking_SlotExclusivity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := testBooking(models.ResourceCommunityHall, "2025-05-10", "09:00-10:00")
	require.NoError(t, db.CreateBooking(ctx, first))

	// Same triple, different requester: must be rejected atomically.
	second := testBooking(models.ResourceCommunityHall, "2025-05-10", "09:00-10:00")
	second.RequesterID = "user-2"
	err := db.CreateBooking(ctx, second)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// Different slot on the same day is fine.
	third := testBooking(models.ResourceCommunityHall, "2025-05-10", "10:00-11:00")
	assert.NoError(t, db.CreateBooking(ctx, third))

	// Same slot on a different resource is fine.
	fourth := testBooking(models.ResourceSportsGround, "2025-05-10", "09:00-10:00")
	assert.NoError(t, db.CreateBooking(ctx, fourth))
}

func TestCreateBooking_CancelledSlotReusable(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := testBooking(models.ResourceMeetingRoom, "2025-06-01", "14:00-15:00")
	require.NoError(t, db.CreateBooking(ctx, first))
	require.NoError(t, db.UpdateBookingStatus(ctx, first.InternalID, first.Version, models.StatusCancelled, "user-1"))

	// Cancelled bookings fall out of the unique index.
	second := testBooking(models.ResourceMeetingRoom, "2025-06-01", "14:00-15:00")
	second.RequesterID = "user-2"
	assert.NoError(t, db.CreateBooking(ctx, second))

	// History is preserved: both rows exist.
	got, err := db.GetBooking(ctx, first.InternalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestCreateBooking_DeniedStillOccupies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := testBooking(models.ResourceMeetingRoom, "2025-06-02", "09:00-10:00")
	require.NoError(t, db.CreateBooking(ctx, first))
	require.NoError(t, db.UpdateBookingStatus(ctx, first.InternalID, first.Version, models.StatusDenied, "admin-1"))

	second := testBooking(models.ResourceMeetingRoom, "2025-06-02", "09:00-10:00")
	second.RequesterID = "user-2"
	assert.ErrorIs(t, db.CreateBooking(ctx, second), ErrSlotTaken)
}

func TestGetBooking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(models.ResourceCommunityHall, "2025-05-11", "11:00-12:00")
	require.NoError(t, db.CreateBooking(ctx, b))

	got, err := db.GetBooking(ctx, b.InternalID)
	require.NoError(t, err)
	assert.Equal(t, b.BookingID, got.BookingID)
	assert.Equal(t, models.ResourceCommunityHall, got.Resource)
	assert.Equal(t, int64(1), got.Version)

	_, err = db.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	byRef, err := db.GetBookingByRef(ctx, b.BookingID)
	require.NoError(t, err)
	assert.Equal(t, b.InternalID, byRef.InternalID)
}

func TestUpdateBookingStatus_VersionConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := testBooking(models.ResourceCommunityHall, "2025-05-12", "09:00-10:00")
	require.NoError(t, db.CreateBooking(ctx, b))

	require.NoError(t, db.UpdateBookingStatus(ctx, b.InternalID, 1, models.StatusApproved, "admin-1"))

	// Stale version loses.
	err := db.UpdateBookingStatus(ctx, b.InternalID, 1, models.StatusDenied, "admin-2")
	assert.ErrorIs(t, err, ErrVersionConflict)

	got, err := db.GetBooking(ctx, b.InternalID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Equal(t, "admin-1", got.UpdatedBy)
	assert.Equal(t, int64(2), got.Version)

	// Missing booking reports NotFound, not a version conflict.
	err = db.UpdateBookingStatus(ctx, "missing", 1, models.StatusApproved, "admin-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCountActiveForSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	count, err := db.CountActiveForSlot(ctx, models.ResourceCommunityHall, "2025-05-13", "09:00-10:00")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	b := testBooking(models.ResourceCommunityHall, "2025-05-13", "09:00-10:00")
	require.NoError(t, db.CreateBooking(ctx, b))

	count, err = db.CountActiveForSlot(ctx, models.ResourceCommunityHall, "2025-05-13", "09:00-10:00")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, db.UpdateBookingStatus(ctx, b.InternalID, 1, models.StatusCancelled, "user-1"))
	count, err = db.CountActiveForSlot(ctx, models.ResourceCommunityHall, "2025-05-13", "09:00-10:00")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestGetBookingsByDateRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	dates := []string{"2025-04-30", "2025-05-01", "2025-05-15", "2025-05-31", "2025-06-01"}
	for i, date := range dates {
		b := testBooking(models.ResourceCommunityHall, date, models.TimeSlots[i])
		require.NoError(t, db.CreateBooking(ctx, b))
	}

	got, err := db.GetBookingsByDateRange(ctx, "2025-05-01", "2025-05-31")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2025-05-01", got[0].Date)
	assert.Equal(t, "2025-05-31", got[2].Date)
}

func TestGetUserBookings(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mine := testBooking(models.ResourceCommunityHall, "2025-05-20", "09:00-10:00")
	require.NoError(t, db.CreateBooking(ctx, mine))

	cancelled := testBooking(models.ResourceCommunityHall, "2025-05-21", "09:00-10:00")
	require.NoError(t, db.CreateBooking(ctx, cancelled))
	require.NoError(t, db.UpdateBookingStatus(ctx, cancelled.InternalID, 1, models.StatusCancelled, "user-1"))

	other := testBooking(models.ResourceCommunityHall, "2025-05-22", "09:00-10:00")
	other.RequesterID = "user-2"
	require.NoError(t, db.CreateBooking(ctx, other))

	all, err := db.GetUserBookings(ctx, "user-1", "", "", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := db.GetUserBookings(ctx, "user-1", "", "", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, mine.InternalID, active[0].InternalID)

	ranged, err := db.GetUserBookings(ctx, "user-1", "2025-05-21", "2025-05-31", false)
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, cancelled.InternalID, ranged[0].InternalID)
}

func TestListBookings_StatusFilter(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	pending := testBooking(models.ResourceCommunityHall, "2025-05-25", "09:00-10:00")
	require.NoError(t, db.CreateBooking(ctx, pending))

	approved := testBooking(models.ResourceCommunityHall, "2025-05-25", "10:00-11:00")
	require.NoError(t, db.CreateBooking(ctx, approved))
	require.NoError(t, db.UpdateBookingStatus(ctx, approved.InternalID, 1, models.StatusApproved, "admin-1"))

	all, err := db.ListBookings(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyPending, err := db.ListBookings(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, onlyPending, 1)
	assert.Equal(t, pending.InternalID, onlyPending[0].InternalID)
}

func TestAccessControl(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.SeedAdmins(ctx, []string{"admin-1", "", "admin-2"}))

	isAdmin, err := db.IsAdmin(ctx, "admin-1")
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = db.IsAdmin(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, isAdmin)

	// Seeding twice is idempotent.
	require.NoError(t, db.SeedAdmins(ctx, []string{"admin-1"}))

	require.NoError(t, db.BlockRequester(ctx, "user-9", "spam bookings", "admin-1"))
	blocked, err := db.IsBlocked(ctx, "user-9")
	require.NoError(t, err)
	assert.True(t, blocked)

	br, err := db.GetBlockedRequester(ctx, "user-9")
	require.NoError(t, err)
	require.NotNil(t, br)
	assert.Equal(t, "spam bookings", br.Reason)

	require.NoError(t, db.UnblockRequester(ctx, "user-9"))
	blocked, err = db.IsBlocked(ctx, "user-9")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestSyncQueue(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.EnqueueSyncTask(ctx, SyncTaskUpsert, "id-1"))
	require.NoError(t, db.EnqueueSyncTask(ctx, SyncTaskStatusUpdate, "id-2"))

	tasks, err := db.DequeueSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, SyncTaskUpsert, tasks[0].TaskType)

	require.NoError(t, db.MarkSyncDone(ctx, tasks[0].ID))

	tasks, err = db.DequeueSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "id-2", tasks[0].InternalID)

	// Failure schedules a retry in the future, so the task is no longer due.
	require.NoError(t, db.MarkSyncFailed(ctx, tasks[0].ID, assert.AnError, 5))
	tasks, err = db.DequeueSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
