package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeSlots_Grid(t *testing.T) {
	assert.Len(t, TimeSlots, TotalSlotsPerDay)
	assert.Equal(t, "09:00-10:00", TimeSlots[0])
	assert.Equal(t, "16:00-17:00", TimeSlots[len(TimeSlots)-1])

	assert.True(t, IsValidTimeSlot("12:00-13:00"))
	assert.False(t, IsValidTimeSlot("17:00-18:00"))
	assert.False(t, IsValidTimeSlot("9:00-10:00"))
	assert.False(t, IsValidTimeSlot(""))
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "approved", "confirmed", "denied", "cancelled", "completed"} {
		got, err := ParseStatus(s)
		assert.NoError(t, err)
		assert.Equal(t, Status(s), got)
	}

	_, err := ParseStatus("rejected")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestStatus_IsActive(t *testing.T) {
	assert.True(t, StatusPending.IsActive())
	assert.True(t, StatusApproved.IsActive())
	assert.True(t, StatusConfirmed.IsActive())
	assert.True(t, StatusDenied.IsActive(), "denied bookings keep occupying the slot")
	assert.False(t, StatusCancelled.IsActive())
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusApproved))
	assert.True(t, StatusPending.CanTransitionTo(StatusDenied))

	// Cancellation goes through CancelBooking, never through SetStatus.
	assert.False(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusApproved.CanTransitionTo(StatusDenied))
	assert.False(t, StatusDenied.CanTransitionTo(StatusApproved))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPending))
	assert.False(t, StatusPending.CanTransitionTo(StatusCompleted))
}

func TestStatus_CanBeCancelled(t *testing.T) {
	assert.True(t, StatusPending.CanBeCancelled())
	assert.True(t, StatusApproved.CanBeCancelled())
	assert.True(t, StatusConfirmed.CanBeCancelled())
	assert.True(t, StatusCancelled.CanBeCancelled(), "double cancel is a no-op")
	assert.False(t, StatusDenied.CanBeCancelled())
}

func TestResource(t *testing.T) {
	assert.True(t, ResourceCommunityHall.IsValid())
	assert.False(t, Resource("tennis-court").IsValid())

	assert.Equal(t, "Community Hall", ResourceCommunityHall.DisplayName())
	assert.Equal(t, "Sports Ground", ResourceSportsGround.DisplayName())
	assert.Equal(t, "Meeting Room", ResourceMeetingRoom.DisplayName())
}

func TestBooking_DisplayStatus(t *testing.T) {
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

	past := &Booking{Date: "2025-05-10", Status: StatusApproved}
	assert.Equal(t, StatusCompleted, past.DisplayStatus(now))

	future := &Booking{Date: "2025-05-25", Status: StatusApproved}
	assert.Equal(t, StatusApproved, future.DisplayStatus(now))

	sameDay := &Booking{Date: "2025-05-20", Status: StatusPending}
	assert.Equal(t, StatusPending, sameDay.DisplayStatus(now), "today is not past")

	pastCancelled := &Booking{Date: "2025-05-10", Status: StatusCancelled}
	assert.Equal(t, StatusCancelled, pastCancelled.DisplayStatus(now))

	pastDenied := &Booking{Date: "2025-05-10", Status: StatusDenied}
	assert.Equal(t, StatusDenied, pastDenied.DisplayStatus(now))
}

func TestBooking_IsOwnedBy(t *testing.T) {
	b := &Booking{RequesterID: "user-1"}
	assert.True(t, b.IsOwnedBy("user-1"))
	assert.False(t, b.IsOwnedBy("user-2"))
	assert.False(t, b.IsOwnedBy(""))

	anon := &Booking{}
	assert.False(t, anon.IsOwnedBy(""))
}

func TestIdentity_IsZero(t *testing.T) {
	assert.True(t, Identity{}.IsZero())
	assert.False(t, Identity{UID: "u1"}.IsZero())
}
