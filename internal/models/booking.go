// Package models defines the booking domain types shared across the service.
package models

import (
	"fmt"
	"time"
)

// DateLayout is the canonical storage format for booking dates.
const DateLayout = "2006-01-02"

// TotalSlotsPerDay is the number of bookable one-hour slots on a regular day.
const TotalSlotsPerDay = 8

// TimeSlots is the fixed daily slot grid, 09:00 through 17:00.
var TimeSlots = []string{
	"09:00-10:00",
	"10:00-11:00",
	"11:00-12:00",
	"12:00-13:00",
	"13:00-14:00",
	"14:00-15:00",
	"15:00-16:00",
	"16:00-17:00",
}

// IsValidTimeSlot reports whether s is one of the fixed daily slots.
func IsValidTimeSlot(s string) bool {
	for _, slot := range TimeSlots {
		if slot == s {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusConfirmed Status = "confirmed"
	StatusDenied    Status = "denied"
	StatusCancelled Status = "cancelled"
	// StatusCompleted is derived at read time for past bookings; it is
	// never written to the store.
	StatusCompleted Status = "completed"
)

// ParseStatus validates a raw status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusConfirmed, StatusDenied, StatusCancelled, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// IsActive reports whether the status counts against slot capacity.
// Only cancelled bookings free their slot; a denied booking keeps
// occupying it until an admin cancels it.
func (s Status) IsActive() bool {
	return s != StatusCancelled
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusDenied
}

// adminTransitions is the transition table for administrative decisions.
// Cancellation is handled separately because it is owner-initiated.
var adminTransitions = map[Status][]Status{
	StatusPending: {StatusApproved, StatusDenied},
}

// CanTransitionTo reports whether an administrative transition from s to
// target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range adminTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanBeCancelled reports whether an owner or admin may cancel a booking
// in this status. Cancelling an already-cancelled booking is permitted
// as a no-op so that retries stay safe.
func (s Status) CanBeCancelled() bool {
	return s != StatusDenied
}

// Resource identifies a bookable asset.
type Resource string

const (
	ResourceMeetingRoom   Resource = "meeting-room"
	ResourceSportsGround  Resource = "sports-ground"
	ResourceCommunityHall Resource = "community-hall"
)

// Resources lists all bookable resources.
var Resources = []Resource{ResourceMeetingRoom, ResourceSportsGround, ResourceCommunityHall}

var resourceNames = map[Resource]string{
	ResourceMeetingRoom:   "Meeting Room",
	ResourceSportsGround:  "Sports Ground",
	ResourceCommunityHall: "Community Hall",
}

// IsValid reports whether the resource is one of the bookable spaces.
func (r Resource) IsValid() bool {
	_, ok := resourceNames[r]
	return ok
}

// DisplayName returns the human-readable name of the resource.
func (r Resource) DisplayName() string {
	if name, ok := resourceNames[r]; ok {
		return name
	}
	return string(r)
}

// Identity describes the actor performing an operation, supplied by the
// external identity provider. The core never manages credentials.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// IsZero reports whether no identity is present.
func (id Identity) IsZero() bool {
	return id.UID == ""
}

// Booking is the central entity: one reservation of a resource for a
// fixed one-hour slot on a calendar day.
type Booking struct {
	InternalID    string    `json:"internal_id"`
	BookingID     string    `json:"booking_id"`
	Resource      Resource  `json:"resource"`
	Date          string    `json:"date"` // YYYY-MM-DD
	TimeSlot      string    `json:"time_slot"`
	Purpose       string    `json:"purpose"`
	RequesterID   string    `json:"requester_id"`
	RequesterMail string    `json:"requester_email"`
	RequesterName string    `json:"requester_name"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UpdatedBy     string    `json:"updated_by,omitempty"`
	Version       int64     `json:"version"`
}

// DateValue parses the stored date string.
func (b *Booking) DateValue() (time.Time, error) {
	return time.Parse(DateLayout, b.Date)
}

// IsPast reports whether the booking's date is strictly before today.
func (b *Booking) IsPast(now time.Time) bool {
	d, err := b.DateValue()
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return d.Before(today)
}

// DisplayStatus returns the status to show to users: past bookings that
// were not cancelled or denied read as completed.
func (b *Booking) DisplayStatus(now time.Time) Status {
	if b.Status.IsTerminal() {
		return b.Status
	}
	if b.IsPast(now) {
		return StatusCompleted
	}
	return b.Status
}

// IsOwnedBy reports whether the requester identified by uid owns the booking.
func (b *Booking) IsOwnedBy(uid string) bool {
	return uid != "" && b.RequesterID == uid
}
