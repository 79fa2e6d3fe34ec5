// Package availability answers whether a slot or day can accept a reservation.
package availability

import (
	"context"
	"fmt"
	"time"

	"slotbook/internal/models"
)

// DayStatus is the aggregate availability of a calendar day.
type DayStatus string

const (
	DayAvailable   DayStatus = "available"
	DayBooked      DayStatus = "booked"
	DayMaintenance DayStatus = "maintenance"
)

// DayInfo summarizes a day's capacity for calendar display.
type DayInfo struct {
	Status         DayStatus `json:"status"`
	AvailableSlots int       `json:"available_slots"`
	TotalSlots     int       `json:"total_slots"`
}

// SlotCounter counts active bookings occupying a slot triple.
type SlotCounter interface {
	CountActiveForSlot(ctx context.Context, resource models.Resource, date, timeSlot string) (int, error)
}

// Engine decides slot and day availability. Blackout days of month are
// closed for maintenance regardless of bookings.
type Engine struct {
	store        SlotCounter
	blackoutDays map[int]bool
}

// NewEngine creates an engine. blackoutDays are days of month (1..31)
// on which no slot is bookable.
func NewEngine(store SlotCounter, blackoutDays []int) *Engine {
	blackout := make(map[int]bool, len(blackoutDays))
	for _, d := range blackoutDays {
		blackout[d] = true
	}
	return &Engine{store: store, blackoutDays: blackout}
}

// IsSlotAvailable reports whether the resource is free at date/slot.
// A store failure is returned as-is; callers must treat it as "not
// available" rather than letting a booking through.
func (e *Engine) IsSlotAvailable(ctx context.Context, resource models.Resource, date, timeSlot string) (bool, error) {
	parsed, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return false, fmt.Errorf("parse date %q: %w", date, err)
	}
	if e.IsBlackoutDay(parsed) {
		return false, nil
	}

	count, err := e.store.CountActiveForSlot(ctx, resource, date, timeSlot)
	if err != nil {
		return false, fmt.Errorf("count active bookings: %w", err)
	}
	return count == 0, nil
}

// IsBlackoutDay reports whether the date falls on a maintenance day.
func (e *Engine) IsBlackoutDay(date time.Time) bool {
	return e.blackoutDays[date.Day()]
}

// DayAvailability aggregates a day's status from its active booking
// count. Maintenance days report zero slots regardless of bookings.
func (e *Engine) DayAvailability(date time.Time, activeBookings int) DayInfo {
	if e.IsBlackoutDay(date) {
		return DayInfo{Status: DayMaintenance, AvailableSlots: 0, TotalSlots: 0}
	}

	available := models.TotalSlotsPerDay - activeBookings
	if available <= 0 {
		return DayInfo{Status: DayBooked, AvailableSlots: 0, TotalSlots: models.TotalSlotsPerDay}
	}
	return DayInfo{Status: DayAvailable, AvailableSlots: available, TotalSlots: models.TotalSlotsPerDay}
}
