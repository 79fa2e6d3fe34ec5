// Package events provides in-process pub/sub for booking lifecycle events.
package events

import (
	"sync"
	"time"

	"slotbook/internal/models"
)

// Event types published by the booking service.
const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
	TypeBookingDecided   = "booking.decided"
)

// Event carries a booking lifecycle change to subscribers.
type Event struct {
	Type      string
	Booking   models.Booking
	Actor     string
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub for booking events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every booking event type.
func (b *Bus) SubscribeAll(handler Handler) {
	for _, t := range []string{TypeBookingCreated, TypeBookingCancelled, TypeBookingDecided} {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		handler(event)
	}
}
