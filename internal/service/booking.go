// Package service implements the booking lifecycle: creation,
// cancellation, and administrative decisions.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"slotbook/internal/database"
	"slotbook/internal/events"
	"slotbook/internal/metrics"
	"slotbook/internal/models"
)

// Repository is the booking store surface the service depends on.
type Repository interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBookingByRef(ctx context.Context, bookingID string) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, internalID string, version int64, status models.Status, updatedBy string) error
	GetUserBookings(ctx context.Context, requesterID, from, to string, excludeCancelled bool) ([]models.Booking, error)
	ListBookings(ctx context.Context, status models.Status) ([]models.Booking, error)
}

// AvailabilityChecker re-validates a slot before the atomic write.
type AvailabilityChecker interface {
	IsSlotAvailable(ctx context.Context, resource models.Resource, date, timeSlot string) (bool, error)
}

// AccessChecker answers admin and denylist questions.
type AccessChecker interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
	IsBlocked(ctx context.Context, uid string) (bool, error)
}

// EventPublisher broadcasts lifecycle events.
type EventPublisher interface {
	Publish(event events.Event)
}

// SyncEnqueuer records booking changes for the sheet worker.
type SyncEnqueuer interface {
	EnqueueSyncTask(ctx context.Context, taskType, internalID string) error
}

// IDGenerator mints booking references.
type IDGenerator interface {
	Generate() string
}

// CreateRequest carries user input for a new booking.
type CreateRequest struct {
	Resource models.Resource `json:"resource"`
	Date     string          `json:"date"`
	TimeSlot string          `json:"time_slot"`
	Purpose  string          `json:"purpose"`
}

// ListOptions filters a requester's booking list.
type ListOptions struct {
	From             string
	To               string
	ExcludeCancelled bool
}

// ListFilter filters the administrative booking list.
type ListFilter struct {
	Status     models.Status
	SearchTerm string
}

// BookingService owns the booking lifecycle.
type BookingService struct {
	repo         Repository
	availability AvailabilityChecker
	access       AccessChecker
	bus          EventPublisher
	sync         SyncEnqueuer
	idgen        IDGenerator
	maxAdvance   time.Duration
	queryTimeout time.Duration
	now          func() time.Time
	logger       *zerolog.Logger
}

// NewBookingService wires the lifecycle manager.
func NewBookingService(
	repo Repository,
	availability AvailabilityChecker,
	access AccessChecker,
	bus EventPublisher,
	sync SyncEnqueuer,
	idgen IDGenerator,
	maxAdvance time.Duration,
	queryTimeout time.Duration,
	logger *zerolog.Logger,
) *BookingService {
	if queryTimeout <= 0 {
		queryTimeout = 5 * time.Second
	}
	return &BookingService{
		repo:         repo,
		availability: availability,
		access:       access,
		bus:          bus,
		sync:         sync,
		idgen:        idgen,
		maxAdvance:   maxAdvance,
		queryTimeout: queryTimeout,
		now:          time.Now,
		logger:       logger,
	}
}

func (s *BookingService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// CreateBooking validates the request, re-checks availability, and
// performs the atomic conditional insert. Racing writers for the same
// slot get ErrSlotConflict from the store's unique index, identical to
// the pre-check failure path.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateRequest, actor models.Identity) (*models.Booking, error) {
	if actor.IsZero() {
		return nil, ErrNotAuthenticated
	}
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	blocked, err := s.access.IsBlocked(ctx, actor.UID)
	if err != nil {
		return nil, &QueryError{Op: "check denylist", Err: err}
	}
	if blocked {
		return nil, ErrPermissionDenied
	}

	// Pre-check gives a friendly early failure; the insert below is the
	// authoritative atomic check.
	available, err := s.availability.IsSlotAvailable(ctx, req.Resource, req.Date, req.TimeSlot)
	if err != nil {
		// Fail closed: an unreachable store never lets a booking through.
		return nil, &QueryError{Op: "check availability", Err: err}
	}
	if !available {
		metrics.IncSlotConflict()
		return nil, ErrSlotConflict
	}

	booking := &models.Booking{
		InternalID:    uuid.NewString(),
		BookingID:     s.idgen.Generate(),
		Resource:      req.Resource,
		Date:          req.Date,
		TimeSlot:      req.TimeSlot,
		Purpose:       strings.TrimSpace(req.Purpose),
		RequesterID:   actor.UID,
		RequesterMail: actor.Email,
		RequesterName: actor.DisplayName,
		Status:        models.StatusPending,
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncSlotConflict()
			return nil, ErrSlotConflict
		}
		return nil, &WriteError{Op: "create booking", Err: err}
	}

	metrics.IncBookingCreated(string(booking.Resource))
	s.publish(events.TypeBookingCreated, *booking, actor.UID)
	s.enqueueSync(ctx, database.SyncTaskUpsert, booking.InternalID)

	s.logger.Info().
		Str("booking_id", booking.BookingID).
		Str("resource", string(booking.Resource)).
		Str("date", booking.Date).
		Str("slot", booking.TimeSlot).
		Str("requester", actor.UID).
		Msg("booking created")

	return booking, nil
}

func (s *BookingService) validateCreate(req CreateRequest) error {
	if req.Resource == "" {
		return validationErr("resource", "required")
	}
	if !req.Resource.IsValid() {
		return validationErr("resource", "unknown resource")
	}
	if req.Date == "" {
		return validationErr("date", "required")
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return validationErr("date", "expected YYYY-MM-DD")
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if date.Before(today) {
		return validationErr("date", "cannot book in the past")
	}
	if s.maxAdvance > 0 && date.After(today.Add(s.maxAdvance)) {
		return validationErr("date", "too far in the future")
	}
	if req.TimeSlot == "" {
		return validationErr("time_slot", "required")
	}
	if !models.IsValidTimeSlot(req.TimeSlot) {
		return validationErr("time_slot", "not in the daily slot grid")
	}
	if strings.TrimSpace(req.Purpose) == "" {
		return validationErr("purpose", "required")
	}
	return nil
}

// CancelBooking sets a booking to cancelled. Owners and admins may
// cancel; cancelling an already-cancelled booking is a no-op. A denied
// booking keeps occupying its slot until an admin cancels it.
func (s *BookingService) CancelBooking(ctx context.Context, bookingRef string, actor models.Identity) error {
	if actor.IsZero() {
		return ErrNotAuthenticated
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	booking, err := s.loadByRef(ctx, bookingRef)
	if err != nil {
		return err
	}

	if booking.Status == models.StatusCancelled {
		return nil
	}

	isAdmin, err := s.access.IsAdmin(ctx, actor.UID)
	if err != nil {
		return &QueryError{Op: "check admin", Err: err}
	}
	if !booking.IsOwnedBy(actor.UID) && !isAdmin {
		return ErrPermissionDenied
	}
	if booking.Status == models.StatusDenied && !isAdmin {
		// Denied is terminal for the owner; only an admin can free the
		// slot for a new request.
		return ErrInvalidTransition
	}

	if err := s.transition(ctx, booking, models.StatusCancelled, actor.UID); err != nil {
		return err
	}

	metrics.IncBookingCancelled()
	booking.Status = models.StatusCancelled
	booking.UpdatedBy = actor.UID
	s.publish(events.TypeBookingCancelled, *booking, actor.UID)
	s.enqueueSync(ctx, database.SyncTaskStatusUpdate, booking.InternalID)

	s.logger.Info().
		Str("booking_id", booking.BookingID).
		Str("actor", actor.UID).
		Bool("admin", isAdmin).
		Msg("booking cancelled")

	return nil
}

// SetStatus applies an administrative decision. Only pending bookings
// may be approved or denied.
func (s *BookingService) SetStatus(ctx context.Context, bookingRef string, newStatus models.Status, actor models.Identity) error {
	if actor.IsZero() {
		return ErrNotAuthenticated
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	isAdmin, err := s.access.IsAdmin(ctx, actor.UID)
	if err != nil {
		return &QueryError{Op: "check admin", Err: err}
	}
	if !isAdmin {
		return ErrPermissionDenied
	}

	if newStatus != models.StatusApproved && newStatus != models.StatusDenied {
		return ErrInvalidTransition
	}

	booking, err := s.loadByRef(ctx, bookingRef)
	if err != nil {
		return err
	}
	if !booking.Status.CanTransitionTo(newStatus) {
		return ErrInvalidTransition
	}

	if err := s.transition(ctx, booking, newStatus, actor.UID); err != nil {
		return err
	}

	metrics.IncAdminDecision(string(newStatus))
	booking.Status = newStatus
	booking.UpdatedBy = actor.UID
	s.publish(events.TypeBookingDecided, *booking, actor.UID)
	s.enqueueSync(ctx, database.SyncTaskStatusUpdate, booking.InternalID)

	s.logger.Info().
		Str("booking_id", booking.BookingID).
		Str("status", string(newStatus)).
		Str("actor", actor.UID).
		Msg("booking decided")

	return nil
}

// transition applies a version-checked status update, retrying once
// after a lost race if the transition is still legal.
func (s *BookingService) transition(ctx context.Context, booking *models.Booking, newStatus models.Status, actorUID string) error {
	err := s.repo.UpdateBookingStatus(ctx, booking.InternalID, booking.Version, newStatus, actorUID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, database.ErrVersionConflict) {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return &WriteError{Op: "update status", Err: err}
	}

	// Lost a race: reload and re-evaluate against the fresh status.
	fresh, loadErr := s.loadByRef(ctx, booking.BookingID)
	if loadErr != nil {
		return loadErr
	}
	if fresh.Status == newStatus {
		booking.Version = fresh.Version
		return nil
	}
	allowed := fresh.Status.CanTransitionTo(newStatus) ||
		(newStatus == models.StatusCancelled && fresh.Status != models.StatusDenied)
	if !allowed {
		return ErrInvalidTransition
	}
	if err := s.repo.UpdateBookingStatus(ctx, fresh.InternalID, fresh.Version, newStatus, actorUID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotFound
		}
		return &WriteError{Op: "update status", Err: err}
	}
	booking.Version = fresh.Version + 1
	return nil
}

// GetByRef returns a single booking. Only the owner and administrators
// may read it.
func (s *BookingService) GetByRef(ctx context.Context, bookingRef string, actor models.Identity) (*models.Booking, error) {
	if actor.IsZero() {
		return nil, ErrNotAuthenticated
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	booking, err := s.loadByRef(ctx, bookingRef)
	if err != nil {
		return nil, err
	}
	if !booking.IsOwnedBy(actor.UID) {
		isAdmin, err := s.access.IsAdmin(ctx, actor.UID)
		if err != nil {
			return nil, &QueryError{Op: "check admin", Err: err}
		}
		if !isAdmin {
			return nil, ErrPermissionDenied
		}
	}
	return booking, nil
}

// ListForUser returns a requester's bookings ordered by date.
func (s *BookingService) ListForUser(ctx context.Context, requesterID string, opts ListOptions) ([]models.Booking, error) {
	if requesterID == "" {
		return nil, ErrNotAuthenticated
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	bookings, err := s.repo.GetUserBookings(ctx, requesterID, opts.From, opts.To, opts.ExcludeCancelled)
	if err != nil {
		return nil, &QueryError{Op: "list user bookings", Err: err}
	}
	return bookings, nil
}

// ListAll is the administrative projection over all bookings, with
// optional status filter and case-insensitive free-text search.
func (s *BookingService) ListAll(ctx context.Context, filter ListFilter, actor models.Identity) ([]models.Booking, error) {
	if actor.IsZero() {
		return nil, ErrNotAuthenticated
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	isAdmin, err := s.access.IsAdmin(ctx, actor.UID)
	if err != nil {
		return nil, &QueryError{Op: "check admin", Err: err}
	}
	if !isAdmin {
		return nil, ErrPermissionDenied
	}

	bookings, err := s.repo.ListBookings(ctx, filter.Status)
	if err != nil {
		return nil, &QueryError{Op: "list bookings", Err: err}
	}

	if filter.SearchTerm == "" {
		return bookings, nil
	}

	term := strings.ToLower(filter.SearchTerm)
	var matched []models.Booking
	for _, b := range bookings {
		if matchesSearch(&b, term) {
			matched = append(matched, b)
		}
	}
	return matched, nil
}

func matchesSearch(b *models.Booking, term string) bool {
	fields := []string{
		b.BookingID,
		b.RequesterMail,
		b.Resource.DisplayName(),
		b.Date,
		b.Purpose,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func (s *BookingService) loadByRef(ctx context.Context, bookingRef string) (*models.Booking, error) {
	booking, err := s.repo.GetBookingByRef(ctx, bookingRef)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &QueryError{Op: "load booking", Err: err}
	}
	return booking, nil
}

func (s *BookingService) publish(eventType string, booking models.Booking, actor string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, Booking: booking, Actor: actor})
}

func (s *BookingService) enqueueSync(ctx context.Context, taskType, internalID string) {
	if s.sync == nil {
		return
	}
	if err := s.sync.EnqueueSyncTask(ctx, taskType, internalID); err != nil {
		s.logger.Error().Err(err).Str("task", taskType).Msg("enqueue sync task")
	}
}
