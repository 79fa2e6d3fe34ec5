// Package httpapi exposes the booking engine over a JSON HTTP API.
// Identity is supplied by the fronting identity provider through
// request headers; the API never handles credentials itself.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"slotbook/internal/calendar"
	"slotbook/internal/database"
	"slotbook/internal/models"
	"slotbook/internal/service"
)

// BookingService is the core surface the API exposes.
type BookingService interface {
	CreateBooking(ctx context.Context, req service.CreateRequest, actor models.Identity) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingRef string, actor models.Identity) error
	SetStatus(ctx context.Context, bookingRef string, newStatus models.Status, actor models.Identity) error
	GetByRef(ctx context.Context, bookingRef string, actor models.Identity) (*models.Booking, error)
	ListForUser(ctx context.Context, requesterID string, opts service.ListOptions) ([]models.Booking, error)
	ListAll(ctx context.Context, filter service.ListFilter, actor models.Identity) ([]models.Booking, error)
}

// SlotChecker answers per-slot availability questions.
type SlotChecker interface {
	IsSlotAvailable(ctx context.Context, resource models.Resource, date, timeSlot string) (bool, error)
}

// CalendarView builds month aggregates.
type CalendarView interface {
	MonthView(ctx context.Context, year int, month time.Month, today, selected string) (*calendar.MonthView, error)
}

// AccessService manages administrators and the requester denylist.
type AccessService interface {
	AddAdmin(ctx context.Context, uid, addedBy string) error
	BlockRequester(ctx context.Context, uid, reason, blockedBy string) error
	UnblockRequester(ctx context.Context, uid string) error
	ListBlocked(ctx context.Context) ([]database.BlockedRequester, error)
}

// HTTPServer serves the booking API.
type HTTPServer struct {
	server   *http.Server
	bookings BookingService
	slots    SlotChecker
	months   CalendarView
	access   AccessService
	apiKey   string
	log      *zerolog.Logger
	now      func() time.Time
}

func NewHTTPServer(port int, bookings BookingService, slots SlotChecker, months CalendarView, access AccessService, apiKey string, logger *zerolog.Logger) *HTTPServer {
	sub := logger.With().Str("component", "httpapi").Logger()
	s := &HTTPServer{
		bookings: bookings,
		slots:    slots,
		months:   months,
		access:   access,
		apiKey:   apiKey,
		log:      &sub,
		now:      time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/bookings", s.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", s.handleBookingByRef)
	mux.HandleFunc("/api/v1/admin/bookings", s.requireAPIKey(s.handleAdminBookings))
	mux.HandleFunc("/api/v1/admin/blocklist", s.requireAPIKey(s.handleBlocklist))
	mux.HandleFunc("/api/v1/admin/blocklist/", s.requireAPIKey(s.handleUnblock))
	mux.HandleFunc("/api/v1/admin/admins", s.requireAPIKey(s.handleAddAdmin))
	mux.HandleFunc("/api/v1/availability", s.handleAvailability)
	mux.HandleFunc("/api/v1/calendar", s.handleCalendar)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until ctx is cancelled, then drains connections.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info().Str("addr", s.server.Addr).Msg("api server started")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// identityFrom builds the actor from the identity provider headers.
func identityFrom(r *http.Request) models.Identity {
	return models.Identity{
		UID:         r.Header.Get("X-User-Id"),
		Email:       r.Header.Get("X-User-Email"),
		DisplayName: r.Header.Get("X-User-Name"),
	}
}

func (s *HTTPServer) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.Header.Get("X-Api-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps core errors onto HTTP statuses.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, service.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "identity headers are required")
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, service.ErrSlotConflict):
		writeError(w, http.StatusConflict, "slot is already booked")
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "booking state does not allow this change")
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
