package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"slotbook/internal/metrics"
	"slotbook/internal/models"
	"slotbook/internal/service"
)

// BookingResponse is the wire shape of a booking. Status is the
// display status: past non-cancelled bookings read as completed.
type BookingResponse struct {
	BookingID     string `json:"booking_id"`
	Resource      string `json:"resource"`
	ResourceName  string `json:"resource_name"`
	Date          string `json:"date"`
	TimeSlot      string `json:"time_slot"`
	Purpose       string `json:"purpose"`
	RequesterMail string `json:"requester_mail"`
	RequesterName string `json:"requester_name"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

func (s *HTTPServer) bookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		BookingID:     b.BookingID,
		Resource:      string(b.Resource),
		ResourceName:  b.Resource.DisplayName(),
		Date:          b.Date,
		TimeSlot:      b.TimeSlot,
		Purpose:       b.Purpose,
		RequesterMail: b.RequesterMail,
		RequesterName: b.RequesterName,
		Status:        string(b.DisplayStatus(s.now())),
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     b.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *HTTPServer) bookingResponses(bookings []models.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, s.bookingResponse(&bookings[i]))
	}
	return out
}

// handleBookings routes the collection endpoint.
// POST /api/v1/bookings creates a request, GET lists the caller's.
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateBooking(w, r)
	case http.MethodGet:
		s.handleMyBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	var req service.CreateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), req, identityFrom(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, s.bookingResponse(booking))
}

// handleMyBookings lists the caller's bookings.
// GET /api/v1/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD&exclude_cancelled=true
func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("my_bookings")

	q := r.URL.Query()
	opts := service.ListOptions{
		From:             q.Get("from"),
		To:               q.Get("to"),
		ExcludeCancelled: q.Get("exclude_cancelled") == "true",
	}

	bookings, err := s.bookings.ListForUser(r.Context(), identityFrom(r).UID, opts)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": s.bookingResponses(bookings)})
}

// handleBookingByRef routes /api/v1/bookings/{ref} and
// /api/v1/bookings/{ref}/status.
func (s *HTTPServer) handleBookingByRef(w http.ResponseWriter, r *http.Request) {
	const prefix = "/api/v1/bookings/"
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	if rest == "" {
		writeError(w, http.StatusBadRequest, "booking reference is required")
		return
	}

	if ref, ok := strings.CutSuffix(rest, "/status"); ok {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
			return
		}
		s.handleSetStatus(w, r, ref)
		return
	}

	if strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "unknown path")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetBooking(w, r, rest)
	case http.MethodDelete:
		s.handleCancelBooking(w, r, rest)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request, ref string) {
	metrics.IncHTTP("get_booking")

	booking, err := s.bookings.GetByRef(r.Context(), ref, identityFrom(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.bookingResponse(booking))
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request, ref string) {
	metrics.IncHTTP("cancel_booking")

	if err := s.bookings.CancelBooking(r.Context(), ref, identityFrom(r)); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// StatusRequest is the body for the administrative decision endpoint.
type StatusRequest struct {
	Status string `json:"status"`
}

func (s *HTTPServer) handleSetStatus(w http.ResponseWriter, r *http.Request, ref string) {
	metrics.IncHTTP("set_status")

	if s.apiKey == "" || r.Header.Get("X-Api-Key") != s.apiKey {
		writeError(w, http.StatusUnauthorized, "invalid or missing API key")
		return
	}

	var req StatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "status must be approved or denied")
		return
	}

	actor := identityFrom(r)
	if err := s.bookings.SetStatus(r.Context(), ref, status, actor); err != nil {
		s.writeServiceError(w, err)
		return
	}

	booking, err := s.bookings.GetByRef(r.Context(), ref, actor)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.bookingResponse(booking))
}

// handleAdminBookings is the administrative projection.
// GET /api/v1/admin/bookings?status=pending&q=term
func (s *HTTPServer) handleAdminBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("admin_bookings")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	filter := service.ListFilter{SearchTerm: q.Get("q")}
	if raw := q.Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		filter.Status = status
	}

	bookings, err := s.bookings.ListAll(r.Context(), filter, identityFrom(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": s.bookingResponses(bookings)})
}
