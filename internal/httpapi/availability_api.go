package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"slotbook/internal/metrics"
	"slotbook/internal/models"
)

// SlotAvailability is one slot of a day listing.
type SlotAvailability struct {
	TimeSlot  string `json:"time_slot"`
	Available bool   `json:"available"`
}

// AvailabilityResponse is the response for GET /api/v1/availability.
type AvailabilityResponse struct {
	Resource string             `json:"resource"`
	Date     string             `json:"date"`
	Slots    []SlotAvailability `json:"slots"`
}

// handleAvailability lists per-slot availability for one resource/day.
// GET /api/v1/availability?resource=meeting-room&date=YYYY-MM-DD
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	resource := models.Resource(q.Get("resource"))
	if !resource.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown resource")
		return
	}
	date := q.Get("date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slots := make([]SlotAvailability, 0, len(models.TimeSlots))
	for _, slot := range models.TimeSlots {
		available, err := s.slots.IsSlotAvailable(r.Context(), resource, date, slot)
		if err != nil {
			s.log.Error().Err(err).Str("date", date).Str("slot", slot).Msg("availability check failed")
			writeError(w, http.StatusInternalServerError, "availability check failed")
			return
		}
		slots = append(slots, SlotAvailability{TimeSlot: slot, Available: available})
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		Resource: string(resource),
		Date:     date,
		Slots:    slots,
	})
}

// handleCalendar returns the month aggregate used to render a calendar.
// GET /api/v1/calendar?year=2025&month=5&selected=YYYY-MM-DD
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar")

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	now := s.now()

	year := now.Year()
	if raw := q.Get("year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 2000 || v > 2200 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = v
	}

	month := now.Month()
	if raw := q.Get("month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			writeError(w, http.StatusBadRequest, "invalid month; expected 1-12")
			return
		}
		month = time.Month(v)
	}

	today := now.Format(models.DateLayout)
	view, err := s.months.MonthView(r.Context(), year, month, today, q.Get("selected"))
	if err != nil {
		s.log.Error().Err(err).Int("year", year).Str("month", month.String()).Msg("month view failed")
		writeError(w, http.StatusInternalServerError, "calendar aggregation failed")
		return
	}

	writeJSON(w, http.StatusOK, view)
}
