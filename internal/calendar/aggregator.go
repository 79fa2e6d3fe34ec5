package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"slotbook/internal/availability"
	"slotbook/internal/models"
)

// RangeReader is the slice of the store the aggregator needs.
type RangeReader interface {
	GetBookingsByDateRange(ctx context.Context, from, to string) ([]models.Booking, error)
}

// DayCell is one day of a month view.
type DayCell struct {
	Date           string                 `json:"date"`
	Status         availability.DayStatus `json:"status"`
	AvailableSlots int                    `json:"available_slots"`
	TotalSlots     int                    `json:"total_slots"`
	IsToday        bool                   `json:"is_today"`
	IsSelected     bool                   `json:"is_selected"`
}

// MonthView is the aggregated availability of a calendar month.
type MonthView struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Days  []DayCell  `json:"days"`
}

// Aggregator builds month views from the store with a single ranged
// read per month, caching the result per month.
type Aggregator struct {
	store  RangeReader
	engine *availability.Engine
	cache  *Cache
	logger *zerolog.Logger
}

func NewAggregator(store RangeReader, engine *availability.Engine, cache *Cache, logger *zerolog.Logger) *Aggregator {
	sub := logger.With().Str("component", "calendar").Logger()
	return &Aggregator{store: store, engine: engine, cache: cache, logger: &sub}
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("calendar:%04d-%02d", year, month)
}

// MonthView aggregates one month. The today and selected flags are
// presentation state and are stamped after the cache lookup so cached
// months stay valid across days.
func (a *Aggregator) MonthView(ctx context.Context, year int, month time.Month, today, selected string) (*MonthView, error) {
	key := monthKey(year, month)

	var view MonthView
	if !a.cache.Get(ctx, key, &view) {
		built, err := a.buildMonth(ctx, year, month)
		if err != nil {
			return nil, err
		}
		view = *built
		a.cache.Set(ctx, key, view)
	}

	for i := range view.Days {
		view.Days[i].IsToday = view.Days[i].Date == today
		view.Days[i].IsSelected = view.Days[i].Date == selected
	}
	return &view, nil
}

func (a *Aggregator) buildMonth(ctx context.Context, year int, month time.Month) (*MonthView, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	bookings, err := a.store.GetBookingsByDateRange(ctx, first.Format(models.DateLayout), last.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("read month %s: %w", monthKey(year, month), err)
	}

	active := make(map[string]int, last.Day())
	for _, b := range bookings {
		if b.Status.IsActive() {
			active[b.Date]++
		}
	}

	view := &MonthView{Year: year, Month: month, Days: make([]DayCell, 0, last.Day())}
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		date := day.Format(models.DateLayout)
		info := a.engine.DayAvailability(day, active[date])
		view.Days = append(view.Days, DayCell{
			Date:           date,
			Status:         info.Status,
			AvailableSlots: info.AvailableSlots,
			TotalSlots:     info.TotalSlots,
		})
	}

	a.logger.Debug().Int("year", year).Str("month", month.String()).
		Int("bookings", len(bookings)).Msg("month aggregated")
	return view, nil
}

// Invalidate drops the cached month containing the given date. Called
// from the event bus after every booking write.
func (a *Aggregator) Invalidate(ctx context.Context, date string) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		a.logger.Warn().Str("date", date).Msg("invalidate skipped for unparseable date")
		return
	}
	a.cache.Delete(ctx, monthKey(d.Year(), d.Month()))
}
