// Package audit exports monthly booking reports as xlsx workbooks.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"slotbook/internal/models"
)

// Config holds audit export settings.
type Config struct {
	ExportDir     string
	ExportOnStart bool
}

// BookingExporter provides the bookings to include in a report.
type BookingExporter interface {
	GetBookingsByDateRange(ctx context.Context, from, to string) ([]models.Booking, error)
}

// FileSender delivers a finished report to administrators.
type FileSender interface {
	SendFile(ctx context.Context, path, caption string) error
}

// Service exports the previous month's bookings on the first of each
// month and optionally once at startup.
type Service struct {
	config   Config
	exporter BookingExporter
	writer   func() ExcelWriter
	sender   FileSender
	logger   *zerolog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewService(config Config, exporter BookingExporter, writerFactory func() ExcelWriter, sender FileSender, logger *zerolog.Logger) *Service {
	if config.ExportDir == "" {
		config.ExportDir = "."
	}
	sub := logger.With().Str("component", "audit").Logger()
	return &Service{
		config:   config,
		exporter: exporter,
		writer:   writerFactory,
		sender:   sender,
		logger:   &sub,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the monthly export scheduler.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if s.config.ExportOnStart {
		go s.runExport()
	}

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().Str("dir", s.config.ExportDir).Msg("audit service started")
}

// Stop waits for the scheduler to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info().Msg("audit service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	nextRun := nextFirstOfMonth(time.Now())
	timer := time.NewTimer(time.Until(nextRun))
	defer timer.Stop()

	s.logger.Info().Time("next_run", nextRun).Msg("next export scheduled")

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.runExport()
			nextRun = nextFirstOfMonth(time.Now())
			timer.Reset(time.Until(nextRun))
			s.logger.Info().Time("next_run", nextRun).Msg("next export scheduled")
		}
	}
}

func nextFirstOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 1, 0, 0, now.Location())
}

func (s *Service) runExport() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	prev := time.Now().AddDate(0, -1, 0)
	path, err := s.ExportMonth(ctx, prev.Year(), prev.Month())
	if err != nil {
		s.logger.Error().Err(err).Msg("monthly export failed")
		return
	}

	caption := fmt.Sprintf("Booking report %s %d", prev.Month(), prev.Year())
	if err := s.sender.SendFile(ctx, path, caption); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("report delivery failed")
	}
}

var reportColumns = []string{
	"Reference", "Resource", "Date", "Time Slot", "Status",
	"Requester", "Email", "Purpose", "Created", "Last Update", "Updated By",
}

// ExportMonth writes one month of bookings to an xlsx file and returns
// its path. Cancelled bookings are included; a report is a record, not
// a calendar.
func (s *Service) ExportMonth(ctx context.Context, year int, month time.Month) (string, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	bookings, err := s.exporter.GetBookingsByDateRange(ctx, first.Format(models.DateLayout), last.Format(models.DateLayout))
	if err != nil {
		return "", fmt.Errorf("load bookings: %w", err)
	}

	excel := s.writer()
	defer excel.Close()

	if err := excel.AddSheet("Bookings"); err != nil {
		return "", err
	}
	if err := excel.WriteHeader(reportColumns); err != nil {
		return "", err
	}
	for _, b := range bookings {
		row := []interface{}{
			b.BookingID,
			b.Resource.DisplayName(),
			b.Date,
			b.TimeSlot,
			string(b.Status),
			b.RequesterName,
			b.RequesterMail,
			b.Purpose,
			b.CreatedAt.Format("2006-01-02 15:04:05"),
			b.UpdatedAt.Format("2006-01-02 15:04:05"),
			b.UpdatedBy,
		}
		if err := excel.WriteRow(row); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(s.config.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.config.ExportDir, fmt.Sprintf("bookings_%04d-%02d.xlsx", year, month))
	if err := excel.SaveToFile(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	s.logger.Info().Str("path", path).Int("bookings", len(bookings)).Msg("report exported")
	return path, nil
}
