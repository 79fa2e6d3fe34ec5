// Package sheets mirrors booking rows into a Google Sheets worksheet.
package sheets

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"slotbook/internal/models"
)

var headerRow = []interface{}{
	"Booking ID", "Resource", "Date", "Time Slot", "Status",
	"Requester", "Email", "Purpose", "Created At", "Updated At",
}

// SheetsService maintains a one-row-per-booking mirror of the store.
// Rows are keyed by the public booking reference in column A.
type SheetsService struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *zerolog.Logger
}

// NewSheetsService authenticates with a service account key file.
func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID, sheetName string, logger *zerolog.Logger) (*SheetsService, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	conf, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	sub := logger.With().Str("component", "sheets").Logger()
	return &SheetsService{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        &sub,
	}, nil
}

// UpsertBooking writes the booking's row, updating in place when the
// reference already exists and appending otherwise.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	row, err := s.findRow(ctx, booking.BookingID)
	if err != nil {
		return err
	}

	values := &sheets.ValueRange{Values: [][]interface{}{bookingRowValues(booking)}}
	if row == 0 {
		_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName, values).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	} else {
		rangeRef := fmt.Sprintf("%s!A%d", s.sheetName, row)
		_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rangeRef, values).
			ValueInputOption("RAW").Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("write row for %s: %w", booking.BookingID, err)
	}

	s.logger.Debug().Str("booking_id", booking.BookingID).Msg("row mirrored")
	return nil
}

// ReplaceAll rewrites the worksheet from scratch. Used on startup to
// reconcile rows that were lost to queue failures.
func (s *SheetsService) ReplaceAll(ctx context.Context, bookings []models.Booking) error {
	rows := [][]interface{}{headerRow}
	for _, b := range filterActiveBookings(bookings) {
		rows = append(rows, bookingRowValues(&b))
	}

	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, s.sheetName, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}
	values := &sheets.ValueRange{Values: rows}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.sheetName+"!A1", values).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("rewrite sheet: %w", err)
	}

	s.logger.Info().Int("rows", len(rows)-1).Msg("sheet rebuilt")
	return nil
}

// findRow returns the 1-based row number holding bookingID, 0 if absent.
func (s *SheetsService) findRow(ctx context.Context, bookingID string) (int, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("scan reference column: %w", err)
	}
	for i, row := range resp.Values {
		if len(row) > 0 && fmt.Sprint(row[0]) == bookingID {
			return i + 1, nil
		}
	}
	return 0, nil
}

func filterActiveBookings(bookings []models.Booking) []models.Booking {
	active := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status.IsActive() {
			active = append(active, b)
		}
	}
	return active
}

func bookingRowValues(b *models.Booking) []interface{} {
	return []interface{}{
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
	}
}
