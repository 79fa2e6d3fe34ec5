package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"slotbook/internal/events"
	"slotbook/internal/models"
)

// Notifier delivers operational messages to administrators.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	SendFile(ctx context.Context, path, caption string) error
}

// LogNotifier writes notifications to the log. Used when no Telegram
// channel is configured and as the fallback sink in tests.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	sub := logger.With().Str("component", "notify").Logger()
	return &LogNotifier{logger: &sub}
}

func (n *LogNotifier) Notify(_ context.Context, message string) error {
	n.logger.Info().Str("notification", message).Msg("admin notification")
	return nil
}

func (n *LogNotifier) SendFile(_ context.Context, path, caption string) error {
	n.logger.Info().Str("file", path).Str("caption", caption).Msg("admin file export")
	return nil
}

// TelegramClient is the slice of the bot API the notifier uses.
type TelegramClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes notifications to the admin chat. Sends are
// rate limited to stay inside the Bot API per-chat quota.
type TelegramNotifier struct {
	client  TelegramClient
	chatID  int64
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

func NewTelegramNotifier(client TelegramClient, chatID int64, logger *zerolog.Logger) *TelegramNotifier {
	sub := logger.With().Str("component", "notify").Logger()
	return &TelegramNotifier{
		client:  client,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		logger:  &sub,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, message string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, message)
	if _, err := n.client.Send(msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func (n *TelegramNotifier) SendFile(ctx context.Context, path, caption string) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(n.chatID, tgbotapi.FilePath(path))
	doc.Caption = caption
	if _, err := n.client.Send(doc); err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// Subscribe attaches booking event notifications to the bus. Delivery
// failures are logged and never propagate back to the write path.
func Subscribe(bus *events.Bus, n Notifier, logger *zerolog.Logger) {
	sub := logger.With().Str("component", "notify").Logger()
	bus.SubscribeAll(func(e events.Event) {
		msg := formatEvent(e)
		if msg == "" {
			return
		}
		if err := n.Notify(context.Background(), msg); err != nil {
			sub.Error().Err(err).Str("event", e.Type).Msg("notification failed")
		}
	})
}

func formatEvent(e events.Event) string {
	b := e.Booking
	where := fmt.Sprintf("%s, %s %s", b.Resource.DisplayName(), b.Date, b.TimeSlot)

	switch e.Type {
	case events.TypeBookingCreated:
		return fmt.Sprintf("New request %s\n%s\nFrom: %s (%s)\nPurpose: %s",
			b.BookingID, where, b.RequesterName, b.RequesterMail, b.Purpose)
	case events.TypeBookingCancelled:
		return fmt.Sprintf("Cancelled %s\n%s\nBy: %s", b.BookingID, where, e.Actor)
	case events.TypeBookingDecided:
		verb := "Approved"
		if b.Status == models.StatusDenied {
			verb = "Denied"
		}
		return fmt.Sprintf("%s %s\n%s\nRequester: %s", verb, b.BookingID, where, b.RequesterMail)
	default:
		return ""
	}
}
