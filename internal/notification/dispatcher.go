// Package notification turns domain events into guest messages and staff alerts.
package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
)

// Message is a rendered-later notification: the template name and its data.
type Message struct {
	To       string
	Template string
	Locale   string
	Data     map[string]string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// guestTemplates maps events that reach the guest to their template.
var guestTemplates = map[domain.EventType]string{
	domain.EventBookingCreated:    "booking_confirmation",
	domain.EventCheckInCompleted:  "checkin_completed",
	domain.EventLockKeyIssued:     "room_access_code",
	domain.EventBookingCancelled:  "booking_cancelled",
	domain.EventBookingCheckedOut: "checkout_thank_you",
	domain.EventCredentialSent:    "ekey_sent",
}

// staffAlerts are events someone at the front desk has to follow up on.
var staffAlerts = map[domain.EventType]bool{
	domain.EventLockKeyIssuanceFailed: true,
	domain.EventLockKeyRevokeFailed:   true,
	domain.EventRoomReassigned:        true,
}

type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if sender == nil {
		sender = NewLogSender(logger)
	}
	return &Dispatcher{sender: sender, logger: logger}
}

func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) error {
	if staffAlerts[event.Type] {
		d.logger.WarnContext(ctx, "staff follow-up required",
			"type", event.Type, "booking_id", event.BookingID, "reference_code", event.ReferenceCode,
			"lock_key_id", event.LockKeyID, "reason", event.Error)
		return nil
	}

	template, ok := guestTemplates[event.Type]
	if !ok || event.Recipient == "" {
		d.logger.DebugContext(ctx, "event recorded", "type", event.Type, "booking_id", event.BookingID, "count", event.Count)
		return nil
	}

	return d.sender.Send(ctx, Message{
		To:       event.Recipient,
		Template: template,
		Locale:   event.Locale,
		Data:     templateData(event),
	})
}

// PublishEvent dispatches in-process, for deployments without a broker.
func (d *Dispatcher) PublishEvent(ctx context.Context, event domain.Event) error {
	return d.Dispatch(ctx, event)
}

func templateData(event domain.Event) map[string]string {
	data := map[string]string{
		"guest_name":     event.GuestName,
		"reference_code": event.ReferenceCode,
	}
	if event.RoomNumber != "" {
		data["room_number"] = event.RoomNumber
	}
	if event.Passcode != "" {
		data["passcode"] = event.Passcode
	}
	if event.ValidFrom != nil {
		data["valid_from"] = event.ValidFrom.Format(time.RFC3339)
	}
	if event.ValidTo != nil {
		data["valid_to"] = event.ValidTo.Format(time.RFC3339)
	}
	return data
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification", "to", msg.To, "template", msg.Template, "locale", msg.Locale)
	return nil
}

var _ domain.Publisher = (*Dispatcher)(nil)
