package domain

import (
	"context"
	"time"
)

type EventType string

const (
	EventBookingCreated        EventType = "booking_created"
	EventCheckInCompleted      EventType = "checkin_completed"
	EventLockKeyIssued         EventType = "lock_key_issued"
	EventLockKeyIssuanceFailed EventType = "lock_key_issuance_failed"
	EventLockKeyRevoked        EventType = "lock_key_revoked"
	EventLockKeyRevokeFailed   EventType = "lock_key_revoke_failed"
	EventLockKeysExpired       EventType = "lock_keys_expired"
	EventRoomReassigned        EventType = "room_reassigned"
	EventBookingCancelled      EventType = "booking_cancelled"
	EventBookingCheckedOut     EventType = "booking_checked_out"
	EventRemoteUnlock          EventType = "remote_unlock"
	EventCredentialSent        EventType = "ekey_sent"
)

// Event is handed to the notification channel. The core never formats message content.
type Event struct {
	Type          EventType  `json:"type"`
	BookingID     string     `json:"booking_id,omitempty"`
	ReferenceCode string     `json:"reference_code,omitempty"`
	Recipient     string     `json:"recipient,omitempty"`
	GuestName     string     `json:"guest_name,omitempty"`
	Locale        string     `json:"locale,omitempty"`
	RoomNumber    string     `json:"room_number,omitempty"`
	LockKeyID     string     `json:"lock_key_id,omitempty"`
	Passcode      string     `json:"passcode,omitempty"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidTo       *time.Time `json:"valid_to,omitempty"`
	Count         int        `json:"count,omitempty"`
	Error         string     `json:"error,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// NewBookingEvent fills the booking-derived fields of an event.
func NewBookingEvent(t EventType, b *Booking, at time.Time) Event {
	return Event{
		Type:          t,
		BookingID:     b.ID,
		ReferenceCode: b.ReferenceCode,
		Recipient:     b.GuestEmail,
		GuestName:     b.GuestName,
		Locale:        b.Locale,
		OccurredAt:    at,
	}
}

// Publisher delivers events to the notification channel.
type Publisher interface {
	PublishEvent(ctx context.Context, event Event) error
}
