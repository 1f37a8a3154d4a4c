package domain

import (
	"math"
	"time"
)

type BookingStatus string

const (
	BookingStatusPendingCheckIn   BookingStatus = "PENDING_CHECKIN"
	BookingStatusCheckInCompleted BookingStatus = "CHECKIN_COMPLETED"
	BookingStatusCheckedIn        BookingStatus = "CHECKED_IN"
	BookingStatusCheckedOut       BookingStatus = "CHECKED_OUT"
	BookingStatusCancelled        BookingStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCheckedOut || s == BookingStatusCancelled
}

// Occupies reports whether a booking in this status holds its assigned room.
// A pending booking holds a room once one was assigned by a failed issuance attempt.
func (s BookingStatus) Occupies() bool {
	switch s {
	case BookingStatusPendingCheckIn, BookingStatusCheckInCompleted, BookingStatusCheckedIn:
		return true
	}
	return false
}

// OccupyingStatuses lists the statuses that block a room for overlapping stays.
func OccupyingStatuses() []BookingStatus {
	return []BookingStatus{BookingStatusPendingCheckIn, BookingStatusCheckInCompleted, BookingStatusCheckedIn}
}

type Booking struct {
	ID              string
	ReferenceCode   string
	RoomTypeID      string
	RoomID          *string
	Status          BookingStatus
	GuestName       string
	GuestEmail      string
	GuestPhone      *string
	CheckInDate     time.Time
	CheckOutDate    time.Time
	BasePriceCents  int64
	TotalPriceCents int64
	Locale          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (b *Booking) HasRoom() bool {
	return b.RoomID != nil && *b.RoomID != ""
}

// Stay returns the booking's half-open date interval.
func (b *Booking) Stay() Stay {
	return Stay{CheckIn: b.CheckInDate, CheckOut: b.CheckOutDate}
}

// Nights is the ceiling of the whole-day difference between check-out and check-in.
func Nights(checkIn, checkOut time.Time) int {
	d := DateOf(checkOut).Sub(DateOf(checkIn))
	return int(math.Ceil(d.Hours() / 24))
}

// TotalPrice multiplies the nightly rate by the number of nights.
func TotalPrice(basePriceCents int64, nights int) int64 {
	return basePriceCents * int64(nights)
}

type CheckInInfo struct {
	ID              string
	BookingID       string
	LegalName       string
	DocumentNumber  string
	DocumentCountry string
	Extras          CheckInExtras
	CreatedAt       time.Time
}

type CheckInExtras struct {
	Services             []string `json:"services"`
	EstimatedArrivalTime string   `json:"estimatedArrivalTime,omitempty"`
	SpecialRequests      string   `json:"specialRequests,omitempty"`
}
