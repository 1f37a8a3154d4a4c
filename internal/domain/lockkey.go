package domain

import "time"

type LockKeyStatus string

const (
	LockKeyStatusActive  LockKeyStatus = "ACTIVE"
	LockKeyStatusRevoked LockKeyStatus = "REVOKED"
	LockKeyStatusExpired LockKeyStatus = "EXPIRED"
)

type LockKey struct {
	ID        string
	BookingID string
	RoomID    string
	LockID    string
	Passcode  string
	ValidFrom time.Time
	ValidTo   time.Time
	Status    LockKeyStatus
	// RemoteID is nil when the provider-side passcode could not be confirmed.
	RemoteID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HouseTimes are the hotel's fixed check-in and check-out clock times.
type HouseTimes struct {
	Location *time.Location
	CheckIn  time.Duration
	CheckOut time.Duration
}

func DefaultHouseTimes() HouseTimes {
	return HouseTimes{Location: time.UTC, CheckIn: 14 * time.Hour, CheckOut: 11 * time.Hour}
}

// ValidityWindow snaps a stay to house times in the hotel's location.
func (h HouseTimes) ValidityWindow(stay Stay) (from, to time.Time) {
	return h.at(stay.CheckIn, h.CheckIn), h.at(stay.CheckOut, h.CheckOut)
}

// Departure is the instant a stay ends: the check-out date at house check-out time.
func (h HouseTimes) Departure(checkOut time.Time) time.Time {
	return h.at(checkOut, h.CheckOut)
}

// StartOfDay returns midnight of now's calendar day in the hotel's location.
func (h HouseTimes) StartOfDay(now time.Time) time.Time {
	y, m, d := now.In(h.location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, h.location())
}

// Today is the hotel's current calendar date, as a DateOf value.
func (h HouseTimes) Today(now time.Time) time.Time {
	return DateOf(now.In(h.location()))
}

func (h HouseTimes) at(date time.Time, clock time.Duration) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, h.location()).Add(clock)
}

func (h HouseTimes) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}
