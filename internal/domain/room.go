package domain

import "time"

type RoomType struct {
	ID             string
	Name           string
	Description    string
	BasePriceCents int64
	MaxOccupancy   int
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Room struct {
	ID         string
	RoomNumber string
	RoomTypeID string
	IsActive   bool
	LockID     *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Controllable reports whether the room can be handed out by automated allocation.
func (r *Room) Controllable() bool {
	return r.IsActive && r.LockID != nil && *r.LockID != ""
}

// AdditionalService is an add-on a guest can ask for while checking in.
type AdditionalService struct {
	ID          string
	Code        string
	Name        string
	Description string
	Unit        string
	PriceCents  int64
	IsActive    bool
	CreatedAt   time.Time
}

// Stay is a half-open date interval [CheckIn, CheckOut).
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Overlaps uses the half-open rule: a check-out on day D and a check-in on day D do not overlap.
func (s Stay) Overlaps(other Stay) bool {
	return DateOf(s.CheckIn).Before(DateOf(other.CheckOut)) && DateOf(other.CheckIn).Before(DateOf(s.CheckOut))
}

// DateOf drops the clock part and location, keeping the calendar date as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
