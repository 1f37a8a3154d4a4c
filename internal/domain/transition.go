package domain

// BookingAction drives a booking through its lifecycle.
type BookingAction string

const (
	ActionCompleteCheckIn BookingAction = "complete_checkin"
	ActionKeyIssued       BookingAction = "key_issued"
	ActionCheckOut        BookingAction = "check_out"
	ActionCancel          BookingAction = "cancel"
)

type transitionKey struct {
	from   BookingStatus
	action BookingAction
}

type transition struct {
	to     BookingStatus
	events []EventType
}

var transitions = map[transitionKey]transition{
	{BookingStatusPendingCheckIn, ActionCompleteCheckIn}: {BookingStatusCheckInCompleted, []EventType{EventCheckInCompleted}},
	{BookingStatusPendingCheckIn, ActionKeyIssued}:       {BookingStatusCheckedIn, []EventType{EventCheckInCompleted, EventLockKeyIssued}},
	{BookingStatusCheckInCompleted, ActionKeyIssued}:     {BookingStatusCheckedIn, []EventType{EventLockKeyIssued}},
	{BookingStatusCheckedIn, ActionCheckOut}:             {BookingStatusCheckedOut, []EventType{EventBookingCheckedOut}},
	{BookingStatusPendingCheckIn, ActionCancel}:          {BookingStatusCancelled, []EventType{EventBookingCancelled}},
	{BookingStatusCheckInCompleted, ActionCancel}:        {BookingStatusCancelled, []EventType{EventBookingCancelled}},
	{BookingStatusCheckedIn, ActionCancel}:               {BookingStatusCancelled, []EventType{EventBookingCancelled}},
}

// Transition looks up the next status for action and the events the move produces.
// It fails with an InvalidState error when the move is not in the table.
func Transition(from BookingStatus, action BookingAction) (BookingStatus, []EventType, error) {
	t, ok := transitions[transitionKey{from, action}]
	if !ok {
		return from, nil, InvalidState("booking in status %s cannot %s", from, action)
	}
	events := make([]EventType, len(t.events))
	copy(events, t.events)
	return t.to, events, nil
}

// CanTransition reports whether action is allowed from status.
func CanTransition(from BookingStatus, action BookingAction) bool {
	_, ok := transitions[transitionKey{from, action}]
	return ok
}
