package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from   BookingStatus
		action BookingAction
		to     BookingStatus
		events []EventType
	}{
		{BookingStatusPendingCheckIn, ActionCompleteCheckIn, BookingStatusCheckInCompleted, []EventType{EventCheckInCompleted}},
		{BookingStatusPendingCheckIn, ActionKeyIssued, BookingStatusCheckedIn, []EventType{EventCheckInCompleted, EventLockKeyIssued}},
		{BookingStatusCheckInCompleted, ActionKeyIssued, BookingStatusCheckedIn, []EventType{EventLockKeyIssued}},
		{BookingStatusCheckedIn, ActionCheckOut, BookingStatusCheckedOut, []EventType{EventBookingCheckedOut}},
		{BookingStatusPendingCheckIn, ActionCancel, BookingStatusCancelled, []EventType{EventBookingCancelled}},
		{BookingStatusCheckedIn, ActionCancel, BookingStatusCancelled, []EventType{EventBookingCancelled}},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			to, events, err := Transition(tt.from, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.events, events)
			assert.True(t, CanTransition(tt.from, tt.action))
		})
	}
}

func TestTransitionRejected(t *testing.T) {
	tests := []struct {
		from   BookingStatus
		action BookingAction
	}{
		{BookingStatusCheckedIn, ActionKeyIssued},
		{BookingStatusPendingCheckIn, ActionCheckOut},
		{BookingStatusCheckInCompleted, ActionCheckOut},
		{BookingStatusCancelled, ActionCancel},
		{BookingStatusCheckedOut, ActionCancel},
		{BookingStatusCancelled, ActionKeyIssued},
		{BookingStatusCheckedOut, ActionCheckOut},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			to, events, err := Transition(tt.from, tt.action)
			assert.ErrorIs(t, err, ErrInvalidState)
			assert.Equal(t, tt.from, to)
			assert.Nil(t, events)
			assert.False(t, CanTransition(tt.from, tt.action))
		})
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	actions := []BookingAction{ActionCompleteCheckIn, ActionKeyIssued, ActionCheckOut, ActionCancel}
	for _, status := range []BookingStatus{BookingStatusCancelled, BookingStatusCheckedOut} {
		for _, action := range actions {
			assert.False(t, CanTransition(status, action), "%s/%s", status, action)
		}
	}
}

func TestTransitionEventsAreCopied(t *testing.T) {
	_, events, err := Transition(BookingStatusPendingCheckIn, ActionKeyIssued)
	require.NoError(t, err)
	events[0] = EventBookingCancelled

	_, again, err := Transition(BookingStatusPendingCheckIn, ActionKeyIssued)
	require.NoError(t, err)
	assert.Equal(t, EventCheckInCompleted, again[0])
}

func TestErrors(t *testing.T) {
	cause := errors.New("gateway offline")
	err := Provider("failed to create passcode", cause)

	assert.ErrorIs(t, err, ErrProvider)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, CodeProvider, CodeOf(err))
	assert.Equal(t, "[PROVIDER_ERROR] failed to create passcode: gateway offline", err.Error())

	wrapped := errors.Join(errors.New("context"), NotFound("booking %s not found", "b-1"))
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, "[CONFLICT] taken", Conflict("taken").Error())
}
