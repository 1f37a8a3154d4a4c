// Package lockprovider talks to the smart-lock cloud platform: time-bounded passcodes,
// remote unlock and app credentials.
package lockprovider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Passcode struct {
	Code     string
	RemoteID string
}

// Provider is the remote lock capability. Every call is a blocking RPC with no internal retry.
type Provider interface {
	CreatePasscode(ctx context.Context, lockID string, start, end time.Time, label string) (Passcode, error)
	DeletePasscode(ctx context.Context, lockID, remoteID string) error
	RemoteUnlock(ctx context.Context, lockID string) error
	SendCredentialToGuestApp(ctx context.Context, lockID, guestIdentity string, start, end time.Time, remarks string) (string, error)
	// FindPasscode looks for a passcode with the given label and window. It returns
	// (nil, nil) when there is none; used to reconcile after an ambiguous create.
	FindPasscode(ctx context.Context, lockID, label string, start, end time.Time) (*Passcode, error)
}

type Kind int

const (
	// KindRejected: the platform answered and refused the request.
	KindRejected Kind = iota
	// KindUnavailable: the request did not reach the platform or it failed server-side.
	KindUnavailable
	// KindAmbiguous: the call timed out and may or may not have taken effect.
	KindAmbiguous
	// KindConfig: credentials, lock wiring or guest app registration are wrong.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindUnavailable:
		return "unavailable"
	case KindAmbiguous:
		return "ambiguous"
	case KindConfig:
		return "config"
	}
	return "unknown"
}

type Error struct {
	Op      string
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("lock provider %s %s", e.Op, e.Kind)
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a provider error, defaulting to KindUnavailable.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnavailable
}

func IsAmbiguous(err error) bool { return err != nil && KindOf(err) == KindAmbiguous }

func IsConfig(err error) bool { return err != nil && KindOf(err) == KindConfig }
