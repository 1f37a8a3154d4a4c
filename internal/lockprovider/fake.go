package lockprovider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakePasscode is a passcode held by Fake.
type FakePasscode struct {
	LockID string
	Label  string
	Start  time.Time
	End    time.Time
	Passcode
}

// Fake is an in-memory Provider for tests and local runs without lock hardware.
// Per-operation errors can be queued with FailNext.
type Fake struct {
	mu        sync.Mutex
	seq       int
	passcodes map[string]FakePasscode
	unlocks   []string
	sent      []string
	failures  map[string][]error
	// Persist lets a queued ambiguous create still store its passcode, as a timed-out
	// call that reached the lock would.
	Persist bool
}

func NewFake() *Fake {
	return &Fake{passcodes: map[string]FakePasscode{}, failures: map[string][]error{}}
}

// Operation names accepted by FailNext.
const (
	OpCreate = "create"
	OpDelete = "delete"
	OpUnlock = "unlock"
	OpSend   = "send"
	OpFind   = "find"
)

// FailNext makes the next call of op return err.
func (f *Fake) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

func (f *Fake) popFailure(op string) error {
	queue := f.failures[op]
	if len(queue) == 0 {
		return nil
	}
	f.failures[op] = queue[1:]
	return queue[0]
}

func (f *Fake) CreatePasscode(ctx context.Context, lockID string, start, end time.Time, label string) (Passcode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.popFailure(OpCreate)
	if err != nil && !(f.Persist && IsAmbiguous(err)) {
		return Passcode{}, err
	}
	f.seq++
	p := Passcode{Code: fmt.Sprintf("%06d", 100000+f.seq), RemoteID: fmt.Sprintf("%d", f.seq)}
	f.passcodes[p.RemoteID] = FakePasscode{LockID: lockID, Label: label, Start: start, End: end, Passcode: p}
	if err != nil {
		return Passcode{}, err
	}
	return p, nil
}

func (f *Fake) DeletePasscode(ctx context.Context, lockID, remoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure(OpDelete); err != nil {
		return err
	}
	delete(f.passcodes, remoteID)
	return nil
}

func (f *Fake) RemoteUnlock(ctx context.Context, lockID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure(OpUnlock); err != nil {
		return err
	}
	f.unlocks = append(f.unlocks, lockID)
	return nil
}

func (f *Fake) SendCredentialToGuestApp(ctx context.Context, lockID, guestIdentity string, start, end time.Time, remarks string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure(OpSend); err != nil {
		return "", err
	}
	f.seq++
	f.sent = append(f.sent, guestIdentity)
	return fmt.Sprintf("key-%d", f.seq), nil
}

func (f *Fake) FindPasscode(ctx context.Context, lockID, label string, start, end time.Time) (*Passcode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.popFailure(OpFind); err != nil {
		return nil, err
	}
	for _, p := range f.passcodes {
		if p.LockID == lockID && p.Label == label && p.Start.Equal(start) && p.End.Equal(end) {
			found := p.Passcode
			return &found, nil
		}
	}
	return nil, nil
}

// Passcodes returns the passcodes currently installed on locks.
func (f *Fake) Passcodes() []FakePasscode {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakePasscode, 0, len(f.passcodes))
	for _, p := range f.passcodes {
		out = append(out, p)
	}
	return out
}

func (f *Fake) Unlocks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unlocks...)
}

func (f *Fake) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

var _ Provider = (*Fake)(nil)
