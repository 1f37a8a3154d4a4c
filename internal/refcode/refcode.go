// Package refcode generates the short booking reference codes guests type in.
package refcode

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/retry"
)

// Alphabet leaves out 0/O and 1/I.
const (
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	Length   = 6

	DefaultMaxAttempts = 10
)

// ExistsFunc reports whether a code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

type Generator struct {
	maxAttempts int
	random      func() (string, error)
}

func NewGenerator(maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{maxAttempts: maxAttempts, random: Random}
}

var errTaken = errors.New("reference code taken")

// Generate draws codes until exists reports a free one. Running out of attempts is a
// ConflictError.
func (g *Generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	var code string
	err := retry.Do(ctx, retry.Policy{
		MaxAttempts: g.maxAttempts,
		Retryable:   func(err error) bool { return errors.Is(err, errTaken) },
	}, func(ctx context.Context, _ int) error {
		candidate, err := g.random()
		if err != nil {
			return err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return err
		}
		if taken {
			return errTaken
		}
		code = candidate
		return nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return "", domain.NewError(domain.CodeConflict, "could not allocate a unique reference code", err)
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

// Random returns one code drawn uniformly from Alphabet.
func Random() (string, error) {
	buf := make([]byte, Length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Valid reports whether s has the shape of a reference code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !containsByte(Alphabet, s[i]) {
			return false
		}
	}
	return true
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
