// Package auth verifies unlock passwords against a bcrypt hash.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for a wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrNoHash is returned when no password hash is configured.
	ErrNoHash = errors.New("auth: no password hash configured")
)

// DefaultCost is the bcrypt cost used by HashPassword when cost is 0.
const DefaultCost = 12

// Verifier checks passwords against one bcrypt hash. It is safe for
// concurrent use.
type Verifier struct {
	hash  []byte
	delay time.Duration
}

// New validates hash. failureDelay is served after every wrong password.
func New(hash string, failureDelay time.Duration) (*Verifier, error) {
	if hash == "" {
		return nil, ErrNoHash
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("auth: invalid password hash: %w", err)
	}
	return &Verifier{hash: []byte(hash), delay: failureDelay}, nil
}

// Authenticate returns nil when password matches. A mismatch returns
// ErrInvalidCredentials after the failure delay, or ctx.Err() if ctx ends
// first.
func (v *Verifier) Authenticate(ctx context.Context, password string) error {
	err := bcrypt.CompareHashAndPassword(v.hash, []byte(password))
	if err == nil {
		return nil
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("auth: compare: %w", err)
	}

	if v.delay > 0 {
		t := time.NewTimer(v.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ErrInvalidCredentials
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	if cost == 0 {
		cost = DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(h), nil
}
