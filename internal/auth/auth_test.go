package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func testHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := HashPassword(pw, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return h
}

func TestAuthenticate(t *testing.T) {
	v, err := New(testHash(t, "correct horse"), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"match", "correct horse", nil},
		{"mismatch", "battery staple", ErrInvalidCredentials},
		{"empty", "", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Authenticate(context.Background(), tt.password)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Authenticate(%q) = %v, want %v", tt.password, err, tt.want)
			}
		})
	}
}

func TestFailureDelay(t *testing.T) {
	v, err := New(testHash(t, "pw"), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start := time.Now()
	if err := v.Authenticate(context.Background(), "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("failure returned after %v, want at least the delay", elapsed)
	}
}

func TestFailureDelayHonorsContext(t *testing.T) {
	v, err := New(testHash(t, "pw"), time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := v.Authenticate(ctx, "nope"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Authenticate = %v, want deadline exceeded", err)
	}
}

func TestNewRejectsBadHashes(t *testing.T) {
	if _, err := New("", 0); !errors.Is(err, ErrNoHash) {
		t.Fatalf("New(\"\") = %v, want ErrNoHash", err)
	}
	if _, err := New("plaintext", 0); err == nil {
		t.Fatalf("New accepted a non-bcrypt hash")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword("", bcrypt.MinCost); err == nil {
		t.Fatalf("HashPassword accepted an empty password")
	}
}
