// Package clock provides the single source of server-authoritative time and
// identity used across the assessment engine. Every timestamp a client can
// observe — reservation time, expiration instant, grace deadline — is
// derived from a Clock, never from a client-supplied value, so that a
// session's timing cannot be manipulated by clock skew or a forged request.
package clock

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock time so tests can exercise grace-period and
// expiration boundaries deterministically.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// FakeClock is a test Clock that only advances when told to.
type FakeClock struct {
	current time.Time
}

// NewFakeClock returns a FakeClock pinned at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time { return c.current }

// Advance moves the fake clock forward by d.
func (c *FakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

// Set pins the fake clock at t.
func (c *FakeClock) Set(t time.Time) { c.current = t }

// NewID mints a new opaque identifier for any container row.
func NewID() string {
	return uuid.NewString()
}

const accessCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateAccessCode mints a random access code of length n (Crockford-style
// alphabet, excludes easily-confused characters). Used by the Session
// Manager at reserve time; the candidate presents it back to start.
func GenerateAccessCode(n int) (string, error) {
	if n <= 0 {
		n = 10
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = accessCodeAlphabet[int(b)%len(accessCodeAlphabet)]
	}
	return string(out), nil
}
