// Package totp produces time-windowed one-time codes for the commission
// trading marketplace. Codes are a pure function of the shared secret and the
// time window, so a rejected code is retried by recomputing it for a
// neighbouring window rather than by mutating any request state.
package totp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// DefaultStep is the window length used by the marketplace.
const DefaultStep = 30 * time.Second

// Generate returns the code for the window at + shift*step. Negative shifts
// select past windows, positive shifts future ones.
func Generate(secret string, at time.Time, step time.Duration, shift int) (string, error) {
	return generate(secret, at, step, shift, otp.DigitsSix)
}

func generate(secret string, at time.Time, step time.Duration, shift int, digits otp.Digits) (string, error) {
	if step <= 0 {
		step = DefaultStep
	}
	at = at.Add(time.Duration(shift) * step)
	return totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
		Period:    uint(step / time.Second),
		Digits:    digits,
		Algorithm: otp.AlgorithmSHA1,
	})
}

// Generator holds the shared secret in locked memory and hands out codes for
// the current clock.
type Generator struct {
	secret *memguard.Enclave
	step   time.Duration
	digits otp.Digits
	now    func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithStep overrides the window length.
func WithStep(step time.Duration) Option {
	return func(g *Generator) {
		if step > 0 {
			g.step = step
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New validates secret (base32) and seals it. The caller's copy of the
// secret is not retained.
func New(secret string, opts ...Option) (*Generator, error) {
	secret = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	if secret == "" {
		return nil, errors.New("totp: empty secret")
	}
	g := &Generator{step: DefaultStep, digits: otp.DigitsSix, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	if _, err := generate(secret, g.now(), g.step, 0, g.digits); err != nil {
		return nil, fmt.Errorf("totp: invalid secret: %w", err)
	}
	g.secret = memguard.NewEnclave([]byte(secret))
	return g, nil
}

// Code returns the code for the current window shifted by shift steps.
func (g *Generator) Code(shift int) (string, error) {
	buf, err := g.secret.Open()
	if err != nil {
		return "", fmt.Errorf("totp: open secret: %w", err)
	}
	defer buf.Destroy()
	return generate(buf.String(), g.now(), g.step, shift, g.digits)
}

// Step returns the window length.
func (g *Generator) Step() time.Duration { return g.step }
