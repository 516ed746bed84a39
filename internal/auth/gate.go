// Package auth provides the passcode login gate with a bounded
// failure counter and lockout timer.
package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "warrant-sniper/internal/errors"
	"warrant-sniper/internal/logging"
	"warrant-sniper/internal/models"
	"warrant-sniper/internal/store"
)

// CredentialValidator checks a supplied secret. Implementations keep
// the actual passcode out of the gate logic.
type CredentialValidator interface {
	Validate(secret string) bool
}

// StaticValidator validates against configured passcode and optional
// override code.
type StaticValidator struct {
	passcode string
	override string
}

// NewStaticValidator creates a validator for the configured codes.
func NewStaticValidator(passcode, override string) StaticValidator {
	return StaticValidator{passcode: passcode, override: override}
}

// Validate implements CredentialValidator. An empty configured
// passcode never matches; the gate is disabled at a higher level.
func (v StaticValidator) Validate(secret string) bool {
	if secret == "" {
		return false
	}
	if v.passcode != "" && secret == v.passcode {
		return true
	}
	return v.override != "" && secret == v.override
}

// Gate enforces the lockout policy around a CredentialValidator.
// State is persisted on every mutation so it survives restarts.
type Gate struct {
	store     store.DataStore
	validator CredentialValidator
	max       int
	lockout   time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewGate creates a gate with the given policy. maxAttempts failures
// trigger a lockout of the given duration.
func NewGate(st store.DataStore, validator CredentialValidator, maxAttempts int, lockout time.Duration, logger zerolog.Logger) *Gate {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &Gate{
		store:     st,
		validator: validator,
		max:       maxAttempts,
		lockout:   lockout,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock overrides the gate's time source.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Attempt validates a passcode. During a lockout every attempt is
// rejected outright without touching the counter; an expired lockout
// clears all state before the attempt is considered.
func (g *Gate) Attempt(ctx context.Context, secret string) error {
	state, err := g.store.GetLoginState(ctx)
	if err != nil {
		state = models.LoginAttemptState{}
	}
	now := g.now()

	if state.Locked(now) {
		remaining := time.Duration(state.LockoutUntil-now.UnixMilli()) * time.Millisecond
		return apperrors.NewLockoutError(remaining)
	}
	if state.LockoutUntil > 0 {
		// Lockout expired: counter and expiry reset together.
		state = models.LoginAttemptState{}
		if err := g.store.ResetLoginState(ctx); err != nil {
			g.logger.Warn().Err(err).Msg("Failed to reset login state")
		}
	}

	if g.validator.Validate(secret) {
		if err := g.store.ResetLoginState(ctx); err != nil {
			g.logger.Warn().Err(err).Msg("Failed to reset login state")
		}
		g.logger.Info().Str("event", "login").Msg("Authentication succeeded")
		return nil
	}

	state.FailedAttempts++
	if state.FailedAttempts >= g.max {
		until := now.Add(g.lockout)
		state.LockoutUntil = until.UnixMilli()
		logging.LogLockout(g.logger, state.FailedAttempts, until)
	}
	if err := g.store.SaveLoginState(ctx, state); err != nil {
		g.logger.Warn().Err(err).Msg("Failed to persist login state")
	}
	return apperrors.ErrInvalidPasscode
}

// Status describes the gate for display.
type Status struct {
	Locked         bool
	Remaining      time.Duration
	FailedAttempts int
	AttemptsLeft   int
}

// Status returns the current gate state.
func (g *Gate) Status(ctx context.Context) Status {
	state, err := g.store.GetLoginState(ctx)
	if err != nil {
		state = models.LoginAttemptState{}
	}
	now := g.now()

	st := Status{FailedAttempts: state.FailedAttempts}
	if state.Locked(now) {
		st.Locked = true
		st.Remaining = time.Duration(state.LockoutUntil-now.UnixMilli()) * time.Millisecond
		st.AttemptsLeft = 0
		return st
	}
	if state.LockoutUntil > 0 {
		// Expired but not yet cleared by an attempt.
		st.FailedAttempts = 0
	}
	st.AttemptsLeft = g.max - st.FailedAttempts
	if st.AttemptsLeft < 0 {
		st.AttemptsLeft = 0
	}
	return st
}
