package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "warrant-sniper/internal/errors"
	"warrant-sniper/internal/store"
)

const (
	testPasscode = "8888"
	testLockout  = 300 * time.Second
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGate(t *testing.T) (*Gate, store.DataStore, *fakeClock) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "gate.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	gate := NewGate(st, NewStaticValidator(testPasscode, "override-1"), 3, testLockout, zerolog.Nop())
	gate.SetClock(clock.Now)
	return gate, st, clock
}

func TestCorrectPasscodeSucceeds(t *testing.T) {
	gate, _, _ := newTestGate(t)

	if err := gate.Attempt(context.Background(), testPasscode); err != nil {
		t.Fatalf("Attempt with correct passcode: %v", err)
	}

	status := gate.Status(context.Background())
	if status.Locked || status.FailedAttempts != 0 {
		t.Errorf("status after success = %+v, want clean state", status)
	}
}

func TestOverrideCodeSucceeds(t *testing.T) {
	gate, _, _ := newTestGate(t)
	if err := gate.Attempt(context.Background(), "override-1"); err != nil {
		t.Fatalf("Attempt with override code: %v", err)
	}
}

func TestEmptySecretNeverMatches(t *testing.T) {
	gate, _, _ := newTestGate(t)
	if err := gate.Attempt(context.Background(), ""); !apperrors.Is(err, apperrors.ErrInvalidPasscode) {
		t.Errorf("empty secret error = %v, want ErrInvalidPasscode", err)
	}
}

func TestThreeFailuresTriggerLockout(t *testing.T) {
	gate, _, _ := newTestGate(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := gate.Attempt(ctx, "wrong"); !apperrors.Is(err, apperrors.ErrInvalidPasscode) {
			t.Fatalf("attempt %d error = %v, want ErrInvalidPasscode", i+1, err)
		}
	}

	status := gate.Status(ctx)
	if !status.Locked {
		t.Fatal("gate should be locked after three failures")
	}
	if status.Remaining <= 0 || status.Remaining > testLockout {
		t.Errorf("remaining = %v, want within (0, %v]", status.Remaining, testLockout)
	}

	// Even the correct passcode is rejected during the lockout.
	err := gate.Attempt(ctx, testPasscode)
	if !apperrors.Is(err, apperrors.ErrLockedOut) {
		t.Errorf("locked attempt error = %v, want ErrLockedOut", err)
	}
	var lockout *apperrors.LockoutError
	if !apperrors.As(err, &lockout) || lockout.Remaining <= 0 {
		t.Errorf("error should carry a positive remaining duration, got %v", err)
	}
}

func TestLockedAttemptsDoNotExtendTheCounter(t *testing.T) {
	gate, st, clock := newTestGate(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		gate.Attempt(ctx, "wrong")
	}
	stateBefore, _ := st.GetLoginState(ctx)

	for i := 0; i < 5; i++ {
		gate.Attempt(ctx, "wrong")
	}
	stateAfter, _ := st.GetLoginState(ctx)

	if stateAfter != stateBefore {
		t.Errorf("locked attempts mutated state: before=%+v after=%+v", stateBefore, stateAfter)
	}

	// The remaining window shrinks as the clock advances.
	clock.Advance(100 * time.Second)
	status := gate.Status(ctx)
	if !status.Locked {
		t.Fatal("still inside the window, should be locked")
	}
	if status.Remaining > 200*time.Second {
		t.Errorf("remaining = %v, want at most 200s after 100s elapsed", status.Remaining)
	}
}

func TestLockoutExpiryResetsEverything(t *testing.T) {
	gate, _, clock := newTestGate(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		gate.Attempt(ctx, "wrong")
	}
	clock.Advance(testLockout + time.Second)

	// First attempt after expiry starts from a clean counter: a wrong
	// passcode is failure one of three, not an immediate re-lock.
	if err := gate.Attempt(ctx, "wrong"); !apperrors.Is(err, apperrors.ErrInvalidPasscode) {
		t.Fatalf("post-expiry attempt error = %v, want ErrInvalidPasscode", err)
	}
	status := gate.Status(ctx)
	if status.Locked {
		t.Fatal("one failure after expiry must not re-lock")
	}
	if status.FailedAttempts != 1 {
		t.Errorf("failed attempts = %d, want 1", status.FailedAttempts)
	}

	if err := gate.Attempt(ctx, testPasscode); err != nil {
		t.Errorf("correct passcode after expiry: %v", err)
	}
}

func TestSuccessResetsFailureCounter(t *testing.T) {
	gate, st, _ := newTestGate(t)
	ctx := context.Background()

	gate.Attempt(ctx, "wrong")
	gate.Attempt(ctx, "wrong")
	if err := gate.Attempt(ctx, testPasscode); err != nil {
		t.Fatalf("Attempt: %v", err)
	}

	state, _ := st.GetLoginState(ctx)
	if state.FailedAttempts != 0 || state.LockoutUntil != 0 {
		t.Errorf("state after success = %+v, want zero", state)
	}

	// The counter starts over: two more failures still leave one try.
	gate.Attempt(ctx, "wrong")
	gate.Attempt(ctx, "wrong")
	if status := gate.Status(ctx); status.Locked {
		t.Error("two failures after a reset must not lock")
	}
}

func TestLockoutSurvivesGateRestart(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gate.db")
	st, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	gate := NewGate(st, NewStaticValidator(testPasscode, ""), 3, testLockout, zerolog.Nop())
	gate.SetClock(clock.Now)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		gate.Attempt(ctx, "wrong")
	}
	st.Close()

	reopened, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	restarted := NewGate(reopened, NewStaticValidator(testPasscode, ""), 3, testLockout, zerolog.Nop())
	restarted.SetClock(clock.Now)

	if err := restarted.Attempt(ctx, testPasscode); !apperrors.Is(err, apperrors.ErrLockedOut) {
		t.Errorf("restarted gate error = %v, want the lockout to persist", err)
	}
}
