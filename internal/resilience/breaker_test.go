package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker(3, time.Minute)
	fail := func() error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		if err := b.Execute(fail); err == nil {
			t.Fatalf("attempt %d: expected error", i)
		}
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want OPEN", b.State())
	}

	// Next call must be rejected without invoking the operation.
	invoked := false
	err := b.Execute(func() error {
		invoked = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
	if invoked {
		t.Error("operation was invoked while circuit open")
	}
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	now := time.Now()
	b := NewCircuitBreaker(1, 30*time.Second)
	b.now = func() time.Time { return now }

	if err := b.Execute(func() error { return errors.New("boom") }); err == nil {
		t.Fatal("expected error")
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state = %s, want OPEN", b.State())
	}

	// Timeout elapses: exactly one trial call is allowed.
	now = now.Add(31 * time.Second)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN", b.State())
	}

	calls := 0
	if err := b.Execute(func() error { calls++; return nil }); err != nil {
		t.Fatalf("trial call failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if b.State() != BreakerClosed {
		t.Errorf("state after successful trial = %s, want CLOSED", b.State())
	}
}

func TestCircuitBreaker_FailedTrialReopens(t *testing.T) {
	now := time.Now()
	b := NewCircuitBreaker(1, 30*time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errors.New("boom") })
	now = now.Add(31 * time.Second)

	if err := b.Execute(func() error { return errors.New("still down") }); err == nil {
		t.Fatal("expected trial failure")
	}
	if b.State() != BreakerOpen {
		t.Errorf("state = %s, want OPEN after failed trial", b.State())
	}

	// Still inside the new timeout window: reject fast.
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewCircuitBreaker(2, time.Minute)

	_ = b.Execute(func() error { return errors.New("boom") })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errors.New("boom") })

	if b.State() != BreakerClosed {
		t.Errorf("state = %s, want CLOSED (failures are not consecutive)", b.State())
	}
}
