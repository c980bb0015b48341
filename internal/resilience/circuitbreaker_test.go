package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failN(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_ = b.Execute(func() error { return errBoom })
	}
}

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{Name: "test", MaxFailures: 3, ResetTimeout: time.Hour})

	failN(b, 2)
	if got := b.State(); got != StateClosed {
		t.Fatalf("after 2 failures: state = %s, want closed", got)
	}

	failN(b, 1)
	if got := b.State(); got != StateOpen {
		t.Fatalf("after 3 failures: state = %s, want open", got)
	}

	// Calls are now rejected without invoking fn.
	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute while open: err = %v, want ErrCircuitOpen", err)
	}
	if called {
		t.Error("Execute while open invoked fn")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 3, ResetTimeout: time.Hour})

	failN(b, 2)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	failN(b, 2)

	// 2 failures, success, 2 failures — never 3 consecutive.
	if got := b.State(); got != StateClosed {
		t.Errorf("state = %s, want closed", got)
	}
}

func TestBreaker_HalfOpenClosesAfterProbes(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMax: 2})

	failN(b, 1)
	if got := b.State(); got != StateOpen {
		t.Fatalf("state = %s, want open", got)
	}

	time.Sleep(20 * time.Millisecond)
	if got := b.State(); got != StateHalfOpen {
		t.Fatalf("after reset timeout: state = %s, want half-open", got)
	}

	// Two successful probes close the breaker.
	for i := 0; i < 2; i++ {
		if err := b.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if got := b.State(); got != StateClosed {
		t.Errorf("after successful probes: state = %s, want closed", got)
	}
}

func TestBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond, HalfOpenMax: 3})

	failN(b, 1)
	time.Sleep(20 * time.Millisecond)

	// A single failed probe re-opens immediately.
	failN(b, 1)
	if got := b.State(); got != StateOpen {
		t.Errorf("after failed probe: state = %s, want open", got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b := NewBreaker(BreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	failN(b, 1)
	b.Reset()

	if got := b.State(); got != StateClosed {
		t.Errorf("after Reset: state = %s, want closed", got)
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute after Reset: %v", err)
	}
}
