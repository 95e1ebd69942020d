package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerStartsClosed(t *testing.T) {
	b := New("test", Settings{})
	if b.State() != StateClosed {
		t.Errorf("Expected closed, got %s", b.State())
	}
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := New("test", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
	})

	fail := func() (interface{}, error) { return nil, errors.New("boom") }
	for i := 0; i < 3; i++ {
		b.Execute(fail)
	}

	if b.State() != StateOpen {
		t.Errorf("Expected open after 3 failures, got %s", b.State())
	}

	if _, err := b.Execute(fail); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := New("test", Settings{
		MaxRequests: 1,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	b.Execute(func() (interface{}, error) { return nil, errors.New("boom") })
	if b.State() != StateOpen {
		t.Fatalf("Expected open, got %s", b.State())
	}

	time.Sleep(20 * time.Millisecond)
	if b.State() != StateHalfOpen {
		t.Fatalf("Expected half-open after timeout, got %s", b.State())
	}

	if _, err := b.Execute(func() (interface{}, error) { return "ok", nil }); err != nil {
		t.Fatalf("Half-open probe failed: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("Expected closed after successful probe, got %s", b.State())
	}
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b := New("test", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
	})

	fail := func() (interface{}, error) { return nil, errors.New("boom") }
	ok := func() (interface{}, error) { return nil, nil }

	b.Execute(fail)
	b.Execute(fail)
	b.Execute(ok)
	b.Execute(fail)
	b.Execute(fail)

	if b.State() != StateClosed {
		t.Errorf("Streak was broken, breaker should stay closed, got %s", b.State())
	}
}
