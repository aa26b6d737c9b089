package circuit

import (
	"testing"
	"time"
)

func newTestBreaker(maxFailures int, cooldown time.Duration) (*Breaker, *time.Time) {
	clock := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	b := NewBreaker(&BreakerConfig{
		MaxConsecutiveFailures: maxFailures,
		Cooldown:               cooldown,
	})
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != StateClosed {
		t.Fatal("breaker tripped before reaching the failure limit")
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatal("breaker did not trip at the failure limit")
	}
	if b.Allow() {
		t.Error("open breaker must refuse calls inside the cooldown")
	}
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	if b.State() != StateClosed {
		t.Error("success must reset the consecutive-failure streak")
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatal("expected open state")
	}

	*clock = clock.Add(2 * time.Minute)

	if !b.Allow() {
		t.Fatal("expected a probe to be admitted after cooldown")
	}
	if b.Allow() {
		t.Error("only one probe may be in flight in half-open state")
	}

	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Error("successful probe must close the breaker")
	}
	if !b.Allow() {
		t.Error("closed breaker must admit calls")
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	*clock = clock.Add(2 * time.Minute)

	if !b.Allow() {
		t.Fatal("expected a probe to be admitted after cooldown")
	}
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Error("failed probe must re-open the breaker")
	}
	if b.Allow() {
		t.Error("re-opened breaker must refuse calls until the next cooldown")
	}
}

func TestBreakerReleaseFreesHalfOpenSlot(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)

	b.RecordFailure()
	*clock = clock.Add(2 * time.Minute)

	if !b.Allow() {
		t.Fatal("expected a call to be admitted after cooldown")
	}

	// The admitted call ends without a recorded outcome (e.g. the
	// caller cancelled mid-flight). Time alone must not matter; the
	// slot is only freed by an explicit release.
	*clock = clock.Add(24 * time.Hour)
	if b.Allow() {
		t.Fatal("half-open slot must stay held until the outcome is known or released")
	}

	b.Release()
	if !b.Allow() {
		t.Fatal("released breaker must admit the next call")
	}

	b.RecordSuccess()
	if b.State() != StateClosed {
		t.Error("successful call after release must close the breaker")
	}
}

func TestBreakerReleaseWhileClosedIsNoop(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.Release()
	if b.State() != StateClosed {
		t.Errorf("state = %s, want %s", b.State(), StateClosed)
	}
	if !b.Allow() {
		t.Error("closed breaker must keep admitting calls")
	}
}
