package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/circuit"
)

// stubProvider lets tests script each operation.
type stubProvider struct {
	name     string
	price    float64
	priceErr error
	calls    int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) GetCurrentPrice(_ context.Context, _ string) (float64, error) {
	s.calls++
	return s.price, s.priceErr
}

func (s *stubProvider) Get52WeekRange(_ context.Context, _ string) (*Week52Range, error) {
	return nil, nil
}

func (s *stubProvider) GetExpirations(_ context.Context, _ string) ([]time.Time, error) {
	return nil, nil
}

func (s *stubProvider) GetCallChain(_ context.Context, _ string, _ time.Time) ([]CallQuote, error) {
	return nil, nil
}

func newFailover(primary, secondary Provider) *FailoverProvider {
	return NewFailoverProvider(primary, secondary, &circuit.BreakerConfig{
		MaxConsecutiveFailures: 2,
		Cooldown:               time.Minute,
	}, zerolog.Nop())
}

func TestFailoverUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &stubProvider{name: "primary", price: 50}
	secondary := &stubProvider{name: "secondary", price: 99}
	f := newFailover(primary, secondary)

	price, err := f.GetCurrentPrice(context.Background(), "IBIT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 50 {
		t.Errorf("price = %v, want primary's 50", price)
	}
	if secondary.calls != 0 {
		t.Error("secondary must not be called while primary is healthy")
	}
}

func TestFailoverFallsThroughOnPrimaryError(t *testing.T) {
	primary := &stubProvider{name: "primary", priceErr: errors.New("connection refused")}
	secondary := &stubProvider{name: "secondary", price: 42}
	f := newFailover(primary, secondary)

	price, err := f.GetCurrentPrice(context.Background(), "IBIT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 42 {
		t.Errorf("price = %v, want secondary's 42", price)
	}
}

// TestFailoverUnavailableIsAnAnswer verifies ErrUnavailable from the
// primary surfaces directly: the vendor looked and found nothing, so
// there is no point asking the secondary.
func TestFailoverUnavailableIsAnAnswer(t *testing.T) {
	primary := &stubProvider{name: "primary", priceErr: ErrUnavailable}
	secondary := &stubProvider{name: "secondary", price: 42}
	f := newFailover(primary, secondary)

	_, err := f.GetCurrentPrice(context.Background(), "IBIT")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if secondary.calls != 0 {
		t.Error("ErrUnavailable must not trigger failover")
	}
}

func TestFailoverOpenBreakerSkipsPrimary(t *testing.T) {
	primary := &stubProvider{name: "primary", priceErr: errors.New("boom")}
	secondary := &stubProvider{name: "secondary", price: 42}
	f := newFailover(primary, secondary)

	// Two failures trip the breaker.
	f.GetCurrentPrice(context.Background(), "IBIT")
	f.GetCurrentPrice(context.Background(), "IBIT")

	primaryCallsBefore := primary.calls
	if _, err := f.GetCurrentPrice(context.Background(), "IBIT"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.calls != primaryCallsBefore {
		t.Error("open breaker must route straight to the secondary")
	}
}

func TestFailoverNoSecondarySurfacesError(t *testing.T) {
	primary := &stubProvider{name: "primary", priceErr: errors.New("boom")}
	f := newFailover(primary, nil)

	if _, err := f.GetCurrentPrice(context.Background(), "IBIT"); err == nil {
		t.Fatal("expected the primary error to surface without a secondary")
	}
}

func TestFailoverRecoversAfterCancelledCall(t *testing.T) {
	primary := &stubProvider{name: "primary", priceErr: errors.New("boom")}
	f := NewFailoverProvider(primary, nil, &circuit.BreakerConfig{
		MaxConsecutiveFailures: 2,
		Cooldown:               0,
	}, zerolog.Nop())

	// Two failures trip the breaker; zero cooldown means the next call
	// is admitted as the half-open trial.
	f.GetCurrentPrice(context.Background(), "IBIT")
	f.GetCurrentPrice(context.Background(), "IBIT")

	// The trial call is cancelled mid-flight: no success, no failure.
	primary.priceErr = context.Canceled
	if _, err := f.GetCurrentPrice(context.Background(), "IBIT"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The slot must have been released so the breaker can try again.
	primary.priceErr = nil
	primary.price = 42
	got, err := f.GetCurrentPrice(context.Background(), "IBIT")
	if err != nil {
		t.Fatalf("breaker never recovered after cancelled call: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected price 42 from primary, got %v", got)
	}
}
