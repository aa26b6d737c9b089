package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/circuit"
)

// FailoverProvider routes calls to a primary vendor and falls through to
// a secondary one when the primary fails or its circuit breaker is open.
// ErrUnavailable from the primary is an answer, not a failure: the
// vendor looked and found nothing, so no failover happens and the
// breaker is not penalized.
type FailoverProvider struct {
	primary   Provider
	secondary Provider
	breaker   *circuit.Breaker
	logger    zerolog.Logger
}

// NewFailoverProvider wires a primary and secondary provider together.
// secondary may be nil, in which case primary errors surface directly.
func NewFailoverProvider(primary, secondary Provider, breakerCfg *circuit.BreakerConfig, logger zerolog.Logger) *FailoverProvider {
	f := &FailoverProvider{
		primary:   primary,
		secondary: secondary,
		breaker:   circuit.NewBreaker(breakerCfg),
		logger:    logger.With().Str("component", "failover").Logger(),
	}
	f.breaker.OnTrip(func() {
		f.logger.Warn().Str("vendor", primary.Name()).Msg("circuit breaker open, routing to secondary vendor")
	})
	f.breaker.OnReset(func() {
		f.logger.Info().Str("vendor", primary.Name()).Msg("circuit breaker closed, primary vendor recovered")
	})
	return f
}

// Name identifies the composite provider.
func (f *FailoverProvider) Name() string {
	if f.secondary == nil {
		return f.primary.Name()
	}
	return f.primary.Name() + "+" + f.secondary.Name()
}

// GetCurrentPrice implements Provider.
func (f *FailoverProvider) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	price, err := callThrough(f, ctx, ticker, func(p Provider) (float64, error) {
		return p.GetCurrentPrice(ctx, ticker)
	})
	return price, err
}

// Get52WeekRange implements Provider.
func (f *FailoverProvider) Get52WeekRange(ctx context.Context, ticker string) (*Week52Range, error) {
	return callThrough(f, ctx, ticker, func(p Provider) (*Week52Range, error) {
		return p.Get52WeekRange(ctx, ticker)
	})
}

// GetExpirations implements Provider.
func (f *FailoverProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	return callThrough(f, ctx, ticker, func(p Provider) ([]time.Time, error) {
		return p.GetExpirations(ctx, ticker)
	})
}

// GetCallChain implements Provider.
func (f *FailoverProvider) GetCallChain(ctx context.Context, ticker string, expiration time.Time) ([]CallQuote, error) {
	return callThrough(f, ctx, ticker, func(p Provider) ([]CallQuote, error) {
		return p.GetCallChain(ctx, ticker, expiration)
	})
}

// callThrough runs one provider operation with breaker accounting and
// secondary fallback.
func callThrough[T any](f *FailoverProvider, ctx context.Context, ticker string, op func(Provider) (T, error)) (T, error) {
	var zero T

	if f.breaker.Allow() {
		result, err := op(f.primary)
		switch {
		case err == nil, errors.Is(err, ErrUnavailable):
			f.breaker.RecordSuccess()
			return result, err
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// Caller gave up; not the vendor's fault, but the breaker
			// must not keep waiting for an outcome that will never come.
			f.breaker.Release()
			return zero, err
		default:
			f.breaker.RecordFailure()
			if f.secondary == nil {
				return zero, err
			}
			f.logger.Warn().Err(err).Str("ticker", ticker).
				Str("vendor", f.primary.Name()).
				Msg("primary vendor call failed, trying secondary")
		}
	} else if f.secondary == nil {
		return zero, errors.New("primary vendor circuit open and no secondary configured")
	}

	return op(f.secondary)
}
