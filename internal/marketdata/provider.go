package marketdata

import (
	"context"
	"time"
)

// Provider defines the vendor-neutral interface for market data
// operations. The scanner only ever sees this shape; vendor-specific
// fields stay inside the client implementations.
type Provider interface {
	// Name identifies the vendor for logging and health reporting.
	Name() string

	// GetCurrentPrice returns the last traded price for a ticker.
	// Returns ErrUnavailable when the vendor has no price.
	GetCurrentPrice(ctx context.Context, ticker string) (float64, error)

	// Get52WeekRange returns the trailing 52-week high/low. A nil range
	// with a nil error means insufficient history.
	Get52WeekRange(ctx context.Context, ticker string) (*Week52Range, error)

	// GetExpirations returns the available call-option expiration dates
	// for a ticker. The slice may be empty and need not be sorted.
	GetExpirations(ctx context.Context, ticker string) ([]time.Time, error)

	// GetCallChain returns the call-option chain for one expiration.
	// The slice may be empty; order is not significant.
	GetCallChain(ctx context.Context, ticker string, expiration time.Time) ([]CallQuote, error)
}

// Ensure all clients implement Provider
var _ Provider = (*PolygonClient)(nil)
var _ Provider = (*TradierClient)(nil)
var _ Provider = (*FailoverProvider)(nil)
var _ Provider = (*MockProvider)(nil)
