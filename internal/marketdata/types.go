package marketdata

import "errors"

// ErrUnavailable indicates the vendor has no data for the requested
// ticker. It is an expected condition, not a transport failure.
var ErrUnavailable = errors.New("market data unavailable")

// CallQuote represents one call-option contract row as received from a
// vendor, normalized to the same shape regardless of source. LastPrice
// and Bid are pointers because vendors omit them for untraded contracts;
// an absent field is meaningful and must not be coerced to zero.
type CallQuote struct {
	Strike            float64  `json:"strike"`
	LastPrice         *float64 `json:"last_price,omitempty"`
	Bid               *float64 `json:"bid,omitempty"`
	OpenInterest      int64    `json:"open_interest"`
	ImpliedVolatility float64  `json:"implied_volatility"`
}

// Week52Range holds the trailing 52-week high and low of an instrument.
type Week52Range struct {
	High float64 `json:"high"`
	Low  float64 `json:"low"`
}
