package scanner

import (
	"encoding/json"
	"time"

	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/strategy"
)

// FailureReason classifies why a ticker scan produced no report.
type FailureReason string

const (
	ReasonPriceUnavailable     FailureReason = "price_unavailable"
	ReasonNoExpirations        FailureReason = "no_expirations"
	ReasonNoSuitableExpiration FailureReason = "no_suitable_expiration"
	ReasonInvalidPrice         FailureReason = "invalid_price"
	ReasonProviderFailure      FailureReason = "provider_failure"
)

// Failure records a per-ticker scan failure. One bad ticker never
// aborts a group scan; its Failure simply rides along in the report.
type Failure struct {
	Ticker string        `json:"ticker"`
	Reason FailureReason `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// TickerReport is a successful scan of one ticker: the selected
// expiration and the ordered covered-call candidates. An empty
// Strategies list with a Message is a valid outcome (no sellable
// calls), distinct from any Failure.
type TickerReport struct {
	Ticker            string              `json:"ticker"`
	CurrentPrice      float64             `json:"current_price"`
	Week52High        *float64            `json:"week52_high,omitempty"`
	Week52Low         *float64            `json:"week52_low,omitempty"`
	Expiration        string              `json:"expiration"`
	Strategies        []strategy.Strategy `json:"strategies"`
	TotalOpenInterest int64               `json:"total_open_interest"`
	Message           string              `json:"message,omitempty"`
}

// Outcome is the discriminated per-ticker result: exactly one of Report
// or Failure is set. JSON marshaling emits only the populated variant
// so API clients never have to inspect both.
type Outcome struct {
	Report  *TickerReport `json:"-"`
	Failure *Failure      `json:"-"`
}

// OK reports whether the outcome carries a report.
func (o Outcome) OK() bool { return o.Report != nil }

// MarshalJSON emits the populated variant directly.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Report != nil {
		return json.Marshal(o.Report)
	}
	return json.Marshal(struct {
		Ticker string        `json:"ticker"`
		Error  string        `json:"error"`
		Reason FailureReason `json:"reason"`
	}{
		Ticker: o.Failure.Ticker,
		Error:  o.Failure.Detail,
		Reason: o.Failure.Reason,
	})
}

// UnmarshalJSON restores the variant, discriminating on the failure
// reason field. Needed for reports cached in Redis.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var probe struct {
		Ticker string        `json:"ticker"`
		Error  string        `json:"error"`
		Reason FailureReason `json:"reason"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Reason != "" {
		o.Failure = &Failure{Ticker: probe.Ticker, Reason: probe.Reason, Detail: probe.Error}
		o.Report = nil
		return nil
	}

	var report TickerReport
	if err := json.Unmarshal(data, &report); err != nil {
		return err
	}
	o.Report = &report
	o.Failure = nil
	return nil
}

// GroupReport aggregates the outcomes of one asset-group scan. Tickers
// lists successful tickers in total-open-interest-descending order
// followed by failed tickers alphabetically; Outcomes is keyed by
// ticker.
type GroupReport struct {
	Asset          string             `json:"asset"`
	ScanID         string             `json:"scan_id"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Duration       time.Duration      `json:"duration"`
	TickersScanned int                `json:"tickers_scanned"`
	Tickers        []string           `json:"tickers"`
	Outcomes       map[string]Outcome `json:"results"`
}

// Config holds scanner configuration.
type Config struct {
	MinDays      int           // expiration window lower bound (days)
	MaxDays      int           // expiration window upper bound (days)
	ITMCount     int           // in-the-money strikes to keep
	OTMCount     int           // out-of-the-money strikes to keep
	WorkerCount  int           // concurrent ticker scans per group
	ScanInterval time.Duration // background refresh period (0 disables)
	Groups       []string      // asset groups the background loop primes
}
