package strategy

import (
	"fmt"
	"math"
	"sort"

	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/marketdata"
)

// Default selection counts: the two closest in-the-money strikes and the
// five closest out-of-the-money strikes around the current price.
const (
	DefaultITMCount = 2
	DefaultOTMCount = 5
)

// Strategy is one priced covered-call candidate with its derived
// metrics. CapGain, TotalReturnPct, PremiumYieldPct and
// DownsideBreakeven are pure functions of {strike, premium, price};
// implied volatility and open interest pass through from the vendor.
type Strategy struct {
	Strike            float64 `json:"strike"`
	Premium           float64 `json:"premium"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	OpenInterest      int64   `json:"open_interest"`
	CapGain           float64 `json:"cap_gain"`
	TotalReturnPct    float64 `json:"total_return_pct"`
	PremiumYieldPct   float64 `json:"premium_yield_pct"`
	DownsideBreakeven float64 `json:"downside_breakeven"`
}

// Derivation is the result of deriving strategies for one ticker and
// one expiration. An empty Strategies slice is a valid outcome: the
// ticker simply has no sellable calls.
type Derivation struct {
	Strategies        []Strategy `json:"strategies"`
	TotalOpenInterest int64      `json:"total_open_interest"`
}

// pricedCall is a chain row that survived premium resolution.
type pricedCall struct {
	strike            float64
	premium           float64
	impliedVolatility float64
	openInterest      int64
}

// Derive normalizes a raw call chain into an ordered list of covered-call
// candidates around currentPrice.
//
// Premium resolution prefers the last trade, then the bid; quotes with
// neither populated and positive are dropped outright. The ask (or a
// bid/ask midpoint) is never used: the writer must be able to realistically
// receive the premium. Survivors are bucketed into the itmCount closest
// strikes below the price (descending) followed by the otmCount closest
// strikes above it (ascending); a strike exactly at the price lands in
// neither bucket. That ITM-then-OTM, closest-first order is part of the
// contract and is never re-sorted by a derived metric.
//
// A non-positive or NaN currentPrice is a contract violation and returns
// an error; empty input or a fully-filtered chain returns an empty
// Derivation with a nil error.
func Derive(currentPrice float64, calls []marketdata.CallQuote, itmCount, otmCount int) (*Derivation, error) {
	if math.IsNaN(currentPrice) || currentPrice <= 0 {
		return nil, fmt.Errorf("derive: current price must be positive, got %v", currentPrice)
	}

	priced := resolvePremiums(calls)

	var itm, otm []pricedCall
	for _, c := range priced {
		switch {
		case c.strike < currentPrice:
			itm = append(itm, c)
		case c.strike > currentPrice:
			otm = append(otm, c)
		}
	}

	// Closest-to-money first on both sides. Stable so equal strikes keep
	// their input order.
	sort.SliceStable(itm, func(i, j int) bool { return itm[i].strike > itm[j].strike })
	sort.SliceStable(otm, func(i, j int) bool { return otm[i].strike < otm[j].strike })

	if len(itm) > itmCount {
		itm = itm[:itmCount]
	}
	if len(otm) > otmCount {
		otm = otm[:otmCount]
	}

	result := &Derivation{
		Strategies: make([]Strategy, 0, len(itm)+len(otm)),
	}

	for _, c := range append(itm, otm...) {
		result.Strategies = append(result.Strategies, newStrategy(c, currentPrice))
		result.TotalOpenInterest += c.openInterest
	}

	return result, nil
}

// resolvePremiums applies the premium priority rule and drops quotes
// that cannot produce a strictly positive premium.
func resolvePremiums(calls []marketdata.CallQuote) []pricedCall {
	priced := make([]pricedCall, 0, len(calls))
	for _, q := range calls {
		premium, ok := resolvePremium(q)
		if !ok {
			continue
		}
		priced = append(priced, pricedCall{
			strike:            q.Strike,
			premium:           premium,
			impliedVolatility: q.ImpliedVolatility,
			openInterest:      q.OpenInterest,
		})
	}
	return priced
}

func resolvePremium(q marketdata.CallQuote) (float64, bool) {
	if q.LastPrice != nil && *q.LastPrice > 0 {
		return *q.LastPrice, true
	}
	if q.Bid != nil && *q.Bid > 0 {
		return *q.Bid, true
	}
	return 0, false
}

func newStrategy(c pricedCall, currentPrice float64) Strategy {
	capGain := c.strike - currentPrice
	return Strategy{
		Strike:            c.strike,
		Premium:           c.premium,
		ImpliedVolatility: c.impliedVolatility,
		OpenInterest:      c.openInterest,
		CapGain:           capGain,
		TotalReturnPct:    (c.premium + capGain) / currentPrice * 100,
		PremiumYieldPct:   c.premium / currentPrice * 100,
		DownsideBreakeven: currentPrice - c.premium,
	}
}
