package marketdata

import (
	"context"
	"math"
	"time"
)

// MockProvider serves deterministic synthetic market data for
// development without vendor credentials. Prices are fixed per ticker
// and chains are generated around the current price, so repeated scans
// return identical reports.
type MockProvider struct {
	prices map[string]float64
	now    func() time.Time
}

// NewMockProvider creates a mock provider seeded with realistic ETF
// price levels.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		prices: map[string]float64{
			"IBIT": 66.50, "FBTC": 58.20, "GBTC": 52.75, "ARKB": 33.40,
			"BITB": 36.10, "HODL": 37.60, "EZBC": 38.90, "BTCW": 35.20,
			"YBTC": 44.80, "BTCI": 53.10,
			"ETHA": 28.40, "FETH": 29.85, "ETHV": 56.30, "ETHE": 24.95,
			"YETH": 12.60, "EHY": 41.20,
			"BSOL": 21.30, "GSOL": 17.85, "SOL": 19.40, "SOLM": 16.25, "SOLC": 18.70,
			"GXRP": 14.50, "XRPZ": 22.10, "TOXR": 26.35, "XRP": 21.90, "XRPM": 24.60,
			"HBR": 8.45, "LTCC": 11.20,
		},
		now: time.Now,
	}
}

// Name identifies the provider.
func (m *MockProvider) Name() string { return "mock" }

// GetCurrentPrice implements Provider.
func (m *MockProvider) GetCurrentPrice(_ context.Context, ticker string) (float64, error) {
	price, ok := m.prices[ticker]
	if !ok {
		return 0, ErrUnavailable
	}
	return price, nil
}

// Get52WeekRange implements Provider. The synthetic range brackets the
// current price by +35%/-40%.
func (m *MockProvider) Get52WeekRange(_ context.Context, ticker string) (*Week52Range, error) {
	price, ok := m.prices[ticker]
	if !ok {
		return nil, ErrUnavailable
	}
	return &Week52Range{High: price * 1.35, Low: price * 0.60}, nil
}

// GetExpirations implements Provider. Emits four weekly expirations
// starting two weeks out, so one always lands in the default 20-40 day
// window.
func (m *MockProvider) GetExpirations(_ context.Context, ticker string) ([]time.Time, error) {
	if _, ok := m.prices[ticker]; !ok {
		return nil, ErrUnavailable
	}
	base := m.now().Truncate(24 * time.Hour)
	return []time.Time{
		base.AddDate(0, 0, 14),
		base.AddDate(0, 0, 25),
		base.AddDate(0, 0, 32),
		base.AddDate(0, 0, 46),
	}, nil
}

// GetCallChain implements Provider. Strikes step 2.5% around the spot;
// premiums decay with distance from the money so derived metrics look
// plausible in the UI.
func (m *MockProvider) GetCallChain(_ context.Context, ticker string, _ time.Time) ([]CallQuote, error) {
	price, ok := m.prices[ticker]
	if !ok {
		return nil, ErrUnavailable
	}

	quotes := make([]CallQuote, 0, 12)
	for i := -4; i <= 7; i++ {
		strike := round2(price * (1 + 0.025*float64(i)))
		intrinsic := math.Max(price-strike, 0)
		timeValue := price * 0.03 * math.Exp(-0.35*math.Abs(float64(i)))
		last := round2(intrinsic + timeValue)
		bid := round2(last * 0.96)

		quotes = append(quotes, CallQuote{
			Strike:            strike,
			LastPrice:         &last,
			Bid:               &bid,
			OpenInterest:      int64(900 - 60*abs(i)),
			ImpliedVolatility: 0.55 + 0.02*math.Abs(float64(i)),
		})
	}
	return quotes, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}
