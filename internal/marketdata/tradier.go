package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"
)

const tradierDateFormat = "2006-01-02"

// TradierClient is the secondary market-data vendor client. It produces
// the same normalized shape as the Polygon client so the two are
// interchangeable behind the Provider interface.
type TradierClient struct {
	bearerToken string
	baseURL     string
	httpClient  *http.Client
	limiter     *RateLimiter
}

// NewTradierClient creates a Tradier client. limiter may be nil.
func NewTradierClient(bearerToken, baseURL string, limiter *RateLimiter) *TradierClient {
	if baseURL == "" {
		baseURL = "https://api.tradier.com"
	}
	return &TradierClient{
		bearerToken: bearerToken,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     limiter,
	}
}

// Name identifies the vendor.
func (c *TradierClient) Name() string { return "tradier" }

type tradierQuotesResponse struct {
	Quotes struct {
		Quote json.RawMessage `json:"quote"`
	} `json:"quotes"`
}

type tradierQuote struct {
	Symbol string   `json:"symbol"`
	Last   *float64 `json:"last"`
}

// GetCurrentPrice fetches the last traded price from the quotes endpoint.
func (c *TradierClient) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	params := url.Values{}
	params.Set("symbols", ticker)

	var resp tradierQuotesResponse
	if err := c.get(ctx, "/v1/markets/quotes", params, &resp); err != nil {
		return 0, err
	}

	// Tradier returns an object for a single symbol and an array for
	// several; handle both.
	var q tradierQuote
	if len(resp.Quotes.Quote) == 0 {
		return 0, fmt.Errorf("tradier: no quote for %s: %w", ticker, ErrUnavailable)
	}
	if resp.Quotes.Quote[0] == '[' {
		var qs []tradierQuote
		if err := json.Unmarshal(resp.Quotes.Quote, &qs); err != nil {
			return 0, fmt.Errorf("tradier: parsing quotes: %w", err)
		}
		if len(qs) == 0 {
			return 0, fmt.Errorf("tradier: no quote for %s: %w", ticker, ErrUnavailable)
		}
		q = qs[0]
	} else if err := json.Unmarshal(resp.Quotes.Quote, &q); err != nil {
		return 0, fmt.Errorf("tradier: parsing quote: %w", err)
	}

	if q.Last == nil || *q.Last <= 0 {
		return 0, fmt.Errorf("tradier: no current price for %s: %w", ticker, ErrUnavailable)
	}
	return *q.Last, nil
}

type tradierHistoryResponse struct {
	History *struct {
		Day []struct {
			High float64 `json:"high"`
			Low  float64 `json:"low"`
		} `json:"day"`
	} `json:"history"`
}

// Get52WeekRange derives the trailing high/low from one year of daily
// history bars.
func (c *TradierClient) Get52WeekRange(ctx context.Context, ticker string) (*Week52Range, error) {
	now := time.Now()
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("interval", "daily")
	params.Set("start", now.AddDate(0, 0, -365).Format(tradierDateFormat))
	params.Set("end", now.Format(tradierDateFormat))

	var resp tradierHistoryResponse
	if err := c.get(ctx, "/v1/markets/history", params, &resp); err != nil {
		return nil, err
	}

	if resp.History == nil || len(resp.History.Day) == 0 {
		return nil, nil
	}

	r := &Week52Range{High: resp.History.Day[0].High, Low: resp.History.Day[0].Low}
	for _, day := range resp.History.Day[1:] {
		if day.High > r.High {
			r.High = day.High
		}
		if day.Low < r.Low {
			r.Low = day.Low
		}
	}
	return r, nil
}

type tradierExpirationsResponse struct {
	Expirations *struct {
		Date []string `json:"date"`
	} `json:"expirations"`
}

// GetExpirations lists available expiration dates.
func (c *TradierClient) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("includeAllRoots", "true")

	var resp tradierExpirationsResponse
	if err := c.get(ctx, "/v1/markets/options/expirations", params, &resp); err != nil {
		return nil, err
	}

	if resp.Expirations == nil {
		return nil, nil
	}

	expirations := make([]time.Time, 0, len(resp.Expirations.Date))
	for _, s := range resp.Expirations.Date {
		d, err := time.Parse(tradierDateFormat, s)
		if err != nil {
			return nil, fmt.Errorf("tradier: bad expiration date %q for %s: %w", s, ticker, err)
		}
		expirations = append(expirations, d)
	}

	sort.Slice(expirations, func(i, j int) bool { return expirations[i].Before(expirations[j]) })
	return expirations, nil
}

type tradierChainResponse struct {
	Options *struct {
		Option []struct {
			Strike       float64  `json:"strike"`
			Last         *float64 `json:"last"`
			Bid          *float64 `json:"bid"`
			OpenInterest int64    `json:"open_interest"`
			OptionType   string   `json:"option_type"`
			Greeks       *struct {
				MidIV float64 `json:"mid_iv"`
			} `json:"greeks"`
		} `json:"option"`
	} `json:"options"`
}

// GetCallChain fetches the chain for one expiration and keeps the calls.
func (c *TradierClient) GetCallChain(ctx context.Context, ticker string, expiration time.Time) ([]CallQuote, error) {
	params := url.Values{}
	params.Set("symbol", ticker)
	params.Set("expiration", expiration.Format(tradierDateFormat))
	params.Set("greeks", "true")

	var resp tradierChainResponse
	if err := c.get(ctx, "/v1/markets/options/chains", params, &resp); err != nil {
		return nil, err
	}

	if resp.Options == nil {
		return nil, nil
	}

	quotes := make([]CallQuote, 0, len(resp.Options.Option))
	for _, row := range resp.Options.Option {
		if row.OptionType != "call" {
			continue
		}
		q := CallQuote{
			Strike:       row.Strike,
			LastPrice:    row.Last,
			Bid:          row.Bid,
			OpenInterest: row.OpenInterest,
		}
		if row.Greeks != nil {
			q.ImpliedVolatility = row.Greeks.MidIV
		}
		quotes = append(quotes, q)
	}

	return quotes, nil
}

func (c *TradierClient) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return fmt.Errorf("tradier: rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("tradier: building request: %w", err)
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tradier: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("tradier: reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("tradier: %s: %w", path, ErrUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tradier: API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tradier: parsing response: %w", err)
	}
	return nil
}
