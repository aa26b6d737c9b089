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

const polygonDateFormat = "2006-01-02"

// PolygonClient is the primary market-data vendor client. It talks to
// the Polygon REST API: ticker snapshot for the current price, daily
// aggregates for the 52-week range, reference contracts for expiration
// discovery and the option-chain snapshot for quotes.
type PolygonClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
}

// NewPolygonClient creates a Polygon client. limiter may be nil to
// disable request budgeting (tests).
func NewPolygonClient(apiKey, baseURL string, limiter *RateLimiter) *PolygonClient {
	if baseURL == "" {
		baseURL = "https://api.polygon.io"
	}
	return &PolygonClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    limiter,
	}
}

// Name identifies the vendor.
func (c *PolygonClient) Name() string { return "polygon" }

type polygonSnapshotResponse struct {
	Ticker *struct {
		LastTrade struct {
			Price float64 `json:"p"`
		} `json:"lastTrade"`
	} `json:"ticker"`
}

// GetCurrentPrice fetches the last traded price from the ticker snapshot.
func (c *PolygonClient) GetCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	endpoint := fmt.Sprintf("%s/v3/snapshot/locale/us/markets/stocks/tickers/%s", c.baseURL, url.PathEscape(ticker))

	var resp polygonSnapshotResponse
	if err := c.get(ctx, endpoint, nil, &resp); err != nil {
		return 0, err
	}

	if resp.Ticker == nil || resp.Ticker.LastTrade.Price <= 0 {
		return 0, fmt.Errorf("polygon: no current price for %s: %w", ticker, ErrUnavailable)
	}
	return resp.Ticker.LastTrade.Price, nil
}

type polygonAggsResponse struct {
	Results []struct {
		High float64 `json:"h"`
		Low  float64 `json:"l"`
	} `json:"results"`
}

// Get52WeekRange derives the trailing high/low from one year of daily
// aggregates. No aggregates means insufficient history, not an error.
func (c *PolygonClient) Get52WeekRange(ctx context.Context, ticker string) (*Week52Range, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -365).Format(polygonDateFormat)
	to := now.Format(polygonDateFormat)
	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s", c.baseURL, url.PathEscape(ticker), from, to)

	var resp polygonAggsResponse
	if err := c.get(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	if len(resp.Results) == 0 {
		return nil, nil
	}

	r := &Week52Range{High: resp.Results[0].High, Low: resp.Results[0].Low}
	for _, agg := range resp.Results[1:] {
		if agg.High > r.High {
			r.High = agg.High
		}
		if agg.Low < r.Low {
			r.Low = agg.Low
		}
	}
	return r, nil
}

type polygonContractsResponse struct {
	Results []struct {
		ExpirationDate string `json:"expiration_date"`
	} `json:"results"`
}

// GetExpirations lists distinct call-contract expiration dates from the
// reference contracts endpoint.
func (c *PolygonClient) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	endpoint := fmt.Sprintf("%s/v3/reference/options/contracts", c.baseURL)
	params := url.Values{}
	params.Set("underlying_ticker", ticker)
	params.Set("contract_type", "call")
	params.Set("limit", "1000")

	var resp polygonContractsResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(resp.Results))
	expirations := make([]time.Time, 0, len(resp.Results))
	for _, contract := range resp.Results {
		if contract.ExpirationDate == "" {
			continue
		}
		if _, dup := seen[contract.ExpirationDate]; dup {
			continue
		}
		seen[contract.ExpirationDate] = struct{}{}

		d, err := time.Parse(polygonDateFormat, contract.ExpirationDate)
		if err != nil {
			return nil, fmt.Errorf("polygon: bad expiration date %q for %s: %w", contract.ExpirationDate, ticker, err)
		}
		expirations = append(expirations, d)
	}

	sort.Slice(expirations, func(i, j int) bool { return expirations[i].Before(expirations[j]) })
	return expirations, nil
}

type polygonChainResponse struct {
	Results []struct {
		Details struct {
			StrikePrice  float64 `json:"strike_price"`
			ContractType string  `json:"contract_type"`
		} `json:"details"`
		LastTrade *struct {
			Price float64 `json:"price"`
		} `json:"last_trade"`
		LastQuote *struct {
			Bid float64 `json:"bid"`
		} `json:"last_quote"`
		Greeks *struct {
			ImpliedVolatility float64 `json:"implied_volatility"`
		} `json:"greeks"`
		ImpliedVolatility float64 `json:"implied_volatility"`
		OpenInterest      int64   `json:"open_interest"`
	} `json:"results"`
}

// GetCallChain fetches the option-chain snapshot for one expiration and
// normalizes the call rows.
func (c *PolygonClient) GetCallChain(ctx context.Context, ticker string, expiration time.Time) ([]CallQuote, error) {
	endpoint := fmt.Sprintf("%s/v3/snapshot/options/%s", c.baseURL, url.PathEscape(ticker))
	params := url.Values{}
	params.Set("expiration_date", expiration.Format(polygonDateFormat))
	params.Set("limit", "250")

	var resp polygonChainResponse
	if err := c.get(ctx, endpoint, params, &resp); err != nil {
		return nil, err
	}

	quotes := make([]CallQuote, 0, len(resp.Results))
	for _, row := range resp.Results {
		if row.Details.ContractType != "call" {
			continue
		}

		q := CallQuote{
			Strike:            row.Details.StrikePrice,
			OpenInterest:      row.OpenInterest,
			ImpliedVolatility: row.ImpliedVolatility,
		}
		if row.Greeks != nil && row.Greeks.ImpliedVolatility > 0 {
			q.ImpliedVolatility = row.Greeks.ImpliedVolatility
		}
		if row.LastTrade != nil {
			price := row.LastTrade.Price
			q.LastPrice = &price
		}
		if row.LastQuote != nil {
			bid := row.LastQuote.Bid
			q.Bid = &bid
		}
		quotes = append(quotes, q)
	}

	return quotes, nil
}

// get performs a rate-limited GET with the API key appended and decodes
// the JSON body into out.
func (c *PolygonClient) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return fmt.Errorf("polygon: rate limiter: %w", err)
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("polygon: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polygon: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polygon: reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("polygon: %s: %w", endpoint, ErrUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polygon: API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("polygon: parsing response: %w", err)
	}
	return nil
}
