package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newPolygonTestServer(t *testing.T, routes map[string]string) (*httptest.Server, *PolygonClient) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "test-key" {
			t.Errorf("missing apiKey query param on %s", r.URL.Path)
		}
		for prefix, body := range routes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(body))
				return
			}
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server, NewPolygonClient("test-key", server.URL, nil)
}

func TestPolygonGetCurrentPrice(t *testing.T) {
	_, client := newPolygonTestServer(t, map[string]string{
		"/v3/snapshot/locale": `{"ticker":{"lastTrade":{"p":66.53}}}`,
	})

	price, err := client.GetCurrentPrice(context.Background(), "IBIT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 66.53 {
		t.Errorf("price = %v, want 66.53", price)
	}
}

func TestPolygonGetCurrentPriceMissing(t *testing.T) {
	_, client := newPolygonTestServer(t, map[string]string{
		"/v3/snapshot/locale": `{}`,
	})

	_, err := client.GetCurrentPrice(context.Background(), "IBIT")
	if err == nil {
		t.Fatal("expected error for snapshot without a ticker")
	}
	if !strings.Contains(err.Error(), "unavailable") {
		t.Errorf("expected an unavailable error, got: %v", err)
	}
}

func TestPolygonGet52WeekRange(t *testing.T) {
	_, client := newPolygonTestServer(t, map[string]string{
		"/v2/aggs": `{"results":[{"h":60.0,"l":41.5},{"h":72.25,"l":44.0},{"h":68.0,"l":39.8}]}`,
	})

	r, err := client.Get52WeekRange(context.Background(), "IBIT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil {
		t.Fatal("expected a range")
	}
	if r.High != 72.25 || r.Low != 39.8 {
		t.Errorf("range = %+v, want high 72.25 low 39.8", r)
	}
}

func TestPolygonGet52WeekRangeNoHistory(t *testing.T) {
	_, client := newPolygonTestServer(t, map[string]string{
		"/v2/aggs": `{"results":[]}`,
	})

	r, err := client.Get52WeekRange(context.Background(), "BTCW")
	if err != nil {
		t.Fatalf("insufficient history must not be an error, got: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil range for no history, got %+v", r)
	}
}

func TestPolygonGetExpirationsDedupesAndSorts(t *testing.T) {
	_, client := newPolygonTestServer(t, map[string]string{
		"/v3/reference/options/contracts": `{"results":[
			{"expiration_date":"2025-07-18"},
			{"expiration_date":"2025-06-20"},
			{"expiration_date":"2025-07-18"},
			{"expiration_date":"2025-08-15"}
		]}`,
	})

	expirations, err := client.GetExpirations(context.Background(), "IBIT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"2025-06-20", "2025-07-18", "2025-08-15"}
	if len(expirations) != len(want) {
		t.Fatalf("expected %d expirations, got %d", len(want), len(expirations))
	}
	for i, d := range expirations {
		if d.Format("2006-01-02") != want[i] {
			t.Errorf("expiration %d = %s, want %s", i, d.Format("2006-01-02"), want[i])
		}
	}
}

func TestPolygonGetCallChain(t *testing.T) {
	_, client := newPolygonTestServer(t, map[string]string{
		"/v3/snapshot/options/": `{"results":[
			{"details":{"strike_price":65,"contract_type":"call"},
			 "last_trade":{"price":3.1},"last_quote":{"bid":2.9},
			 "greeks":{"implied_volatility":0.62},"open_interest":1200},
			{"details":{"strike_price":65,"contract_type":"put"},
			 "last_trade":{"price":2.2},"open_interest":900},
			{"details":{"strike_price":70,"contract_type":"call"},
			 "open_interest":450,"implied_volatility":0.58}
		]}`,
	})

	quotes, err := client.GetCallChain(context.Background(), "IBIT", time.Date(2025, 7, 18, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(quotes) != 2 {
		t.Fatalf("expected 2 call quotes (puts filtered), got %d", len(quotes))
	}

	first := quotes[0]
	if first.Strike != 65 || first.LastPrice == nil || *first.LastPrice != 3.1 || first.Bid == nil || *first.Bid != 2.9 {
		t.Errorf("first quote not normalized correctly: %+v", first)
	}
	if first.ImpliedVolatility != 0.62 {
		t.Errorf("greeks IV should win: got %v", first.ImpliedVolatility)
	}
	if first.OpenInterest != 1200 {
		t.Errorf("open interest = %d, want 1200", first.OpenInterest)
	}

	second := quotes[1]
	if second.LastPrice != nil || second.Bid != nil {
		t.Errorf("absent trade/quote fields must stay nil, got %+v", second)
	}
	if second.ImpliedVolatility != 0.58 {
		t.Errorf("top-level IV fallback: got %v", second.ImpliedVolatility)
	}
}

func TestPolygonAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unknown ticker"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewPolygonClient("test-key", server.URL, nil)
	if _, err := client.GetCurrentPrice(context.Background(), "NOPE"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
