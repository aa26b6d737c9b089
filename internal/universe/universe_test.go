package universe

import (
	"sort"
	"testing"
)

func TestTickersKnownAsset(t *testing.T) {
	u := New(nil)

	tickers, err := u.Tickers("BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tickers) == 0 {
		t.Fatal("expected BTC tickers")
	}
	found := false
	for _, ticker := range tickers {
		if ticker == "IBIT" {
			found = true
		}
	}
	if !found {
		t.Errorf("IBIT missing from BTC group: %v", tickers)
	}
}

func TestTickersCaseInsensitive(t *testing.T) {
	u := New(nil)

	lower, err := u.Tickers("btc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	upper, _ := u.Tickers("BTC")
	if len(lower) != len(upper) {
		t.Errorf("lookup must be case-insensitive: %d != %d", len(lower), len(upper))
	}
}

func TestTickersUnknownAsset(t *testing.T) {
	u := New(nil)

	if _, err := u.Tickers("SHIB"); err == nil {
		t.Error("expected an error for an unknown asset")
	}
	if u.Has("SHIB") {
		t.Error("unknown asset must not be reported as known")
	}
}

func TestTickersEmptyGroup(t *testing.T) {
	u := New(nil)

	// ADA is a known asset with no ETFs listed yet: Has succeeds but
	// Tickers errors, and the two errors stay distinguishable.
	if !u.Has("ADA") {
		t.Fatal("ADA must be a known asset")
	}
	if _, err := u.Tickers("ADA"); err == nil {
		t.Error("expected an error for an empty group")
	}
}

func TestCustomGroupsNormalized(t *testing.T) {
	u := New(map[string][]string{"btc": {"ibit", "fbtc"}})

	tickers, err := u.Tickers("BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"FBTC", "IBIT"}
	got := append([]string(nil), tickers...)
	sort.Strings(got)
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("tickers = %v, want %v", got, want)
	}

	if u.Has("ETH") {
		t.Error("custom universe must not inherit default groups")
	}
}

func TestAssetsSorted(t *testing.T) {
	u := New(nil)

	assets := u.Assets()
	if !sort.StringsAreSorted(assets) {
		t.Errorf("assets not sorted: %v", assets)
	}
}

func TestGroupsReturnsCopy(t *testing.T) {
	u := New(nil)

	groups := u.Groups()
	groups["BTC"][0] = "MUTATED"

	fresh, _ := u.Tickers("BTC")
	if fresh[0] == "MUTATED" {
		t.Error("Groups must return a copy, not the backing slices")
	}
}
