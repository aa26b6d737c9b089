// Package universe maps underlying crypto assets to the exchange-traded
// funds that hold them. The scanner works in terms of asset groups; the
// universe resolves a group to the concrete tickers to scan.
package universe

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultGroups is the built-in crypto ETF universe. Groups with no
// listed ETFs yet are kept so the API can report them as known assets.
var DefaultGroups = map[string][]string{
	"BTC":  {"IBIT", "FBTC", "GBTC", "ARKB", "BITB", "HODL", "EZBC", "BTCW", "YBTC", "BTCI"},
	"ETH":  {"ETHA", "FETH", "ETHV", "ETHE", "YETH", "EHY"},
	"SOL":  {"BSOL", "GSOL", "SOL", "SOLM", "SOLC"},
	"XRP":  {"GXRP", "XRPZ", "TOXR", "XRP", "XRPM"},
	"ADA":  {},
	"HBAR": {"HBR"},
	"LTC":  {"LTCC"},
	"DOGE": {},
}

// Universe is an immutable asset-group to ticker-list mapping.
type Universe struct {
	groups map[string][]string
}

// New builds a universe from the given groups, or from DefaultGroups
// when groups is nil. Asset names are normalized to upper case.
func New(groups map[string][]string) *Universe {
	if groups == nil {
		groups = DefaultGroups
	}
	normalized := make(map[string][]string, len(groups))
	for asset, tickers := range groups {
		list := make([]string, len(tickers))
		for i, t := range tickers {
			list[i] = strings.ToUpper(t)
		}
		normalized[strings.ToUpper(asset)] = list
	}
	return &Universe{groups: normalized}
}

// Tickers resolves an asset group to its ETF tickers. Unknown assets
// and known assets with no listed ETFs are distinct errors for the API
// layer to surface.
func (u *Universe) Tickers(asset string) ([]string, error) {
	tickers, ok := u.groups[strings.ToUpper(asset)]
	if !ok {
		return nil, fmt.Errorf("unknown asset %q", asset)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no ETFs listed for %q", asset)
	}
	return tickers, nil
}

// Has reports whether the asset group exists, regardless of whether it
// has any ETFs listed.
func (u *Universe) Has(asset string) bool {
	_, ok := u.groups[strings.ToUpper(asset)]
	return ok
}

// Assets returns the known asset groups in sorted order.
func (u *Universe) Assets() []string {
	assets := make([]string, 0, len(u.groups))
	for asset := range u.groups {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// Groups returns a copy of the full mapping for API responses.
func (u *Universe) Groups() map[string][]string {
	out := make(map[string][]string, len(u.groups))
	for asset, tickers := range u.groups {
		out[asset] = append([]string(nil), tickers...)
	}
	return out
}
