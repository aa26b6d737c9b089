// Package scanner orchestrates covered-call scans across the ETF
// universe: it fans per-ticker work out over a bounded worker pool,
// converts the strategy core's pure results into per-ticker outcomes
// and assembles them into group reports.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/marketdata"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/strategy"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/universe"
)

const expirationFormat = "2006-01-02"

// Scanner runs covered-call scans for asset groups.
type Scanner struct {
	provider marketdata.Provider
	universe *universe.Universe
	cache    ReportCache
	config   Config
	logger   zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// now is swappable for tests
	now func() time.Time
}

// NewScanner creates a scanner. cache may be nil to disable caching.
func NewScanner(provider marketdata.Provider, u *universe.Universe, cache ReportCache, config Config, logger zerolog.Logger) *Scanner {
	if config.MinDays == 0 && config.MaxDays == 0 {
		config.MinDays = strategy.DefaultMinDays
		config.MaxDays = strategy.DefaultMaxDays
	}
	if config.ITMCount == 0 {
		config.ITMCount = strategy.DefaultITMCount
	}
	if config.OTMCount == 0 {
		config.OTMCount = strategy.DefaultOTMCount
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = 4
	}
	return &Scanner{
		provider: provider,
		universe: u,
		cache:    cache,
		config:   config,
		logger:   logger.With().Str("component", "scanner").Logger(),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Report returns the cached report for an asset when fresh, running a
// full scan otherwise.
func (sc *Scanner) Report(ctx context.Context, asset string) (*GroupReport, error) {
	if sc.cache != nil {
		if report, ok := sc.cache.Get(ctx, asset); ok {
			sc.logger.Debug().Str("asset", asset).Str("scan_id", report.ScanID).Msg("serving cached report")
			return report, nil
		}
	}
	return sc.ScanGroup(ctx, asset)
}

// ScanGroup scans every ticker of an asset group and assembles the
// report. Per-ticker failures are collected, never fatal: the report is
// best effort across the group.
func (sc *Scanner) ScanGroup(ctx context.Context, asset string) (*GroupReport, error) {
	tickers, err := sc.universe.Tickers(asset)
	if err != nil {
		return nil, err
	}

	start := sc.now()
	scanID := uuid.New().String()
	sc.logger.Info().Str("asset", asset).Str("scan_id", scanID).Int("tickers", len(tickers)).Msg("starting group scan")

	outcomes := make(map[string]Outcome, len(tickers))
	var mu sync.Mutex

	tickerChan := make(chan string, len(tickers))
	for _, t := range tickers {
		tickerChan <- t
	}
	close(tickerChan)

	var wg sync.WaitGroup
	for i := 0; i < sc.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerChan {
				select {
				case <-ctx.Done():
					return
				default:
				}
				outcome := sc.scanTicker(ctx, ticker)
				mu.Lock()
				outcomes[ticker] = outcome
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &GroupReport{
		Asset:          asset,
		ScanID:         scanID,
		GeneratedAt:    start,
		Duration:       sc.now().Sub(start),
		TickersScanned: len(tickers),
		Tickers:        orderTickers(outcomes),
		Outcomes:       outcomes,
	}

	if sc.cache != nil {
		sc.cache.Set(ctx, asset, report)
	}

	sc.logger.Info().Str("asset", asset).Str("scan_id", scanID).
		Dur("duration", report.Duration).
		Int("ok", countOK(outcomes)).
		Int("failed", len(outcomes)-countOK(outcomes)).
		Msg("group scan completed")

	return report, nil
}

// scanTicker runs the full per-ticker pipeline: price, 52-week range,
// expiration selection, chain fetch, strategy derivation.
func (sc *Scanner) scanTicker(ctx context.Context, ticker string) Outcome {
	price, err := sc.provider.GetCurrentPrice(ctx, ticker)
	if err != nil {
		if errors.Is(err, marketdata.ErrUnavailable) {
			return fail(ticker, ReasonPriceUnavailable, fmt.Sprintf("no current price for %s", ticker))
		}
		return providerFailure(ticker, err)
	}
	if price <= 0 {
		return fail(ticker, ReasonInvalidPrice, fmt.Sprintf("non-positive price %v for %s", price, ticker))
	}

	// An absent 52-week range is a valid state (insufficient history).
	var week52High, week52Low *float64
	week52, err := sc.provider.Get52WeekRange(ctx, ticker)
	if err != nil && !errors.Is(err, marketdata.ErrUnavailable) {
		return providerFailure(ticker, err)
	}
	if week52 != nil {
		week52High, week52Low = &week52.High, &week52.Low
	}

	expirations, err := sc.provider.GetExpirations(ctx, ticker)
	if err != nil && !errors.Is(err, marketdata.ErrUnavailable) {
		return providerFailure(ticker, err)
	}
	if len(expirations) == 0 {
		return fail(ticker, ReasonNoExpirations, fmt.Sprintf("no options for %s", ticker))
	}

	expiration, found := strategy.SelectExpiration(expirations, sc.now(), sc.config.MinDays, sc.config.MaxDays)
	if !found {
		return fail(ticker, ReasonNoSuitableExpiration,
			fmt.Sprintf("no expiration %d-%d days out for %s", sc.config.MinDays, sc.config.MaxDays, ticker))
	}

	calls, err := sc.provider.GetCallChain(ctx, ticker, expiration)
	if err != nil && !errors.Is(err, marketdata.ErrUnavailable) {
		return providerFailure(ticker, err)
	}

	derivation, err := strategy.Derive(price, calls, sc.config.ITMCount, sc.config.OTMCount)
	if err != nil {
		return fail(ticker, ReasonInvalidPrice, err.Error())
	}

	report := &TickerReport{
		Ticker:            ticker,
		CurrentPrice:      price,
		Week52High:        week52High,
		Week52Low:         week52Low,
		Expiration:        expiration.Format(expirationFormat),
		Strategies:        derivation.Strategies,
		TotalOpenInterest: derivation.TotalOpenInterest,
	}
	if len(derivation.Strategies) == 0 {
		report.Message = "no calls with positive bid or last price"
	}
	return Outcome{Report: report}
}

// Start launches the background refresh loop priming the configured
// asset groups. No-op when ScanInterval is zero or no groups are set.
func (sc *Scanner) Start() {
	if sc.config.ScanInterval <= 0 || len(sc.config.Groups) == 0 {
		sc.logger.Info().Msg("background refresh disabled")
		return
	}
	sc.wg.Add(1)
	go sc.runRefreshLoop()
	sc.logger.Info().Dur("interval", sc.config.ScanInterval).Strs("groups", sc.config.Groups).Msg("background refresh started")
}

func (sc *Scanner) runRefreshLoop() {
	defer sc.wg.Done()

	ticker := time.NewTicker(sc.config.ScanInterval)
	defer ticker.Stop()

	sc.refreshGroups()

	for {
		select {
		case <-ticker.C:
			sc.refreshGroups()
		case <-sc.stopChan:
			sc.logger.Info().Msg("background refresh stopped")
			return
		}
	}
}

func (sc *Scanner) refreshGroups() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, asset := range sc.config.Groups {
		if _, err := sc.ScanGroup(ctx, asset); err != nil {
			sc.logger.Error().Err(err).Str("asset", asset).Msg("background refresh failed")
		}
	}
}

// Stop shuts down the background refresh loop and waits for it.
// Safe to call more than once.
func (sc *Scanner) Stop() {
	sc.stopOnce.Do(func() {
		close(sc.stopChan)
	})
	sc.wg.Wait()
}

// orderTickers sorts successful tickers by total open interest
// descending (ticker ascending on ties), then failed tickers
// alphabetically. The strategy order inside each report is untouched.
func orderTickers(outcomes map[string]Outcome) []string {
	var ok, failed []string
	for ticker, outcome := range outcomes {
		if outcome.OK() {
			ok = append(ok, ticker)
		} else {
			failed = append(failed, ticker)
		}
	}

	sort.Slice(ok, func(i, j int) bool {
		oi, oj := outcomes[ok[i]].Report.TotalOpenInterest, outcomes[ok[j]].Report.TotalOpenInterest
		if oi != oj {
			return oi > oj
		}
		return ok[i] < ok[j]
	})
	sort.Strings(failed)

	return append(ok, failed...)
}

func countOK(outcomes map[string]Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}

func fail(ticker string, reason FailureReason, detail string) Outcome {
	return Outcome{Failure: &Failure{Ticker: ticker, Reason: reason, Detail: detail}}
}

func providerFailure(ticker string, err error) Outcome {
	return Outcome{Failure: &Failure{Ticker: ticker, Reason: ReasonProviderFailure, Detail: err.Error()}}
}
