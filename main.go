package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ckeys74/Crypto-Covered-Call-Scanner/config"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/api"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/cache"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/circuit"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/logging"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/marketdata"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/scanner"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/universe"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/vault"
)

func main() {
	// Optional .env for local development
	godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "generate-config" {
		if err := config.GenerateSampleConfig("config.json"); err != nil {
			log.Fatalf("Failed to generate sample config: %v", err)
		}
		log.Println("Wrote config.json")
		return
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(cfg.LoggingConfig)
	logger.Info().Msg("structured logging initialized")

	// Resolve vendor credentials, from Vault when enabled
	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create vault client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	creds, err := vaultClient.Credentials(ctx, vault.Credentials{
		PolygonAPIKey: cfg.PolygonConfig.APIKey,
		TradierToken:  cfg.TradierConfig.Token,
	})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to resolve vendor credentials")
	}

	// Build the market data provider chain
	provider := buildProvider(cfg, creds, logger)
	logger.Info().Str("provider", provider.Name()).Msg("market data provider ready")

	// Asset universe, built-in groups unless overridden in config
	uni := universe.New(cfg.UniverseConfig.Groups)
	logger.Info().Strs("assets", uni.Assets()).Msg("universe loaded")

	// Report cache: Redis when enabled, in-memory otherwise
	var reportCache scanner.ReportCache
	var cacheHealth api.HealthChecker
	if cfg.RedisConfig.Enabled {
		rc := cache.NewRedisCache(cache.Config{
			Address:  cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
			PoolSize: cfg.RedisConfig.PoolSize,
		}, cfg.ScannerConfig.CacheTTLDuration(), logger)
		defer rc.Close()
		reportCache = rc
		cacheHealth = rc
		logger.Info().Str("address", cfg.RedisConfig.Address).Msg("redis report cache enabled")
	} else {
		reportCache = scanner.NewMemoryCache(cfg.ScannerConfig.CacheTTLDuration(), 16)
	}

	// Scanner
	scannerCfg := scanner.Config{
		MinDays:      cfg.ScannerConfig.MinDays,
		MaxDays:      cfg.ScannerConfig.MaxDays,
		ITMCount:     cfg.ScannerConfig.ITMCount,
		OTMCount:     cfg.ScannerConfig.OTMCount,
		WorkerCount:  cfg.ScannerConfig.WorkerCount,
		ScanInterval: cfg.ScannerConfig.RefreshIntervalDuration(),
		Groups:       scannableAssets(uni),
	}
	scn := scanner.NewScanner(provider, uni, reportCache, scannerCfg, logger)
	scn.Start()

	// HTTP server
	server := api.NewServer(api.ServerConfig{
		Port:            cfg.ServerConfig.Port,
		Host:            cfg.ServerConfig.Host,
		AllowedOrigins:  splitOrigins(cfg.ServerConfig.AllowedOrigins),
		ProductionMode:  cfg.ServerConfig.ProductionMode,
		ReadTimeout:     time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		RateLimit:       cfg.ServerConfig.RateLimit,
		RateWindow:      time.Duration(cfg.ServerConfig.RateWindowSecs) * time.Second,
		ProviderName:    provider.Name(),
		ShutdownTimeout: time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second,
	}, scn, uni, cacheHealth, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutdown signal received")
	scn.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("shutdown complete")
}

// buildProvider assembles the vendor chain: Polygon primary behind a
// circuit breaker with Tradier as failover, or the deterministic mock
// when mock mode is on.
func buildProvider(cfg *config.Config, creds vault.Credentials, logger zerolog.Logger) marketdata.Provider {
	if cfg.PolygonConfig.MockMode {
		logger.Warn().Msg("mock mode enabled, serving simulated market data")
		return marketdata.NewMockProvider()
	}

	limiter := marketdata.NewRateLimiter(cfg.PolygonConfig.RateLimit, cfg.PolygonConfig.RateWindow())
	primary := marketdata.NewPolygonClient(creds.PolygonAPIKey, cfg.PolygonConfig.BaseURL, limiter)

	var secondary marketdata.Provider
	if creds.TradierToken != "" {
		secondary = marketdata.NewTradierClient(creds.TradierToken, cfg.TradierConfig.BaseURL, nil)
	} else {
		logger.Warn().Msg("no tradier token configured, running without failover")
	}

	breakerCfg := &circuit.BreakerConfig{
		MaxConsecutiveFailures: cfg.ScannerConfig.BreakerFailures,
		Cooldown:               cfg.ScannerConfig.BreakerCooldownDuration(),
	}
	return marketdata.NewFailoverProvider(primary, secondary, breakerCfg, logger)
}

// scannableAssets filters the universe down to the asset groups that
// have ETFs listed, so the background refresh skips empty groups.
func scannableAssets(uni *universe.Universe) []string {
	var assets []string
	for _, asset := range uni.Assets() {
		if tickers, err := uni.Tickers(asset); err == nil && len(tickers) > 0 {
			assets = append(assets, asset)
		}
	}
	return assets
}

func splitOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}
