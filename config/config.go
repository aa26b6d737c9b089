package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/logging"
	"github.com/ckeys74/Crypto-Covered-Call-Scanner/internal/vault"
)

type Config struct {
	ServerConfig   ServerConfig   `json:"server"`
	PolygonConfig  PolygonConfig  `json:"polygon"`
	TradierConfig  TradierConfig  `json:"tradier"`
	ScannerConfig  ScannerConfig  `json:"scanner"`
	RedisConfig    RedisConfig    `json:"redis"`
	VaultConfig    vault.Config   `json:"vault"`
	LoggingConfig  logging.Config `json:"logging"`
	UniverseConfig UniverseConfig `json:"universe"`
}

type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`     // seconds
	WriteTimeout    int    `json:"write_timeout"`    // seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // seconds
	RateLimit       int    `json:"rate_limit"`       // requests per window, 0 disables
	RateWindowSecs  int    `json:"rate_window_secs"`
	ProductionMode  bool   `json:"production_mode"`
}

// PolygonConfig holds settings for the primary market data vendor.
type PolygonConfig struct {
	APIKey         string `json:"api_key"`
	BaseURL        string `json:"base_url"`
	RateLimit      int    `json:"rate_limit"` // requests per window
	RateWindowSecs int    `json:"rate_window_secs"`
	MockMode       bool   `json:"mock_mode"` // use simulated data when vendors are unavailable
}

// TradierConfig holds settings for the secondary market data vendor.
// An empty token disables the failover leg.
type TradierConfig struct {
	Token   string `json:"token"`
	BaseURL string `json:"base_url"`
}

type ScannerConfig struct {
	MinDays         int `json:"min_days"`  // expiration window lower bound
	MaxDays         int `json:"max_days"`  // expiration window upper bound
	ITMCount        int `json:"itm_count"` // in-the-money strikes per ticker
	OTMCount        int `json:"otm_count"` // out-of-the-money strikes per ticker
	WorkerCount     int `json:"worker_count"`
	CacheTTL        int `json:"cache_ttl"`        // seconds
	RefreshInterval int `json:"refresh_interval"` // seconds between background scans, 0 disables
	BreakerFailures int `json:"breaker_failures"` // consecutive failures before the vendor circuit opens
	BreakerCooldown int `json:"breaker_cooldown"` // seconds before a tripped circuit admits a probe
}

// UniverseConfig optionally overrides the built-in asset to ETF groups.
type UniverseConfig struct {
	Groups map[string][]string `json:"groups"`
}

// RedisConfig holds Redis configuration for report caching.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", firstInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", firstString(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", firstString(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", firstInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", firstInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", firstInt(cfg.ServerConfig.ShutdownTimeout, 10))
	cfg.ServerConfig.RateLimit = getEnvIntOrDefault("SERVER_RATE_LIMIT", cfg.ServerConfig.RateLimit)
	cfg.ServerConfig.RateWindowSecs = getEnvIntOrDefault("SERVER_RATE_WINDOW_SECS", firstInt(cfg.ServerConfig.RateWindowSecs, 60))
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("SERVER_PRODUCTION_MODE", boolString(cfg.ServerConfig.ProductionMode)) == "true"

	// Polygon config
	cfg.PolygonConfig.APIKey = getEnvOrDefault("POLYGON_API_KEY", cfg.PolygonConfig.APIKey)
	cfg.PolygonConfig.BaseURL = getEnvOrDefault("POLYGON_BASE_URL", firstString(cfg.PolygonConfig.BaseURL, "https://api.polygon.io"))
	cfg.PolygonConfig.RateLimit = getEnvIntOrDefault("POLYGON_RATE_LIMIT", firstInt(cfg.PolygonConfig.RateLimit, 5))
	cfg.PolygonConfig.RateWindowSecs = getEnvIntOrDefault("POLYGON_RATE_WINDOW_SECS", firstInt(cfg.PolygonConfig.RateWindowSecs, 60))
	cfg.PolygonConfig.MockMode = getEnvOrDefault("MOCK_MODE", boolString(cfg.PolygonConfig.MockMode)) == "true"

	// Tradier config
	cfg.TradierConfig.Token = getEnvOrDefault("TRADIER_TOKEN", cfg.TradierConfig.Token)
	cfg.TradierConfig.BaseURL = getEnvOrDefault("TRADIER_BASE_URL", firstString(cfg.TradierConfig.BaseURL, "https://api.tradier.com"))

	// Scanner config
	cfg.ScannerConfig.MinDays = getEnvIntOrDefault("SCANNER_MIN_DAYS", firstInt(cfg.ScannerConfig.MinDays, 20))
	cfg.ScannerConfig.MaxDays = getEnvIntOrDefault("SCANNER_MAX_DAYS", firstInt(cfg.ScannerConfig.MaxDays, 40))
	cfg.ScannerConfig.ITMCount = getEnvIntOrDefault("SCANNER_ITM_COUNT", firstInt(cfg.ScannerConfig.ITMCount, 2))
	cfg.ScannerConfig.OTMCount = getEnvIntOrDefault("SCANNER_OTM_COUNT", firstInt(cfg.ScannerConfig.OTMCount, 5))
	cfg.ScannerConfig.WorkerCount = getEnvIntOrDefault("SCANNER_WORKER_COUNT", firstInt(cfg.ScannerConfig.WorkerCount, 4))
	cfg.ScannerConfig.CacheTTL = getEnvIntOrDefault("SCANNER_CACHE_TTL", firstInt(cfg.ScannerConfig.CacheTTL, 300))
	cfg.ScannerConfig.RefreshInterval = getEnvIntOrDefault("SCANNER_REFRESH_INTERVAL", cfg.ScannerConfig.RefreshInterval)
	cfg.ScannerConfig.BreakerFailures = getEnvIntOrDefault("CIRCUIT_MAX_CONSECUTIVE_FAILURES", firstInt(cfg.ScannerConfig.BreakerFailures, 3))
	cfg.ScannerConfig.BreakerCooldown = getEnvIntOrDefault("CIRCUIT_COOLDOWN_SECS", firstInt(cfg.ScannerConfig.BreakerCooldown, 120))

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", firstString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", firstInt(cfg.RedisConfig.PoolSize, 10))

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", boolString(cfg.VaultConfig.Enabled)) == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", firstString(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", firstString(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", firstString(cfg.VaultConfig.SecretPath, "covered-call-scanner/vendor-keys"))
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", boolString(cfg.VaultConfig.TLSEnabled)) == "true"
	cfg.VaultConfig.CACert = getEnvOrDefault("VAULT_CACERT", cfg.VaultConfig.CACert)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", firstString(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_PRETTY", boolString(cfg.LoggingConfig.Pretty)) == "true"
}

// CacheTTLDuration returns the scanner cache TTL as a duration.
func (c *ScannerConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// RefreshIntervalDuration returns the background refresh cadence, zero
// when background refresh is disabled.
func (c *ScannerConfig) RefreshIntervalDuration() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

func (c *ScannerConfig) BreakerCooldownDuration() time.Duration {
	return time.Duration(c.BreakerCooldown) * time.Second
}

func (c *PolygonConfig) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSecs) * time.Second
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func firstString(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func firstInt(v, fallback int) int {
	if v != 0 {
		return v
	}
	return fallback
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig creates a sample configuration file.
func GenerateSampleConfig(filename string) error {
	config := Config{
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
			RateLimit:       120,
			RateWindowSecs:  60,
			ProductionMode:  false,
		},
		PolygonConfig: PolygonConfig{
			APIKey:         "your_polygon_api_key_here",
			BaseURL:        "https://api.polygon.io",
			RateLimit:      5,
			RateWindowSecs: 60,
			MockMode:       false,
		},
		TradierConfig: TradierConfig{
			Token:   "",
			BaseURL: "https://api.tradier.com",
		},
		ScannerConfig: ScannerConfig{
			MinDays:         20,
			MaxDays:         40,
			ITMCount:        2,
			OTMCount:        5,
			WorkerCount:     4,
			CacheTTL:        300,
			RefreshInterval: 0,
			BreakerFailures: 3,
			BreakerCooldown: 120,
		},
		RedisConfig: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		LoggingConfig: logging.Config{
			Level:  "info",
			Pretty: false,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
