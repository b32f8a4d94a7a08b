package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Market scan
	Venues       []string
	Symbols      []string
	ScanInterval time.Duration
	QuoteAsset   string
	QuoteTTL     time.Duration

	// Opportunity detection
	MinProfitPercentage float64
	DefaultTakerFee     float64
	VenueFees           map[string]float64 // per-venue taker override; missing venues use DefaultTakerFee

	// Risk limits
	MaxPositionSize     float64
	MaxDailyLoss        float64
	MaxConcurrentTrades int

	// Validator quorum
	RequiredApprovals   int
	RequireLeadApproval bool
	ApprovalDeadline    time.Duration

	// Pool
	PoolName        string
	MinContribution float64
	MaxMembers      int

	// Insurance reserve
	ReservePercentage float64
	MinReserveHealth  float64 // 0 disables the claim-approval health check

	// Execution
	ExecutionMode string // "paper" or "live"

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		Venues:       getListOrDefault("VENUES", []string{"binance", "coinbase", "kraken"}),
		Symbols:      getListOrDefault("SYMBOLS", []string{"BTC/USD", "ETH/USD"}),
		ScanInterval: getDurationOrDefault("SCAN_INTERVAL", 5*time.Second),
		QuoteAsset:   getEnvOrDefault("QUOTE_ASSET", "USD"),
		QuoteTTL:     getDurationOrDefault("QUOTE_CACHE_TTL", 500*time.Millisecond),

		MinProfitPercentage: getFloat64OrDefault("MIN_PROFIT_PERCENTAGE", 0.005),
		DefaultTakerFee:     getFloat64OrDefault("DEFAULT_TAKER_FEE", 0.001),
		VenueFees:           getFeeMapOrDefault("VENUE_FEES", nil),

		MaxPositionSize:     getFloat64OrDefault("MAX_POSITION_SIZE", 1000.0),
		MaxDailyLoss:        getFloat64OrDefault("MAX_DAILY_LOSS", 500.0),
		MaxConcurrentTrades: getIntOrDefault("MAX_CONCURRENT_TRADES", 3),

		RequiredApprovals:   getIntOrDefault("REQUIRED_APPROVALS", 2),
		RequireLeadApproval: getBoolOrDefault("REQUIRE_LEAD_APPROVAL", true),
		ApprovalDeadline:    getDurationOrDefault("APPROVAL_DEADLINE", 5*time.Minute),

		PoolName:        getEnvOrDefault("POOL_NAME", "main-pool"),
		MinContribution: getFloat64OrDefault("MIN_CONTRIBUTION", 100.0),
		MaxMembers:      getIntOrDefault("MAX_MEMBERS", 50),

		ReservePercentage: getFloat64OrDefault("RESERVE_PERCENTAGE", 0.05),
		MinReserveHealth:  getFloat64OrDefault("MIN_RESERVE_HEALTH", 0),

		ExecutionMode: getEnvOrDefault("EXECUTION_MODE", "paper"),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "poolarb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "poolarb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "poolarb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if len(c.Venues) < 2 {
		return fmt.Errorf("VENUES needs at least two venues, got %d", len(c.Venues))
	}

	if c.MinProfitPercentage < 0 {
		return fmt.Errorf("MIN_PROFIT_PERCENTAGE must be >= 0, got %f", c.MinProfitPercentage)
	}

	for venue, rate := range c.VenueFees {
		if rate < 0 || rate >= 1 {
			return fmt.Errorf("VENUE_FEES rate for %s must be in [0, 1), got %f", venue, rate)
		}
	}

	if c.ReservePercentage < 0 || c.ReservePercentage > 1 {
		return fmt.Errorf("RESERVE_PERCENTAGE must be between 0 and 1, got %f", c.ReservePercentage)
	}

	if c.RequiredApprovals < 1 {
		return fmt.Errorf("REQUIRED_APPROVALS must be >= 1, got %d", c.RequiredApprovals)
	}

	if c.MaxConcurrentTrades < 1 {
		return fmt.Errorf("MAX_CONCURRENT_TRADES must be >= 1, got %d", c.MaxConcurrentTrades)
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper' or 'live', got %q", c.ExecutionMode)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}

// getFeeMapOrDefault parses "venue:rate,venue:rate" pairs. Malformed pairs
// are skipped.
func getFeeMapOrDefault(key string, defaultValue map[string]float64) map[string]float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	out := make(map[string]float64)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		venue, rate, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		venue = strings.TrimSpace(venue)

		f, err := strconv.ParseFloat(strings.TrimSpace(rate), 64)
		if err != nil || venue == "" {
			continue
		}
		out[venue] = f
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
