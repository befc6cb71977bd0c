package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds application settings read from the environment.
type Config struct {
	Port string

	// TaxRateBps is the sales tax rate in basis points (800 = 8%).
	// Tax is an explicit configuration input, never a hardcoded constant.
	TaxRateBps int

	// NearExpiryDays is the reporting window for the near-expiry alert.
	NearExpiryDays int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "3000"),
		TaxRateBps:     getEnvInt("TAX_RATE_BPS", 800),
		NearExpiryDays: getEnvInt("NEAR_EXPIRY_DAYS", 30),
	}

	if cfg.TaxRateBps < 0 {
		log.Printf("invalid TAX_RATE_BPS %d, defaulting to 800", cfg.TaxRateBps)
		cfg.TaxRateBps = 800
	}
	if cfg.NearExpiryDays <= 0 {
		log.Printf("invalid NEAR_EXPIRY_DAYS %d, defaulting to 30", cfg.NearExpiryDays)
		cfg.NearExpiryDays = 30
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s value %q, defaulting to %d", key, v, fallback)
		return fallback
	}
	return n
}
