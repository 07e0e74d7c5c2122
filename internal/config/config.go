package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"tillledger/internal/domain"
	"tillledger/internal/fee"
)

type Config struct {
	DatabaseURL       string
	SQLitePath        string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	Location          *time.Location
	FeeRates          map[domain.PaymentMethod]decimal.Decimal
	LowStockThreshold int
	RolloverInterval  time.Duration
	ClosingCacheTTL   time.Duration
	// UnlinkOnRemove clears template links to an inventory item when the item is removed.
	UnlinkOnRemove bool
	LogLevel       string
	LogFormat      string
	// Warnings lists values that were ignored in favour of defaults. They are
	// logged once the logger exists.
	Warnings []string
}

// Load reads the environment. Values from ENV_FILE (default .env) are
// applied first without overriding variables that are already set.
func Load() Config {
	var warnings []string
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		warnings = append(warnings, fmt.Sprintf("could not read %s: %v", envFile, err))
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	threshold, err := strconv.Atoi(getEnv("LOW_STOCK_THRESHOLD", "10"))
	if err != nil || threshold < 0 {
		threshold = 10
	}
	interval, err := strconv.Atoi(getEnv("ROLLOVER_INTERVAL_SECONDS", "60"))
	if err != nil || interval < 1 {
		interval = 60
	}
	cacheTTL, err := strconv.Atoi(getEnv("CLOSING_CACHE_TTL_MINUTES", "1440"))
	if err != nil || cacheTTL < 1 {
		cacheTTL = 1440
	}
	unlink, err := strconv.ParseBool(getEnv("UNLINK_TEMPLATES_ON_REMOVE", "true"))
	if err != nil {
		unlink = true
	}

	rates := fee.DefaultRates()
	rates[domain.PaymentCard] = getRate("CARD_FEE_RATE", rates[domain.PaymentCard], &warnings)
	rates[domain.PaymentPix] = getRate("PIX_FEE_RATE", rates[domain.PaymentPix], &warnings)
	rates[domain.PaymentCash] = getRate("CASH_FEE_RATE", rates[domain.PaymentCash], &warnings)
	location := loadLocation(getEnv("TILL_TIMEZONE", "Local"), &warnings)

	return Config{
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:        strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		Location:          location,
		FeeRates:          rates,
		LowStockThreshold: threshold,
		RolloverInterval:  time.Duration(interval) * time.Second,
		ClosingCacheTTL:   time.Duration(cacheTTL) * time.Minute,
		UnlinkOnRemove:    unlink,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		Warnings:          warnings,
	}
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getRate(key string, fallback decimal.Decimal, warnings *[]string) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() {
		*warnings = append(*warnings, fmt.Sprintf("ignoring invalid %s=%q", key, raw))
		return fallback
	}
	return rate
}

func loadLocation(name string, warnings *[]string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("unknown TILL_TIMEZONE %q, using Local", name))
		return time.Local
	}
	return loc
}
