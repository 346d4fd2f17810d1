package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration for the screening service.
type Server struct {
	Addr                 string
	DatabaseURL          string
	Redis                RedisConfig
	KafkaBrokers         []string
	KafkaResultsTopic    string
	FinancialAPIURL      string
	FinancialAPIKey      string
	FinancialCacheTTL    time.Duration
	ScreeningConcurrency int
	EngineConfigPath     string
	DatasetPath          string
	RateLimitRequests    int
	RateLimitWindow      time.Duration
	LogLevel             slog.Level
}

// RedisConfig carries connection tuning for the ratio cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

const (
	defaultAddr              = ":8080"
	defaultResultsTopic      = "screening.results"
	defaultFinancialCacheTTL = 6 * time.Hour
	defaultConcurrency       = 8
	defaultRateLimitRequests = 120
	defaultRateLimitWindow   = time.Minute
)

// FromEnv builds a Server config from environment variables so main stays lean.
// Unset variables fall back to development defaults; malformed values are errors.
func FromEnv() (Server, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Server, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Server{
		Addr:              orDefault(get("SCREENER_ADDR"), defaultAddr),
		DatabaseURL:       get("DATABASE_URL"),
		KafkaBrokers:      splitList(get("KAFKA_BROKERS")),
		KafkaResultsTopic: orDefault(get("KAFKA_RESULTS_TOPIC"), defaultResultsTopic),
		FinancialAPIURL:   get("FINANCIAL_API_URL"),
		FinancialAPIKey:   get("FINANCIAL_API_KEY"),
		EngineConfigPath:  get("ENGINE_CONFIG_PATH"),
		DatasetPath:       get("DATASET_PATH"),
		Redis: RedisConfig{
			URL:          get("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}

	var err error
	if cfg.FinancialCacheTTL, err = durationOr(get("FINANCIAL_CACHE_TTL"), defaultFinancialCacheTTL); err != nil {
		return Server{}, fmt.Errorf("FINANCIAL_CACHE_TTL: %w", err)
	}
	if cfg.ScreeningConcurrency, err = intOr(get("SCREENING_CONCURRENCY"), defaultConcurrency); err != nil {
		return Server{}, fmt.Errorf("SCREENING_CONCURRENCY: %w", err)
	}
	if cfg.ScreeningConcurrency < 1 {
		return Server{}, fmt.Errorf("SCREENING_CONCURRENCY: must be at least 1, got %d", cfg.ScreeningConcurrency)
	}
	if cfg.RateLimitRequests, err = intOr(get("RATE_LIMIT_REQUESTS"), defaultRateLimitRequests); err != nil {
		return Server{}, fmt.Errorf("RATE_LIMIT_REQUESTS: %w", err)
	}
	if cfg.RateLimitWindow, err = durationOr(get("RATE_LIMIT_WINDOW"), defaultRateLimitWindow); err != nil {
		return Server{}, fmt.Errorf("RATE_LIMIT_WINDOW: %w", err)
	}
	if cfg.Redis.PoolSize, err = intOr(get("REDIS_POOL_SIZE"), cfg.Redis.PoolSize); err != nil {
		return Server{}, fmt.Errorf("REDIS_POOL_SIZE: %w", err)
	}
	if level := get("LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			return Server{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationOr(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative, got %s", v)
	}
	return d, nil
}

func intOr(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
