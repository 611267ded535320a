package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	storeMemory = "memory"
	storeRedis  = "redis"

	algoFixedWindow = "fixed-window"
	algoTokenBucket = "token-bucket"
)

type config struct {
	listenAddr  string
	upstreamURL string
	metricsAddr string
	policyFile  string

	rateStore        string
	rateAlgorithm    string
	rateCleanupEvery time.Duration
	trustXFF         bool
	verbose          bool

	redisAddr     string
	redisPassword string
	redisDB       int
	redisPrefix   string

	concurrencyMax     int
	concurrencyTimeout time.Duration

	statsEnabled   bool
	statsPrefix    string
	statsTTL       time.Duration
	statsBucket    string
	statsTrackKeys bool

	logLevel  string
	logFormat string
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")
	cfg.metricsAddr = getenvDefault("METRICS_ADDR", ":9090")
	cfg.policyFile = os.Getenv("EDGE_POLICY_FILE")

	cfg.rateStore = strings.ToLower(getenvDefault("RATE_STORE", storeMemory))
	cfg.rateAlgorithm = strings.ToLower(getenvDefault("RATE_ALGORITHM", algoFixedWindow))
	cfg.rateCleanupEvery = getenvDurationDefault("RATE_CLEANUP_EVERY", 2*time.Minute)
	cfg.trustXFF = getenvBoolDefault("TRUST_XFF", false)
	cfg.verbose = getenvBoolDefault("EDGE_VERBOSE", false)

	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.redisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("REDIS_DB", 0)
	cfg.redisPrefix = getenvDefault("REDIS_PREFIX", "edge:ratelimit")

	cfg.concurrencyMax = getenvIntDefault("CONCURRENCY_MAX", 100)
	cfg.concurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", 0)

	cfg.statsEnabled = getenvBoolDefault("RATE_STATS_ENABLED", false)
	cfg.statsPrefix = getenvDefault("RATE_STATS_PREFIX", "edge:stats")
	cfg.statsTTL = getenvDurationDefault("RATE_STATS_TTL", 24*time.Hour)
	cfg.statsBucket = getenvDefault("RATE_STATS_BUCKET", "minute")
	cfg.statsTrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", false)

	cfg.logLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.logFormat = getenvDefault("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.upstreamURL == "" {
		return errors.New("UPSTREAM_URL is required")
	}
	switch c.rateStore {
	case storeMemory, storeRedis:
	default:
		return fmt.Errorf("RATE_STORE must be %q or %q, got %q", storeMemory, storeRedis, c.rateStore)
	}
	switch c.rateAlgorithm {
	case algoFixedWindow, algoTokenBucket:
	default:
		return fmt.Errorf("RATE_ALGORITHM must be %q or %q, got %q", algoFixedWindow, algoTokenBucket, c.rateAlgorithm)
	}
	if c.rateAlgorithm == algoTokenBucket && c.rateStore != storeMemory {
		return errors.New("RATE_ALGORITHM=token-bucket requires RATE_STORE=memory")
	}
	if c.needsRedis() && strings.TrimSpace(c.redisAddr) == "" {
		return errors.New("REDIS_ADDR is required when RATE_STORE=redis or RATE_STATS_ENABLED=true")
	}
	if c.concurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return nil
}

func (c config) needsRedis() bool {
	return c.rateStore == storeRedis || c.statsEnabled
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
