package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings shared by the backtest,
// download and trade binaries.
type Config struct {
	Port string

	// Market
	Symbol     string
	Interval   string
	BaseAsset  string
	QuoteAsset string

	// Binance
	BinanceTestnet   bool
	BinanceAPIKey    string
	BinanceAPISecret string

	// Database
	DBPath string

	// UseMockFeed replaces stored candles with a seeded random walk, for
	// trying strategies without downloading history.
	UseMockFeed bool

	// Follow keeps the downloader tailing the live kline stream after
	// the backfill completes.
	Follow bool

	// Backtest
	InitialBase  float64
	InitialQuote float64
	FeeRate      float64 // decimal (e.g. 0.0001 = 1 bp)
	StartTime    int64   // unix ms, 0 = from the beginning
	EndTime      int64   // unix ms, 0 = to the end

	// Strategies
	StrategyConfigPath string

	// Live trading
	PollInterval time.Duration
	Retries      int
	Backoff      time.Duration
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		Symbol:             getEnv("SYMBOL", "BTCUSDT"),
		Interval:           getEnv("INTERVAL", "1h"),
		BaseAsset:          getEnv("BASE_ASSET", "BTC"),
		QuoteAsset:         getEnv("QUOTE_ASSET", "USDT"),
		BinanceTestnet:     getEnv("BINANCE_TESTNET", "false") == "true",
		BinanceAPIKey:      os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret:   os.Getenv("BINANCE_API_SECRET"),
		DBPath:             getEnv("DB_PATH", "./data/candles.db"),
		UseMockFeed:        getEnv("USE_MOCK_FEED", "false") == "true",
		Follow:             getEnv("FOLLOW", "false") == "true",
		InitialBase:        getEnvFloat("INITIAL_BASE", 0),
		InitialQuote:       getEnvFloat("INITIAL_QUOTE", 10000.0),
		FeeRate:            getEnvFloat("FEE_RATE", 0.0001),
		StartTime:          getEnvInt64("START_TIME", 0),
		EndTime:            getEnvInt64("END_TIME", 0),
		StrategyConfigPath: getEnv("STRATEGY_CONFIG", "./strategies.yaml"),
		PollInterval:       time.Duration(getEnvInt("POLL_INTERVAL_SEC", 5)) * time.Second,
		Retries:            getEnvInt("RETRIES", 3),
		Backoff:            time.Duration(getEnvInt("BACKOFF_SEC", 2)) * time.Second,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}
