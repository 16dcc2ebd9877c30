package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/copybot/core"
	"github.com/web3guy0/copybot/storage"
	"github.com/web3guy0/copybot/strategy"
)

// Config holds all configuration for the bot
type Config struct {
	// Telegram (optional)
	TelegramToken  string
	TelegramChatID int64

	Debug bool

	// CheckInterval is how often the external scheduler is expected to run
	// check-wallets. Nothing loops on it; it is logged at cycle start.
	CheckInterval time.Duration
	TradeWindow   time.Duration

	// Copy scoring
	MinNotionalUSD   decimal.Decimal
	MinWalletROI     float64
	MinWalletWinRate float64
	CopyRatio        decimal.Decimal
	MinTradeSize     decimal.Decimal
	MaxTradeSize     decimal.Decimal
	MaxSlippagePct   decimal.Decimal

	// Trade source
	DataAPIURL      string
	DataAPIRPS      float64
	HTTPTimeout     time.Duration
	TradeFetchLimit int

	// Local data
	DataDir            string
	WalletsFile        string
	SignalsFile        string
	ProcessedFile      string
	ProcessedMaxAge    time.Duration
	SignalHistoryLimit int

	// Database (empty → file store)
	DatabaseURL    string
	DBMaxOpenConns int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Debug:         getEnvBool("DEBUG", false),

		CheckInterval: time.Duration(getEnvInt("CHECK_INTERVAL_MINUTES", 5)) * time.Minute,
		TradeWindow:   time.Duration(getEnvInt("TRADE_WINDOW_MINUTES", 60)) * time.Minute,

		MinNotionalUSD:   getEnvDecimal("MIN_NOTIONAL_USD", decimal.NewFromInt(50)),
		MinWalletROI:     getEnvFloat("MIN_WALLET_ROI", 0.05),
		MinWalletWinRate: getEnvFloat("MIN_WALLET_WIN_RATE", 0.50),
		CopyRatio:        getEnvDecimal("COPY_RATIO", decimal.NewFromFloat(0.1)),
		MinTradeSize:     getEnvDecimal("MIN_TRADE_SIZE", decimal.NewFromInt(5)),
		MaxTradeSize:     getEnvDecimal("MAX_TRADE_SIZE", decimal.NewFromInt(100)),
		MaxSlippagePct:   getEnvDecimal("MAX_SLIPPAGE_PCT", decimal.NewFromFloat(0.05)),

		DataAPIURL:      getEnv("DATA_API_URL", "https://data-api.polymarket.com"),
		DataAPIRPS:      getEnvFloat("DATA_API_RPS", 5),
		HTTPTimeout:     getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		TradeFetchLimit: getEnvInt("TRADE_FETCH_LIMIT", 50),

		DataDir:            getEnv("DATA_DIR", "data"),
		WalletsFile:        getEnv("WALLETS_FILE", "wallets.json"),
		SignalsFile:        getEnv("SIGNALS_FILE", "copy_signals.json"),
		ProcessedFile:      getEnv("PROCESSED_FILE", "processed_trades.json"),
		ProcessedMaxAge:    getEnvDuration("PROCESSED_MAX_AGE", 24*time.Hour),
		SignalHistoryLimit: getEnvInt("SIGNAL_HISTORY_LIMIT", 100),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 5),
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.MinTradeSize.GreaterThan(cfg.MaxTradeSize) {
		return nil, fmt.Errorf("MIN_TRADE_SIZE (%s) exceeds MAX_TRADE_SIZE (%s)", cfg.MinTradeSize, cfg.MaxTradeSize)
	}

	return cfg, nil
}

// TelegramEnabled reports whether both token and chat are set
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// CopyConfig maps scoring settings onto the engine
func (c *Config) CopyConfig() strategy.CopyConfig {
	return strategy.CopyConfig{
		MinNotionalUSD:   c.MinNotionalUSD,
		MinWalletROI:     c.MinWalletROI,
		MinWalletWinRate: c.MinWalletWinRate,
		CopyRatio:        c.CopyRatio,
		MinTradeSize:     c.MinTradeSize,
		MaxTradeSize:     c.MaxTradeSize,
		MaxSlippagePct:   c.MaxSlippagePct,
	}
}

// MonitorConfig maps polling limits onto the monitor
func (c *Config) MonitorConfig() core.MonitorConfig {
	return core.MonitorConfig{
		TradeFetchLimit: c.TradeFetchLimit,
		TradeWindow:     c.TradeWindow,
	}
}

// StorageOptions maps database and data dir settings onto storage.Open
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		DatabaseURL:  c.DatabaseURL,
		MaxOpenConns: c.DBMaxOpenConns,
		DataDir:      c.DataDir,
		WalletsFile:  c.WalletsFile,
	}
}

// SignalsPath is the signal history file
func (c *Config) SignalsPath() string {
	return filepath.Join(c.DataDir, c.SignalsFile)
}

// ProcessedPath is the processed trade cache file
func (c *Config) ProcessedPath() string {
	return filepath.Join(c.DataDir, c.ProcessedFile)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
