package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"signalbot/database"
)

// ReferralTrigger selects the moment a referral bonus is paid out
type ReferralTrigger string

const (
	ReferralTriggerSignup ReferralTrigger = "signup" // when the invitee first starts the bot
	ReferralTriggerPromo  ReferralTrigger = "promo"  // when the invitee redeems the promo code
)

// Config holds all application configuration
type Config struct {
	// Telegram configuration
	TelegramToken string
	BotUsername   string
	AdminIDs      []int64

	// Database configuration
	DatabaseURL      string
	DatabaseName     string
	DatabaseMaxConns int32

	// Ledger configuration
	StartingBalance int64
	FreeSignals     int
	SignalCost      int64
	MinWithdraw     int64

	// Bonus configuration
	ReferralBonus           int64
	ReferralBonusTrigger    ReferralTrigger
	StartBonus              int64
	StartBonusDelay         time.Duration
	StartBonusSweepInterval time.Duration
	PromoKeyword            string

	// Links shown to users
	WithdrawSiteURL string
	DefaultAPKURL   string

	// Session storage, in memory when RedisURL is empty
	RedisURL   string
	SessionTTL time.Duration

	// NATS configuration, event forwarding is disabled when empty
	NATSServers string
	NATSStream  string

	// Observability
	MetricsAddr string
	LogLevel    string
	LogFormat   string

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL combines the base URL and the database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsAdmin reports whether telegramID may open the admin panel
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		BotUsername:   getEnvWithDefault("BOT_USERNAME", "Winwin_premium_bonusbot"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseName:     os.Getenv("DATABASE_NAME"),
		DatabaseMaxConns: int32(getEnvInt("DATABASE_MAX_CONNS", 10)),

		StartingBalance: getEnvInt64("STARTING_BALANCE", 0),
		FreeSignals:     getEnvInt("FREE_SIGNALS", 3),
		SignalCost:      getEnvInt64("SIGNAL_COST", 0),
		MinWithdraw:     getEnvInt64("MIN_WITHDRAW", 25000),

		ReferralBonus:           getEnvInt64("REFERRAL_BONUS", 2500),
		ReferralBonusTrigger:    ReferralTrigger(getEnvWithDefault("REFERRAL_BONUS_TRIGGER", string(ReferralTriggerPromo))),
		StartBonus:              getEnvInt64("START_BONUS", 15000),
		StartBonusDelay:         getEnvDuration("START_BONUS_DELAY", time.Minute),
		StartBonusSweepInterval: getEnvDuration("START_BONUS_SWEEP_INTERVAL", 30*time.Second),
		PromoKeyword:            getEnvWithDefault("PROMO_KEYWORD", "WINWIN"),

		WithdrawSiteURL: getEnvWithDefault("WITHDRAW_SITE_URL", "https://futbolinsidepulyechish.netlify.app/"),
		DefaultAPKURL:   os.Getenv("APK_URL"),

		RedisURL:   os.Getenv("REDIS_URL"),
		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),

		NATSServers: os.Getenv("NATS_SERVERS"),
		NATSStream:  getEnvWithDefault("NATS_STREAM", "LEDGER"),

		MetricsAddr: os.Getenv("METRICS_ADDR"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:   getEnvWithDefault("LOG_FORMAT", "text"),

		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
	}

	config.AdminIDs = parseIDList(os.Getenv("ADMIN_IDS"))

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch c.ReferralBonusTrigger {
	case ReferralTriggerSignup, ReferralTriggerPromo:
	default:
		return fmt.Errorf("REFERRAL_BONUS_TRIGGER must be %q or %q, got %q",
			ReferralTriggerSignup, ReferralTriggerPromo, c.ReferralBonusTrigger)
	}
	if c.ReferralBonus < 0 || c.StartBonus < 0 || c.SignalCost < 0 {
		return fmt.Errorf("bonus amounts and signal cost must not be negative")
	}
	if c.FreeSignals < 0 {
		return fmt.Errorf("FREE_SIGNALS must not be negative")
	}
	if c.StartBonusSweepInterval <= 0 {
		return fmt.Errorf("START_BONUS_SWEEP_INTERVAL must be positive")
	}

	if c.Environment == "test" {
		return nil
	}
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.PromoKeyword == "" {
		return fmt.Errorf("PROMO_KEYWORD cannot be empty")
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	return int(getEnvInt64(key, int64(defaultValue)))
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseIDList parses a comma separated list of Telegram ids, skipping junk
func parseIDList(raw string) []int64 {
	var ids []int64
	for _, idStr := range strings.Split(raw, ",") {
		idStr = strings.TrimSpace(idStr)
		if idStr == "" {
			continue
		}
		if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		BotUsername:             "test_signal_bot",
		AdminIDs:                []int64{999999},
		StartingBalance:         0,
		FreeSignals:             3,
		SignalCost:              500,
		MinWithdraw:             25000,
		ReferralBonus:           2500,
		ReferralBonusTrigger:    ReferralTriggerPromo,
		StartBonus:              15000,
		StartBonusDelay:         time.Minute,
		StartBonusSweepInterval: 30 * time.Second,
		PromoKeyword:            "WINWIN",
		WithdrawSiteURL:         "https://example.test/withdraw",
		SessionTTL:              30 * time.Minute,
		NATSStream:              "LEDGER",
		LogLevel:                "info",
		LogFormat:               "text",
		Environment:             "test",
	}
}
