package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DBUser        string
	DBPassword    string
	DBName        string
	DBHost        string
	DBPort        string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	BotToken      string

	// Empty provider token disables checkout issuance at runtime.
	PaymentProviderToken string
	PaymentCurrency      string

	PriceBase    int
	PriceOptimal int
	PriceMaximum int

	ReminderDays     int
	ReminderInterval time.Duration
	SessionTTL       time.Duration

	AppURL   string
	AdminURL string

	LogLevel    string
	LogFormat   string
	MetricsAddr string

	// Comma separated subnets allowed to scrape metrics; empty allows all.
	MetricsAllowedCIDRs string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using system environment variables")
	}

	intervalMin := getEnvInt("TARIFF_REMINDER_INTERVAL_MIN", 60)
	if intervalMin < 1 {
		intervalMin = 1
	}

	return &Config{
		DBUser:               getEnv("DB_USER", "postgres"),
		DBPassword:           getEnv("DB_PASSWORD", "postgres"),
		DBName:               getEnv("DB_NAME", "fitdew"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "5432"),
		RedisHost:            getEnv("REDIS_HOST", "localhost"),
		RedisPort:            getEnv("REDIS_PORT", "6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		BotToken:             getEnv("TELEGRAM_BOT_TOKEN", ""),
		PaymentProviderToken: getEnv("PAYMENTS_PROVIDER_TOKEN", ""),
		PaymentCurrency:      getEnv("PAYMENTS_CURRENCY", "RUB"),
		PriceBase:            getEnvPositive("TARIFF_PRICE_BASE_RUB", 1000),
		PriceOptimal:         getEnvPositive("TARIFF_PRICE_OPTIMAL_RUB", 5000),
		PriceMaximum:         getEnvPositive("TARIFF_PRICE_MAX_RUB", 15000),
		ReminderDays:         getEnvInt("TARIFF_REMINDER_DAYS", 3),
		ReminderInterval:     time.Duration(intervalMin) * time.Minute,
		SessionTTL:           getEnvDuration("SESSION_TTL", 30*time.Minute),
		AppURL:               getEnv("APP_URL", ""),
		AdminURL:             getEnv("ADMIN_URL", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "auto"),
		MetricsAddr:          getEnv("METRICS_ADDR", ""),
		MetricsAllowedCIDRs:  getEnv("METRICS_ALLOWED_CIDRS", ""),
	}
}

// ReminderLead is zero or negative when reminders are disabled.
func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.ReminderDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getEnvPositive(key string, fallback int) int {
	if n := getEnvInt(key, fallback); n > 0 {
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration in environment, using default")
		return fallback
	}
	return d
}
