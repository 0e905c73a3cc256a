package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"TARIFF_PRICE_BASE_RUB", "TARIFF_PRICE_OPTIMAL_RUB", "TARIFF_PRICE_MAX_RUB",
		"TARIFF_REMINDER_DAYS", "TARIFF_REMINDER_INTERVAL_MIN", "SESSION_TTL", "PAYMENTS_CURRENCY",
	} {
		unsetEnv(t, key)
	}

	cfg := LoadConfig()

	assert.Equal(t, 1000, cfg.PriceBase)
	assert.Equal(t, 5000, cfg.PriceOptimal)
	assert.Equal(t, 15000, cfg.PriceMaximum)
	assert.Equal(t, 3, cfg.ReminderDays)
	assert.Equal(t, time.Hour, cfg.ReminderInterval)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "RUB", cfg.PaymentCurrency)
	assert.Equal(t, 72*time.Hour, cfg.ReminderLead())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("TARIFF_PRICE_BASE_RUB", "1200")
	t.Setenv("TARIFF_PRICE_OPTIMAL_RUB", "-5")
	t.Setenv("TARIFF_PRICE_MAX_RUB", "lots")
	t.Setenv("TARIFF_REMINDER_DAYS", "0")
	t.Setenv("TARIFF_REMINDER_INTERVAL_MIN", "0")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("PAYMENTS_PROVIDER_TOKEN", "381764678:TEST:1")

	cfg := LoadConfig()

	assert.Equal(t, 1200, cfg.PriceBase)
	assert.Equal(t, 5000, cfg.PriceOptimal, "non-positive price falls back to default")
	assert.Equal(t, 15000, cfg.PriceMaximum, "unparsable price falls back to default")
	assert.Equal(t, 0, cfg.ReminderDays)
	assert.LessOrEqual(t, cfg.ReminderLead(), time.Duration(0))
	assert.Equal(t, time.Minute, cfg.ReminderInterval, "interval is floored at one minute")
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "381764678:TEST:1", cfg.PaymentProviderToken)
}

// unsetEnv removes key for the duration of the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	_ = os.Unsetenv(key)
}
