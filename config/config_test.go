package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.Checkout.GuardBackend)
	assert.Equal(t, 5, cfg.Checkout.RateLimit)
	assert.Equal(t, time.Minute, cfg.Checkout.RateWindow)
	assert.Equal(t, 5*time.Minute, cfg.Checkout.DedupWindow)
	assert.Equal(t, int64(100), cfg.Checkout.AmountTolerance)
	assert.True(t, cfg.Checkout.TotalTolerance.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "https://api.razorpay.com/v1", cfg.Razorpay.BaseURL)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHECKOUT_GUARD_BACKEND", "redis")
	t.Setenv("CHECKOUT_RATE_WINDOW", "2m")
	t.Setenv("KAFKA_BROKER", "k1:9092,k2:9092")
	t.Setenv("EVENTS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Checkout.GuardBackend)
	assert.Equal(t, 2*time.Minute, cfg.Checkout.RateWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "CHECKOUT_DEDUP_WINDOW", "five minutes"},
		{"bad int", "CHECKOUT_RATE_LIMIT", "many"},
		{"zero limit", "CHECKOUT_RATE_LIMIT", "0"},
		{"bad guard backend", "CHECKOUT_GUARD_BACKEND", "memcached"},
		{"bad mail provider", "MAIL_PROVIDER", "smtp"},
		{"bad tolerance", "CHECKOUT_TOTAL_TOLERANCE", "one"},
		{"negative tolerance", "CHECKOUT_TOTAL_TOLERANCE", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=shop sslmode=disable", c.DSN())
}
