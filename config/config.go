package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	ServiceName string
	HTTPAddr    string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Razorpay RazorpayConfig
	Checkout CheckoutConfig
	Mail     MailConfig

	AdminJWTSecret string
	TracingEnabled bool
	JaegerEndpoint string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns a lib/pq keyword/value connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

type CheckoutConfig struct {
	// GuardBackend is "memory" or "redis".
	GuardBackend    string
	RateLimit       int
	RateWindow      time.Duration
	DedupWindow     time.Duration
	TotalTolerance  decimal.Decimal
	AmountTolerance int64 // paise
}

type MailConfig struct {
	Provider     string // brevo, resend or log
	BrevoAPIKey  string
	ResendAPIKey string
	From         string
	FromName     string
	AdminEmail   string
}

func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "storefront-service"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "storefrontdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: strings.Split(getEnv("KAFKA_BROKER", "localhost:9092"), ","),
			Topic:   getEnv("KAFKA_TOPIC", "order_events"),
		},
		Razorpay: RazorpayConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		},
		Checkout: CheckoutConfig{
			GuardBackend: getEnv("CHECKOUT_GUARD_BACKEND", "memory"),
		},
		Mail: MailConfig{
			Provider:     getEnv("MAIL_PROVIDER", "log"),
			BrevoAPIKey:  getEnv("BREVO_API_KEY", ""),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("MAIL_FROM", "orders@loomsandpetals.in"),
			FromName:     getEnv("MAIL_FROM_NAME", "Looms & Petals"),
			AdminEmail:   getEnv("ADMIN_EMAIL", "admin@loomsandpetals.in"),
		},
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
	}

	var err error
	if cfg.Kafka.Enabled, err = getBool("EVENTS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.TracingEnabled, err = getBool("TRACING_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.Razorpay.Timeout, err = getDuration("RAZORPAY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.Checkout.RateLimit, err = getInt("CHECKOUT_RATE_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.Checkout.RateWindow, err = getDuration("CHECKOUT_RATE_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.Checkout.DedupWindow, err = getDuration("CHECKOUT_DEDUP_WINDOW", 5*time.Minute); err != nil {
		return nil, err
	}
	amountTolerance, err := getInt("CHECKOUT_AMOUNT_TOLERANCE_PAISE", 100)
	if err != nil {
		return nil, err
	}
	cfg.Checkout.AmountTolerance = int64(amountTolerance)
	if cfg.Checkout.TotalTolerance, err = decimal.NewFromString(getEnv("CHECKOUT_TOTAL_TOLERANCE", "1")); err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_TOTAL_TOLERANCE: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Checkout.GuardBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid CHECKOUT_GUARD_BACKEND %q", c.Checkout.GuardBackend)
	}
	switch c.Mail.Provider {
	case "brevo", "resend", "log":
	default:
		return fmt.Errorf("invalid MAIL_PROVIDER %q", c.Mail.Provider)
	}
	if !c.Checkout.TotalTolerance.IsPositive() {
		return fmt.Errorf("CHECKOUT_TOTAL_TOLERANCE must be positive")
	}
	if c.Checkout.RateLimit <= 0 {
		return fmt.Errorf("CHECKOUT_RATE_LIMIT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
