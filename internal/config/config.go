// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Operator account (single-operator deployment)
	Username string
	Password string

	// Signing secrets. All required — there are no built-in fallbacks.
	InvoiceSecret string // keys invoice number generation
	PaymentSecret string // keys receipt token generation
	SessionSecret string // signs session cookies

	// Links
	PublicBaseURL  string // used to build shareable pay-invoice URLs
	PayPalClientID string // handed to the pay page, never used server-side

	// Email (optional; mail dispatch is disabled when host is empty)
	EmailHost     string
	EmailPort     int
	EmailUser     string
	EmailPassword string
	EmailFrom     string

	// InternalSecret gates the internal email-send endpoint
	InternalSecret string

	// Session / receipt lifetimes
	SessionTTL time.Duration
	ReceiptTTL time.Duration

	RateLimitRPM int

	// OTLPEndpoint enables trace export when set; empty keeps the no-op
	// tracer.
	OTLPEndpoint string

	// AllowedOrigins lists origins granted CORS access. Empty means
	// same-origin only.
	AllowedOrigins []string
}

const (
	DefaultPort       = "8080"
	DefaultEnv        = "development"
	DefaultLogLevel   = "info"
	DefaultBaseURL    = "http://localhost:8080"
	DefaultEmailPort  = 587
	DefaultSessionTTL = 24 * time.Hour
	DefaultReceiptTTL = 15 * time.Minute
	DefaultRateLimit  = 120
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", DefaultPort),
		Env:            getEnv("ENV", DefaultEnv),
		LogLevel:       getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:    os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		Username:       os.Getenv("APP_USERNAME"),
		Password:       os.Getenv("APP_PASSWORD"),
		InvoiceSecret:  os.Getenv("INVOICE_SECRET"),
		PaymentSecret:  os.Getenv("PAYMENT_SECRET"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", DefaultBaseURL),
		PayPalClientID: os.Getenv("PAYPAL_CLIENT_ID"),
		EmailHost:      os.Getenv("EMAIL_HOST"),
		EmailPort:      getEnvInt("EMAIL_PORT", DefaultEmailPort),
		EmailUser:      os.Getenv("EMAIL_USER"),
		EmailPassword:  os.Getenv("EMAIL_PASSWORD"),
		EmailFrom:      os.Getenv("EMAIL_FROM"),
		InternalSecret: os.Getenv("INTERNAL_SECRET"),
		SessionTTL:     DefaultSessionTTL,
		ReceiptTTL:     DefaultReceiptTTL,
		RateLimitRPM:   getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AllowedOrigins: splitCSV(os.Getenv("ALLOWED_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
// Secrets must come from the environment; the process refuses to start
// with a missing secret rather than falling back to a baked-in value.
func (c *Config) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("APP_USERNAME is required")
	}
	if c.Password == "" {
		return fmt.Errorf("APP_PASSWORD is required")
	}
	if c.InvoiceSecret == "" {
		return fmt.Errorf("INVOICE_SECRET is required")
	}
	if c.PaymentSecret == "" {
		return fmt.Errorf("PAYMENT_SECRET is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("SESSION_SECRET must be at least 16 characters")
	}
	if c.MailEnabled() {
		if c.EmailUser == "" {
			return fmt.Errorf("EMAIL_USER is required when EMAIL_HOST is set")
		}
		if c.EmailFrom == "" {
			c.EmailFrom = c.EmailUser
		}
	}
	return nil
}

// MailEnabled reports whether SMTP dispatch is configured.
func (c *Config) MailEnabled() bool {
	return c.EmailHost != ""
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
