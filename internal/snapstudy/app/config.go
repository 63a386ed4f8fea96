package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/notify"
	"github.com/yakshxo/snapstudy/pkg/jwtx"
)

type Config struct {
	Issuer        string        // Issuer claim for session tokens (default: snapstudy)
	SessionSecret string        // Required: HS256 secret, at least 32 bytes
	SessionTTL    time.Duration // Session token lifetime (default: 168h)

	DatabaseFile string // Path to SQLite database file (default: ./snapstudy.db)
	PepperFile   string // Path to password hashing pepper file (default: ./pepper)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: json)
	Port      int    // HTTP server port (default: 8080)

	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 10m)

	StartingCredits int64               // Credits granted on signup (default: 5)
	UnlimitedEmails map[string]struct{} // Addresses exempt from credit debits
	OTPTTL          time.Duration       // Challenge code lifetime (default: 10m)

	GenerationTimeout time.Duration // Cap on one generator call (default: 2m)
	OpenAIKey         string        // OpenAI API key
	OpenAIModel       string        // Optional model override

	StripeSecretKey     string // Stripe secret API key
	StripeWebhookSecret string // Stripe webhook signing secret
	CheckoutSuccessURL  string // Hosted checkout success redirect
	CheckoutCancelURL   string // Hosted checkout cancel redirect

	SMTP notify.SMTPConfig // Mail relay; log-only notifier when Host is empty
}

func LoadConfig() Config {
	return Config{
		Issuer:        getEnvOrDefault("SNAPSTUDY_ISSUER", "snapstudy"),
		SessionSecret: os.Getenv("SNAPSTUDY_SESSION_SECRET"),
		SessionTTL:    getEnvDurationOrDefault("SNAPSTUDY_SESSION_TTL", jwtx.DefaultSessionTTL),

		DatabaseFile: getEnvOrDefault("SNAPSTUDY_DATABASE_FILE", "snapstudy.db"),
		PepperFile:   getEnvOrDefault("SNAPSTUDY_PEPPER_FILE", "pepper"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		Port:      getEnvIntOrDefault("PORT", 8080),

		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 10*time.Minute),

		StartingCredits: int64(getEnvIntOrDefault("SNAPSTUDY_STARTING_CREDITS", 5)),
		UnlimitedEmails: parseEmailSet(os.Getenv("SNAPSTUDY_UNLIMITED_EMAILS")),
		OTPTTL:          getEnvDurationOrDefault("SNAPSTUDY_OTP_TTL", 10*time.Minute),

		GenerationTimeout: getEnvDurationOrDefault("SNAPSTUDY_GENERATION_TIMEOUT", 2*time.Minute),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       os.Getenv("SNAPSTUDY_OPENAI_MODEL"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CheckoutSuccessURL: getEnvOrDefault(
			"SNAPSTUDY_CHECKOUT_SUCCESS_URL",
			"http://localhost:3000/payment-success?session_id={CHECKOUT_SESSION_ID}",
		),
		CheckoutCancelURL: getEnvOrDefault(
			"SNAPSTUDY_CHECKOUT_CANCEL_URL",
			"http://localhost:3000/buy-credits",
		),

		SMTP: notify.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvIntOrDefault("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("SMTP_FROM", "no-reply@snapstudy.app"),
		},
	}
}

// parseEmailSet splits a comma-separated allow-list into a lowercased set.
func parseEmailSet(raw string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		if email := strings.ToLower(strings.TrimSpace(part)); email != "" {
			set[email] = struct{}{}
		}
	}
	return set
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Integer values are treated as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
