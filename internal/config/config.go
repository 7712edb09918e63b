package config

import (
	"os"
	"strconv"
)

// Config carries everything read from the environment. It is built once in
// main and passed to every component; nothing else touches os.Getenv.
type Config struct {
	Port        string
	Environment string // "development" or "production"

	// Storage. Driver is one of "postgres", "sqlite", "memory".
	DBDriver               string
	DBUser                 string
	DBPass                 string
	DBName                 string
	SQLitePath             string
	InstanceConnectionName string // Cloud SQL unix socket, production only

	// Twilio WhatsApp transport.
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioWhatsAppFrom string

	DisableWebhookValidation bool

	// Hour of day (0-23) the unanswered-orders digest runs.
	DigestHour int
}

// Load populates Config from the environment with development defaults.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DBDriver:               getEnv("DB_DRIVER", "postgres"),
		DBUser:                 getEnv("DB_USER", "postgres"),
		DBPass:                 os.Getenv("DB_PASS"),
		DBName:                 getEnv("DB_NAME", "stitchlink"),
		SQLitePath:             getEnv("SQLITE_PATH", "stitchlink.db"),
		InstanceConnectionName: os.Getenv("INSTANCE_CONNECTION_NAME"),

		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom: os.Getenv("TWILIO_WHATSAPP_FROM"),

		DisableWebhookValidation: os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true",

		DigestHour: getEnvInt("DIGEST_HOUR", 9),
	}
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// TwilioConfigured reports whether WhatsApp delivery credentials are set.
func (c *Config) TwilioConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioWhatsAppFrom != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
