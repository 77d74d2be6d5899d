package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelemetryEnabled  bool
	TelemetryEndpoint string
	TelemetryAction   string
	NonceSecret       string
	NonceTTL          time.Duration
	HTTPAddr          string
	AdminPageURL      string // Target of the consent links sent outside a page view
	DatabaseDriver    string
	DatabaseURL       string
	HostName          string
	HostAuthor        string
	HostURI           string
	FieldsFile        string
	FieldsWatch       bool // Reload FieldsFile when it changes on disk
	CronSpecSendCheck string // Backstop for installations without admin traffic
	CronSpecNotice    string // Reminder pushed to the Telegram admin while undecided
	TelegramToken     string // Optional; enables the Telegram admin surface together with AdminTelegramID
	AdminTelegramID   int64
	LogLevel          string
	Environment       string
}

// TelegramEnabled reports whether the Telegram admin surface is configured.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.AdminTelegramID != 0
}

// Load reads configuration from environment variables and .env files (if present).
// With no files given, ".env" in the working directory is tried.
func Load(envFiles ...string) (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	// Errors are ignored if the file doesn't exist.
	_ = godotenv.Load(envFiles...)

	cfg := &AppConfig{}
	var err error

	cfg.TelemetryEnabled, err = boolEnv("TELEMETRY_ENABLED", true)
	if err != nil {
		return nil, err
	}

	cfg.TelemetryEndpoint = stringEnv("TELEMETRY_ENDPOINT", "https://wplemon.com/?action=kirki-stats")
	cfg.TelemetryAction = stringEnv("TELEMETRY_ACTION", "kirki-stats")

	cfg.NonceSecret = os.Getenv("NONCE_SECRET")
	if cfg.NonceSecret == "" {
		return nil, fmt.Errorf("NONCE_SECRET is not set")
	}

	cfg.NonceTTL, err = time.ParseDuration(stringEnv("NONCE_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid NONCE_TTL: %w", err)
	}
	if cfg.NonceTTL <= 0 {
		return nil, fmt.Errorf("invalid NONCE_TTL: must be positive")
	}

	cfg.HTTPAddr = stringEnv("HTTP_ADDR", ":8080")
	cfg.AdminPageURL = stringEnv("ADMIN_PAGE_URL", "http://localhost:8080/admin")

	cfg.DatabaseDriver = strings.ToLower(stringEnv("DATABASE_DRIVER", "sqlite"))
	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("invalid DATABASE_DRIVER %q: want postgres or sqlite", cfg.DatabaseDriver)
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseDriver == "postgres" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
		cfg.DatabaseURL = "file:telemetry.db"
	}

	// Host metadata may be absent; it is reported as empty strings.
	cfg.HostName = os.Getenv("HOST_NAME")
	cfg.HostAuthor = os.Getenv("HOST_AUTHOR")
	cfg.HostURI = os.Getenv("HOST_URI")

	cfg.FieldsFile = stringEnv("FIELDS_FILE", "configs/fields.yaml")
	cfg.FieldsWatch, err = boolEnv("FIELDS_WATCH", true)
	if err != nil {
		return nil, err
	}

	cfg.CronSpecSendCheck = stringEnv("CRON_SPEC_SEND_CHECK", "0 3 * * *") // Default: 03:00 daily
	cfg.CronSpecNotice = stringEnv("CRON_SPEC_NOTICE", "0 10 * * 1")       // Default: 10:00 on Mondays

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}
	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is required when TELEGRAM_TOKEN is set")
	}

	cfg.LogLevel = strings.ToLower(stringEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(stringEnv("ENVIRONMENT", "development"))

	return cfg, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func boolEnv(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
