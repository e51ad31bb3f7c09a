package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ivanoskov/formbot/internal/form"
)

var (
	ErrMissingToken   = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingFormURL = errors.New("GOOGLE_FORM_URL is required")
)

type Config struct {
	TelegramToken string

	FormURL       string
	FormSubmitURL string
	MappingFile   string
	SubmitTimeout time.Duration

	SupabaseURL string
	SupabaseKey string

	LogLevel slog.Level

	HTTPAddr      string
	WebhookPath   string
	WebhookSecret string
}

// LoadConfig reads .env (if present) and the environment. It does not check
// required values; see Validate and ValidateForm.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	timeout, err := parseDuration("SUBMIT_TIMEOUT", form.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		FormURL:       os.Getenv("GOOGLE_FORM_URL"),
		FormSubmitURL: os.Getenv("GOOGLE_FORM_SUBMIT_URL"),
		MappingFile:   os.Getenv("FORM_MAPPING_FILE"),
		SubmitTimeout: timeout,
		SupabaseURL:   os.Getenv("SUPABASE_URL"),
		SupabaseKey:   os.Getenv("SUPABASE_KEY"),
		LogLevel:      level,
		HTTPAddr:      getEnvDefault("HTTP_ADDR", ":8080"),
		WebhookPath:   getEnvDefault("WEBHOOK_PATH", "/telegram/webhook"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
	}

	if cfg.FormSubmitURL == "" && cfg.FormURL != "" {
		cfg.FormSubmitURL = form.SubmitURLFromFormURL(cfg.FormURL)
	}
	return cfg, nil
}

// Validate checks everything the bot needs to serve turns.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	return c.ValidateForm()
}

// ValidateForm checks the form settings alone, for the tooling commands.
func (c *Config) ValidateForm() error {
	if c.FormURL == "" {
		return ErrMissingFormURL
	}
	return nil
}

// SupabaseEnabled reports whether the remote mapping table is configured.
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, value)
	}
	return d, nil
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if value == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(value))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", value, err)
	}
	return level, nil
}
