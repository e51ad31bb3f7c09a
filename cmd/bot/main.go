package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/ivanoskov/formbot/internal/bot"
	"github.com/ivanoskov/formbot/internal/charts"
	"github.com/ivanoskov/formbot/internal/config"
	"github.com/ivanoskov/formbot/internal/form"
	"github.com/ivanoskov/formbot/internal/repository"
	"github.com/ivanoskov/formbot/internal/service"
	"github.com/ivanoskov/formbot/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "formbot",
	Short: "Telegram bot that records transactions into a Google Form",
	Long: `formbot walks a Telegram user through type, amount, category, description
and date, asks for confirmation and posts the answers to a Google Form.

Configuration comes from the environment (or a .env file):
  TELEGRAM_BOT_TOKEN, GOOGLE_FORM_URL      required
  GOOGLE_FORM_SUBMIT_URL                   derived from GOOGLE_FORM_URL when unset
  FORM_MAPPING_FILE                        YAML or TOML field mapping
  SUPABASE_URL, SUPABASE_KEY               remote field mapping table
  SUBMIT_TIMEOUT, LOG_LEVEL, HTTP_ADDR, WEBHOOK_PATH, WEBHOOK_SECRET`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, webhookCmd, inspectCmd, mappingCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration and installs the default logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// mappingSource returns the Supabase table when it is configured.
func mappingSource(cfg *config.Config, logger *slog.Logger) (*repository.SupabaseRepository, error) {
	if !cfg.SupabaseEnabled() {
		return nil, nil
	}
	return repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey, logger)
}

func resolveMapping(ctx context.Context, cfg *config.Config, logger *slog.Logger) (form.FieldMapping, error) {
	repo, err := mappingSource(cfg, logger)
	if err != nil {
		return form.FieldMapping{}, err
	}

	var src form.Source
	if repo != nil {
		src = repo
	}
	return form.Resolve(ctx, cfg.FormSubmitURL, cfg.MappingFile, src, logger)
}

// newBot wires the engine and connects to Telegram.
func newBot(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bot.Bot, *session.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	mapping, err := resolveMapping(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	store := session.NewStore()
	submitter := form.NewSubmitter(cfg.FormURL, &http.Client{Timeout: cfg.SubmitTimeout}, logger)
	engine := service.NewConversationEngine(store, submitter, mapping, service.NewLedger(), logger)

	b, err := bot.NewBot(cfg.TelegramToken, engine, charts.NewChartGenerator(), logger)
	if err != nil {
		return nil, nil, err
	}
	return b, store, nil
}
