package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/ivanoskov/formbot/internal/bot"
	"github.com/ivanoskov/formbot/internal/charts"
	"github.com/ivanoskov/formbot/internal/config"
	"github.com/ivanoskov/formbot/internal/form"
	"github.com/ivanoskov/formbot/internal/repository"
	"github.com/ivanoskov/formbot/internal/service"
	"github.com/ivanoskov/formbot/internal/session"
)

// Request is the incoming API Gateway request.
type Request struct {
	Body string `json:"body"`
}

// Response is returned to API Gateway.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Sessions live in memory, so a conversation only survives while the same
// warm instance keeps receiving its updates.
var (
	initOnce sync.Once
	instance *bot.Bot
	initErr  error
)

func getBot(ctx context.Context) (*bot.Bot, error) {
	initOnce.Do(func() {
		instance, initErr = newBot(ctx)
	})
	return instance, initErr
}

func newBot(ctx context.Context) (*bot.Bot, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var src form.Source
	if cfg.SupabaseEnabled() {
		repo, err := repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey, logger)
		if err != nil {
			return nil, err
		}
		src = repo
	}
	mapping, err := form.Resolve(ctx, cfg.FormSubmitURL, cfg.MappingFile, src, logger)
	if err != nil {
		return nil, err
	}

	submitter := form.NewSubmitter(cfg.FormURL, &http.Client{Timeout: cfg.SubmitTimeout}, logger)
	engine := service.NewConversationEngine(session.NewStore(), submitter, mapping, service.NewLedger(), logger)
	return bot.NewBot(cfg.TelegramToken, engine, charts.NewChartGenerator(), logger)
}

func Handler(ctx context.Context, request Request) (*Response, error) {
	b, err := getBot(ctx)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, err)
	}

	if err := b.HandleWebhook(ctx, []byte(request.Body)); err != nil {
		if errors.Is(err, bot.ErrBadUpdate) {
			return errorResponse(http.StatusBadRequest, err)
		}
		// answering 200 keeps Telegram from redelivering the update
		slog.Error("failed to handle update", "error", err)
	}

	return &Response{
		StatusCode: http.StatusOK,
		Body:       "",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func errorResponse(status int, err error) (*Response, error) {
	return &Response{
		StatusCode: status,
		Body:       err.Error(),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func main() {
	// the platform calls Handler directly
}
