// Package bot connects the conversation engine to Telegram.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/formbot/internal/service"
)

// ErrBadUpdate is returned by HandleWebhook for a body that is not an update.
var ErrBadUpdate = errors.New("malformed telegram update")

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// ChartRenderer draws the /resumo charts. A nil image means nothing to draw.
type ChartRenderer interface {
	GenerateCategoryChart(report service.Report) ([]byte, error)
	GenerateTypePieChart(report service.Report) ([]byte, error)
}

type Bot struct {
	api    API
	engine *service.ConversationEngine
	charts ChartRenderer
	logger *slog.Logger

	// confirmations still submitting, waited for on shutdown
	inflight sync.WaitGroup
}

func NewBot(token string, engine *service.ConversationEngine, charts ChartRenderer, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	b := New(api, engine, charts, logger)
	b.logger.Info("authorized on telegram", "username", api.Self.UserName)
	return b, nil
}

// New wraps an existing API client. charts may be nil to send /resumo as text only.
func New(api API, engine *service.ConversationEngine, charts ChartRenderer, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		api:    api,
		engine: engine,
		charts: charts,
		logger: logger,
	}
}

// Start runs the bot in long polling mode until ctx is cancelled, then waits
// for pending confirmations to finish.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("polling for updates")

	defer b.inflight.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("stopped polling")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

// dispatch handles one polled update. A confirmation may block on the form
// for seconds, so it runs on its own goroutine; everything else is handled
// in order.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	if cq := update.CallbackQuery; cq != nil && service.Decision(cq.Data) == service.DecisionConfirm {
		b.inflight.Add(1)
		go func() {
			defer b.inflight.Done()
			// the submission outlives a shutdown request
			b.logError(b.HandleUpdate(context.WithoutCancel(ctx), update))
		}()
		return
	}
	b.logError(b.HandleUpdate(ctx, update))
}

// HandleWebhook is the entry point for updates pushed by Telegram.
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("%w: %v", ErrBadUpdate, err)
	}

	return b.HandleUpdate(ctx, update)
}

// HandleUpdate handles a single update synchronously.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	switch {
	case update.CallbackQuery != nil:
		return b.handleCallback(ctx, update.CallbackQuery)
	case update.Message == nil || update.Message.From == nil:
		return nil
	case update.Message.IsCommand():
		return b.handleCommand(ctx, update.Message)
	default:
		return b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) send(c tgbotapi.Chattable) error {
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) logError(err error) {
	if err != nil {
		b.logger.Error("failed to handle update", "error", err)
	}
}
