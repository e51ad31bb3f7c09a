package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/formbot/internal/metrics"
	"github.com/ivanoskov/formbot/internal/service"
)

const (
	turnCommand  = "command"
	turnText     = "text"
	turnCallback = "callback"
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	metrics.Turns.WithLabelValues(turnCommand).Inc()
	userID := message.From.ID
	chatID := message.Chat.ID

	var reply service.Reply
	switch message.Command() {
	case "start":
		reply = b.engine.Welcome()
	case "ajuda", "help":
		reply = b.engine.Help()
	case "novo":
		reply = b.engine.Begin(userID)
	case "cancelar":
		reply = b.engine.Cancel(ctx, userID)
	case "resumo":
		return b.handleSummary(chatID, userID)
	default:
		b.logger.Debug("ignoring unknown command", "user_id", userID, "command", message.Command())
		return nil
	}

	return b.send(render(chatID, reply))
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.Text == "" {
		return nil
	}
	metrics.Turns.WithLabelValues(turnText).Inc()

	reply := b.engine.HandleText(ctx, message.From.ID, message.Text, message.Time())
	if reply.Empty() {
		return nil
	}
	return b.send(render(message.Chat.ID, reply))
}

// handleCallback answers a confirm/cancel press. The pressed message is
// edited in place, which also drops its buttons.
func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	metrics.Turns.WithLabelValues(turnCallback).Inc()

	// stop the button spinner before a possibly slow submission
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", "callback_id", callback.ID, "error", err)
	}

	reply := b.engine.HandleDecision(ctx, callback.From.ID, service.Decision(callback.Data))
	if reply.Empty() {
		return nil
	}

	if callback.Message == nil {
		return b.send(render(callback.From.ID, reply))
	}
	edit := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID, reply.Text)
	if reply.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	return b.send(edit)
}

func (b *Bot) handleSummary(chatID, userID int64) error {
	reply, report := b.engine.Summary(userID)
	if err := b.send(render(chatID, reply)); err != nil {
		return err
	}
	if b.charts == nil || report.Count == 0 {
		return nil
	}

	renders := []struct {
		name   string
		render func(service.Report) ([]byte, error)
	}{
		{"resumo_categorias.png", b.charts.GenerateCategoryChart},
		{"resumo_tipos.png", b.charts.GenerateTypePieChart},
	}
	for _, r := range renders {
		png, err := r.render(report)
		if err != nil {
			b.logger.Error("failed to render summary chart", "user_id", userID, "chart", r.name, "error", err)
			continue
		}
		if png == nil {
			continue
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: r.name, Bytes: png})
		if err := b.send(photo); err != nil {
			return err
		}
	}
	return nil
}
