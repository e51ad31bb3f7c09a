package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/formbot/internal/service"
)

// render turns an engine reply into a Telegram message with the right keyboard.
func render(chatID int64, reply service.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	switch {
	case len(reply.Options) > 0:
		msg.ReplyMarkup = optionsKeyboard(reply.Options, reply.Columns)
	case reply.Confirm:
		msg.ReplyMarkup = confirmKeyboard()
	case reply.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}
	return msg
}

// optionsKeyboard lays options out in rows of columns buttons.
func optionsKeyboard(options []string, columns int) tgbotapi.ReplyKeyboardMarkup {
	if columns < 1 {
		columns = 1
	}

	var rows [][]tgbotapi.KeyboardButton
	for i := 0; i < len(options); i += columns {
		end := min(i+columns, len(options))
		row := make([]tgbotapi.KeyboardButton, 0, end-i)
		for _, option := range options[i:end] {
			row = append(row, tgbotapi.NewKeyboardButton(option))
		}
		rows = append(rows, row)
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	return keyboard
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirmar", string(service.DecisionConfirm)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancelar", string(service.DecisionCancel)),
		),
	)
}
