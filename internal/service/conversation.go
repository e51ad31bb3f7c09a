package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/looplab/fsm"

	"github.com/ivanoskov/formbot/internal/form"
	"github.com/ivanoskov/formbot/internal/metrics"
	"github.com/ivanoskov/formbot/internal/model"
	"github.com/ivanoskov/formbot/internal/session"
)

// Decision is the payload of the inline confirm/cancel buttons.
type Decision string

const (
	DecisionConfirm Decision = "confirmar"
	DecisionCancel  Decision = "cancelar"
)

const (
	eventAdvance = "advance"
	eventConfirm = "confirm"
	eventCancel  = "cancel"
)

// transitions is the whole state machine; every move goes through it.
var transitions = fsm.Events{
	{Name: eventAdvance, Src: []string{string(model.StateSelectType)}, Dst: string(model.StateEnterAmount)},
	{Name: eventAdvance, Src: []string{string(model.StateEnterAmount)}, Dst: string(model.StateSelectCategory)},
	{Name: eventAdvance, Src: []string{string(model.StateSelectCategory)}, Dst: string(model.StateEnterDescription)},
	{Name: eventAdvance, Src: []string{string(model.StateEnterDescription)}, Dst: string(model.StateEnterDate)},
	{Name: eventAdvance, Src: []string{string(model.StateEnterDate)}, Dst: string(model.StateAwaitingConfirmation)},
	{Name: eventConfirm, Src: []string{string(model.StateAwaitingConfirmation)}, Dst: string(model.StateConfirmed)},
	{Name: eventCancel, Src: []string{
		string(model.StateSelectType),
		string(model.StateEnterAmount),
		string(model.StateSelectCategory),
		string(model.StateEnterDescription),
		string(model.StateEnterDate),
		string(model.StateAwaitingConfirmation),
	}, Dst: string(model.StateCancelled)},
}

// transition fires event from the given state and returns the resulting state.
func transition(ctx context.Context, from model.State, event string) (model.State, error) {
	machine := fsm.NewFSM(string(from), transitions, nil)
	if err := machine.Event(ctx, event); err != nil {
		return from, err
	}
	return model.State(machine.Current()), nil
}

// step binds an input state to its field, its validator and the reply sent
// once the input is accepted.
type step struct {
	field    model.Field
	validate Validator
	reply    func(echo string, sess model.Session) Reply
}

var steps = map[model.State]step{
	model.StateSelectType: {
		field:    model.FieldType,
		validate: ValidateType,
		reply: func(echo string, _ model.Session) Reply {
			return Reply{
				Text: fmt.Sprintf("✅ Tipo selecionado: *%s*\n\n"+
					"*2/5* - Digite o valor em reais (R$):\n"+
					"Exemplo: 150.50 ou 1500", escapeMarkdown(echo)),
				Markdown:       true,
				RemoveKeyboard: true,
			}
		},
	},
	model.StateEnterAmount: {
		field:    model.FieldAmount,
		validate: ValidateAmount,
		reply: func(echo string, _ model.Session) Reply {
			return Reply{
				Text:     fmt.Sprintf("✅ Valor registrado: *R$ %s*\n\n*3/5* - Selecione a categoria:", echo),
				Markdown: true,
				Options:  model.Categories,
				Columns:  3,
			}
		},
	},
	model.StateSelectCategory: {
		field:    model.FieldCategory,
		validate: ValidateCategory,
		reply: func(echo string, _ model.Session) Reply {
			return Reply{
				Text: fmt.Sprintf("✅ Categoria selecionada: *%s*\n\n"+
					"*4/5* - Digite uma descrição ou observação:", escapeMarkdown(echo)),
				Markdown:       true,
				RemoveKeyboard: true,
			}
		},
	},
	model.StateEnterDescription: {
		field:    model.FieldDescription,
		validate: ValidateDescription,
		reply: func(echo string, _ model.Session) Reply {
			return Reply{
				Text: fmt.Sprintf("✅ Descrição registrada: *%s*\n\n"+
					"*5/5* - Digite a data do lançamento ou envie 'hoje' para usar a data atual:\n"+
					"Formato: DD/MM/AAAA ou 'hoje'", escapeMarkdown(echo)),
				Markdown: true,
			}
		},
	},
	model.StateEnterDate: {
		field:    model.FieldDate,
		validate: ValidateDate,
		reply: func(_ string, sess model.Session) Reply {
			return Reply{Text: summaryText(sess.Record), Markdown: true, Confirm: true}
		},
	},
}

// Reply is what the engine wants said back to the user. The transport decides
// how to render keyboards and buttons.
type Reply struct {
	Text           string
	Markdown       bool
	Options        []string // reply keyboard choices
	Columns        int      // choices per keyboard row
	Confirm        bool     // attach the confirm/cancel buttons
	RemoveKeyboard bool
}

// Empty reports whether there is nothing to send.
func (r Reply) Empty() bool {
	return r.Text == ""
}

// Submitter sends a completed record to the destination form.
type Submitter interface {
	Submit(ctx context.Context, rec model.Record, mapping form.FieldMapping) form.Result
}

// ConversationEngine drives each user's session through the steps, the
// confirmation and the submission.
type ConversationEngine struct {
	store     *session.Store
	submitter Submitter
	mapping   form.FieldMapping
	ledger    *Ledger
	logger    *slog.Logger
	now       func() time.Time
}

// NewConversationEngine creates an engine. A nil ledger or logger gets a default.
func NewConversationEngine(store *session.Store, submitter Submitter, mapping form.FieldMapping, ledger *Ledger, logger *slog.Logger) *ConversationEngine {
	if ledger == nil {
		ledger = NewLedger()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationEngine{
		store:     store,
		submitter: submitter,
		mapping:   mapping,
		ledger:    ledger,
		logger:    logger,
		now:       time.Now,
	}
}

// Welcome answers /start.
func (e *ConversationEngine) Welcome() Reply {
	return Reply{Text: msgWelcome, Markdown: true}
}

// Help answers /ajuda.
func (e *ConversationEngine) Help() Reply {
	return Reply{Text: msgHelp, Markdown: true}
}

// Begin starts a new transaction for userID, discarding any unfinished one.
func (e *ConversationEngine) Begin(userID int64) Reply {
	if old, ok := e.store.Get(userID); ok {
		e.logger.Info("discarding unfinished session", "user_id", userID, "session_id", old.ID, "state", old.State)
	}
	sess := e.store.Create(userID)
	metrics.SessionsActive.Set(float64(e.store.Len()))
	e.logger.Info("session started", "user_id", userID, "session_id", sess.ID)

	return Reply{
		Text: "💰 *Novo Lançamento Financeiro*\n\n" +
			"Vamos registrar sua transação passo a passo.\n\n" +
			"*1/5* - Selecione o tipo de lançamento:",
		Markdown: true,
		Options:  model.TransactionTypes,
		Columns:  2,
	}
}

// Cancel answers /cancelar at any point of the conversation.
func (e *ConversationEngine) Cancel(ctx context.Context, userID int64) Reply {
	if e.cancel(ctx, userID) {
		return Reply{Text: msgSubmitting}
	}
	return Reply{
		Text:           "❌ Operação cancelada.\n\nDigite /novo para registrar uma nova transação.",
		RemoveKeyboard: true,
	}
}

// cancel destroys the user's session. It reports true, leaving the session in
// place, when a submission is already in flight.
func (e *ConversationEngine) cancel(ctx context.Context, userID int64) (inFlight bool) {
	sess, ok := e.store.Get(userID)
	if !ok {
		return false
	}
	if _, err := transition(ctx, sess.State, eventCancel); err != nil {
		return true
	}
	if e.store.Destroy(userID) {
		metrics.SessionsActive.Set(float64(e.store.Len()))
		e.logger.Info("session cancelled", "user_id", userID, "session_id", sess.ID, "state", sess.State)
	}
	return false
}

// HandleText routes a free-text turn to the current step of userID's session.
// Rejected input leaves the session untouched.
func (e *ConversationEngine) HandleText(ctx context.Context, userID int64, text string, receivedAt time.Time) Reply {
	sess, ok := e.store.Get(userID)
	if !ok {
		return Reply{Text: msgNoSession}
	}

	switch sess.State {
	case model.StateAwaitingConfirmation:
		return Reply{Text: msgUseButtons}
	case model.StateConfirmed:
		return Reply{Text: msgSubmitting}
	}

	st, ok := steps[sess.State]
	if !ok {
		e.logger.Error("session in a state without a step", "user_id", userID, "state", sess.State)
		return Reply{Text: msgNoSession}
	}

	outcome := st.validate(text, StepContext{ReceivedAt: receivedAt})
	if !outcome.Valid {
		metrics.ValidationFailures.WithLabelValues(string(sess.State)).Inc()
		e.logger.Debug("input rejected", "user_id", userID, "state", sess.State)
		return Reply{Text: outcome.Reason}
	}

	next, err := transition(ctx, sess.State, eventAdvance)
	if err != nil {
		e.logger.Error("transition failed", "user_id", userID, "state", sess.State, "error", err)
		return Reply{Text: msgNoSession}
	}

	applied := false
	updated, ok := e.store.Update(userID, func(s *model.Session) {
		// another turn of the same user may have moved the session meanwhile
		if s.ID != sess.ID || s.State != sess.State {
			return
		}
		outcome.Apply(&s.Record)
		s.Filled = append(s.Filled, st.field)
		s.State = next
		applied = true
	})
	if !ok {
		return Reply{Text: msgNoSession}
	}
	if !applied {
		return Reply{}
	}

	e.logger.Debug("step completed", "user_id", userID, "session_id", updated.ID, "field", st.field, "next", next)
	return st.reply(outcome.Echo, updated)
}

// HandleDecision handles a press on the confirm or cancel button.
func (e *ConversationEngine) HandleDecision(ctx context.Context, userID int64, d Decision) Reply {
	switch d {
	case DecisionCancel:
		if e.cancel(ctx, userID) {
			return Reply{Text: msgSubmitting}
		}
		return Reply{
			Text:     "❌ *Transação cancelada*\n\nDigite /novo para registrar uma nova transação.",
			Markdown: true,
		}
	case DecisionConfirm:
		return e.confirm(ctx, userID)
	}
	e.logger.Warn("unknown decision", "user_id", userID, "decision", d)
	return Reply{}
}

func (e *ConversationEngine) confirm(ctx context.Context, userID int64) Reply {
	sess, ok := e.store.Get(userID)
	if !ok || !sess.Complete() {
		return Reply{Text: msgNoData}
	}
	next, err := transition(ctx, sess.State, eventConfirm)
	if err != nil {
		return Reply{Text: msgNoData}
	}

	// claim the session so a second press cannot submit it again
	claimed := false
	e.store.Update(userID, func(s *model.Session) {
		if s.ID == sess.ID && s.State == sess.State {
			s.State = next
			claimed = true
		}
	})
	if !claimed {
		return Reply{Text: msgNoData}
	}

	res := e.submitter.Submit(ctx, sess.Record, e.mapping)

	// the session goes away whatever the outcome; the user starts over on failure
	e.store.DestroySession(userID, sess.ID)
	metrics.SessionsActive.Set(float64(e.store.Len()))

	log := e.logger.With("user_id", userID, "session_id", sess.ID,
		"status", res.StatusCode, "simulated", res.Simulated)
	if !res.OK {
		log.Error("failed to submit transaction", "error", res.Err)
		return Reply{
			Text: "❌ *Erro ao registrar transação*\n\n" +
				"Houve um problema ao enviar os dados. Tente novamente.\n\n" +
				"Digite /novo para tentar novamente.",
			Markdown: true,
		}
	}

	log.Info("transaction submitted", "indicator", res.Indicator)
	e.ledger.Add(userID, sess.Record, res.Simulated, e.now())
	return Reply{
		Text: "✅ *Transação registrada com sucesso!*\n\n" +
			"Seus dados foram enviados para o sistema financeiro.\n\n" +
			"Digite /novo para registrar outra transação.",
		Markdown: true,
	}
}

// Summary answers /resumo with the user's submissions since the bot started.
func (e *ConversationEngine) Summary(userID int64) (Reply, Report) {
	report := e.ledger.Report(userID)
	return Reply{Text: report.Text(), Markdown: true}, report
}

// Session exposes a copy of userID's session.
func (e *ConversationEngine) Session(userID int64) (model.Session, bool) {
	return e.store.Get(userID)
}

func summaryText(r model.Record) string {
	return fmt.Sprintf("📋 *Resumo da Transação*\n\n"+
		"• *Tipo:* %s\n"+
		"• *Valor:* R$ %s\n"+
		"• *Categoria:* %s\n"+
		"• *Descrição:* %s\n"+
		"• *Data:* %s\n\n"+
		"Confirma o envio desta transação?",
		escapeMarkdown(r.Type),
		r.Amount.StringFixed(2),
		escapeMarkdown(r.Category),
		escapeMarkdown(r.Description),
		escapeMarkdown(r.Date),
	)
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escapeMarkdown escapes user text for Telegram's legacy Markdown mode.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

const (
	msgNoSession  = "Digite /novo para registrar uma nova transação."
	msgUseButtons = "Use os botões ✅ Confirmar ou ❌ Cancelar acima para concluir a transação."
	msgSubmitting = "⏳ Sua transação já está sendo enviada. Aguarde."
	msgNoData     = "❌ Dados não encontrados. Inicie novamente com /novo"

	msgWelcome = "🏦 *Organizador Financeiro Bot*\n\n" +
		"Olá! Eu sou seu assistente financeiro pessoal.\n" +
		"Posso ajudá-lo a registrar suas transações financeiras de forma rápida e organizada.\n\n" +
		"*Comandos disponíveis:*\n" +
		"• /novo - Registrar nova transação\n" +
		"• /ajuda - Ver todos os comandos\n" +
		"• /cancelar - Cancelar operação atual\n" +
		"• /resumo - Ver o resumo das transações enviadas\n\n" +
		"Para começar, digite /novo para registrar uma nova transação financeira."

	msgHelp = "🆘 *Ajuda - Organizador Financeiro*\n\n" +
		"*Comandos disponíveis:*\n\n" +
		"• /start - Iniciar o bot\n" +
		"• /novo - Registrar nova transação financeira\n" +
		"• /ajuda - Mostrar esta mensagem de ajuda\n" +
		"• /cancelar - Cancelar operação atual\n" +
		"• /resumo - Resumo das transações enviadas\n\n" +
		"*Como usar:*\n" +
		"1. Digite /novo para iniciar um novo registro\n" +
		"2. Siga as instruções passo a passo\n" +
		"3. Confirme os dados antes do envio\n\n" +
		"*Tipos de lançamento disponíveis:*\n" +
		"• Entrada • Empréstimo • Despesa Débito\n" +
		"• Despesa Crédito • Despesa Pix • Saldo\n\n" +
		"O bot irá guiá-lo através de cada etapa do processo!"
)
