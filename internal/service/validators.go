package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ivanoskov/formbot/internal/model"
)

// todayKeyword resolves to the date the input was received.
const todayKeyword = "hoje"

// inputDateLayout accepts one- or two-digit day and month.
const inputDateLayout = "2/1/2006"

// amountPattern is plain digits with an optional "." or "," decimal part. It
// keeps exponents and signs out before the text reaches the decimal parser.
var amountPattern = regexp.MustCompile(`^\d{1,15}([.,]\d{1,8})?$`)

// minAmount is one cent, the smallest amount the echo can show.
var minAmount = decimal.New(1, -2)

const (
	msgInvalidType     = "❌ Tipo inválido. Por favor, selecione uma das opções do teclado."
	msgInvalidAmount   = "❌ Valor inválido. Digite apenas números.\nExemplo: 150.50 ou 1500"
	msgInvalidCategory = "❌ Categoria inválida. Por favor, selecione uma das opções do teclado."
	msgInvalidDate     = "❌ Data inválida. Use o formato DD/MM/AAAA ou digite 'hoje'.\nExemplo: 15/07/2025"
)

// StepContext carries what a validator needs besides the raw input.
type StepContext struct {
	ReceivedAt time.Time
}

// Outcome is either a normalized value ready to be stored or a rejection.
type Outcome struct {
	Valid  bool
	Reason string // user-facing rejection message
	Echo   string // normalized value, for the acknowledgement
	apply  func(*model.Record)
}

func accept(echo string, apply func(*model.Record)) Outcome {
	return Outcome{Valid: true, Echo: echo, apply: apply}
}

func reject(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Apply writes the accepted value into r. It is a no-op for rejections.
func (o Outcome) Apply(r *model.Record) {
	if o.Valid && o.apply != nil {
		o.apply(r)
	}
}

// Validator checks the raw input of one step.
type Validator func(input string, sc StepContext) Outcome

// ValidateType accepts an exact member of model.TransactionTypes.
func ValidateType(input string, _ StepContext) Outcome {
	if !model.IsTransactionType(input) {
		return reject(msgInvalidType)
	}
	return accept(input, func(r *model.Record) { r.Type = input })
}

// ValidateAmount accepts a plain decimal of at least one cent, with either
// "." or "," as decimal separator.
func ValidateAmount(input string, _ StepContext) Outcome {
	text := strings.TrimSpace(input)
	if !amountPattern.MatchString(text) {
		return reject(msgInvalidAmount)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(text, ",", "."))
	if err != nil || amount.LessThan(minAmount) {
		return reject(msgInvalidAmount)
	}
	return accept(amount.StringFixed(2), func(r *model.Record) { r.Amount = amount })
}

// ValidateCategory accepts an exact member of model.Categories.
func ValidateCategory(input string, _ StepContext) Outcome {
	if !model.IsCategory(input) {
		return reject(msgInvalidCategory)
	}
	return accept(input, func(r *model.Record) { r.Category = input })
}

// ValidateDescription accepts anything, verbatim.
func ValidateDescription(input string, _ StepContext) Outcome {
	return accept(input, func(r *model.Record) { r.Description = input })
}

// ValidateDate accepts "hoje" in any case, resolved to sc.ReceivedAt, or a real
// calendar date written as day/month/year, which is kept as typed. Surrounding
// whitespace is rejected like any other stray character.
func ValidateDate(input string, sc StepContext) Outcome {
	if strings.ToLower(input) == todayKeyword {
		date := sc.ReceivedAt.Format(model.DateLayout)
		return accept(date, func(r *model.Record) { r.Date = date })
	}

	if _, err := time.Parse(inputDateLayout, input); err != nil {
		return reject(msgInvalidDate)
	}
	return accept(input, func(r *model.Record) { r.Date = input })
}
