package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Field is a logical form field name.
type Field string

const (
	FieldType        Field = "type"
	FieldAmount      Field = "amount"
	FieldCategory    Field = "category"
	FieldDescription Field = "description"
	FieldDate        Field = "date"
)

// Fields lists every logical field in step order.
var Fields = []Field{FieldType, FieldAmount, FieldCategory, FieldDescription, FieldDate}

// DateLayout is the day/month/year layout used for Record.Date.
const DateLayout = "02/01/2006"

// Record is the five-field transaction collected by a conversation.
// Within a Session it is partial until every field has been filled.
type Record struct {
	Type        string          `json:"type" yaml:"type"`
	Amount      decimal.Decimal `json:"amount" yaml:"amount"`
	Category    string          `json:"category" yaml:"category"`
	Description string          `json:"description" yaml:"description"`
	Date        string          `json:"date" yaml:"date"`
}

// Value returns the form representation of a field, or "" if it is unset.
func (r Record) Value(f Field) string {
	switch f {
	case FieldType:
		return r.Type
	case FieldAmount:
		if r.Amount.IsZero() {
			return ""
		}
		return FormatAmount(r.Amount)
	case FieldCategory:
		return r.Category
	case FieldDescription:
		return r.Description
	case FieldDate:
		return r.Date
	}
	return ""
}

// FormatAmount renders an amount the way the form has always received it:
// shortest decimal form, with ".0" appended to whole numbers (150.5, 1500.0).
func FormatAmount(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
