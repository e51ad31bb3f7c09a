package model

import "strings"

// TransactionTypes is the closed set of transaction kinds, in keyboard order.
var TransactionTypes = []string{
	"Entrada", "Empréstimo", "Despesa Débito",
	"Despesa Crédito", "Despesa Pix", "Saldo",
}

// Categories is the closed set of categories, in keyboard order.
var Categories = []string{
	"Restaurante", "Supermercado", "Farmácia", "Posto de Gasolina",
	"Carro", "Faculdades", "Dentista", "Luz", "Gás", "Mercado Livre",
	"IPVA", "Mariluce - Mãe", "Nubank Giulia", "Nubank Beatriz",
	"Inter Juliana", "Inter Giulia", "Mercado Pago", "Itau",
	"Animais", "Imprevisto", "Salário", "Vale", "Outros Ganhos", "Transporte",
}

// IsTransactionType reports whether v is one of TransactionTypes (exact match).
func IsTransactionType(v string) bool {
	return contains(TransactionTypes, v)
}

// IsCategory reports whether v is one of Categories (exact match).
func IsCategory(v string) bool {
	return contains(Categories, v)
}

// IsExpense reports whether the transaction type takes money out.
// Entrada, Empréstimo and Saldo bring money in.
func IsExpense(transactionType string) bool {
	return strings.HasPrefix(transactionType, "Despesa ")
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
