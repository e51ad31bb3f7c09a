package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivanoskov/formbot/internal/model"
)

// Entry is a record that was handed to the form during this process lifetime.
type Entry struct {
	ID          string
	UserID      int64
	Record      model.Record
	Simulated   bool
	SubmittedAt time.Time
}

// Ledger keeps submitted records in memory, per user, for /resumo.
// Nothing survives a restart.
type Ledger struct {
	mu      sync.RWMutex
	entries map[int64][]Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[int64][]Entry)}
}

// Add appends a submitted record for userID.
func (l *Ledger) Add(userID int64, rec model.Record, simulated bool, at time.Time) Entry {
	e := Entry{
		ID:          uuid.New().String(),
		UserID:      userID,
		Record:      rec,
		Simulated:   simulated,
		SubmittedAt: at,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[userID] = append(l.entries[userID], e)
	return e
}

// Entries returns a copy of userID's entries in submission order.
func (l *Ledger) Entries(userID int64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries[userID]...)
}

// GroupStats is the total of one type or category.
type GroupStats struct {
	Name   string
	Amount decimal.Decimal
	Count  int
	Share  float64 // percent of the report total
}

// Report summarizes a user's ledger. Volume is the sum of all amounts and
// only serves as the base of the shares.
type Report struct {
	Count      int
	Inflow     decimal.Decimal
	Outflow    decimal.Decimal
	Volume     decimal.Decimal
	ByType     []GroupStats
	ByCategory []GroupStats
	First      time.Time
	Last       time.Time
}

// Report aggregates userID's entries by type and by category.
func (l *Ledger) Report(userID int64) Report {
	entries := l.Entries(userID)

	report := Report{
		Count:   len(entries),
		Inflow:  decimal.Zero,
		Outflow: decimal.Zero,
		Volume:  decimal.Zero,
	}
	byType := make(map[string]*GroupStats)
	byCategory := make(map[string]*GroupStats)

	for i, e := range entries {
		if i == 0 {
			report.First = e.SubmittedAt
		}
		report.Last = e.SubmittedAt
		report.Volume = report.Volume.Add(e.Record.Amount)
		if model.IsExpense(e.Record.Type) {
			report.Outflow = report.Outflow.Add(e.Record.Amount)
		} else {
			report.Inflow = report.Inflow.Add(e.Record.Amount)
		}
		addTo(byType, e.Record.Type, e.Record.Amount)
		addTo(byCategory, e.Record.Category, e.Record.Amount)
	}

	report.ByType = rankGroups(byType, report.Volume)
	report.ByCategory = rankGroups(byCategory, report.Volume)
	return report
}

// Balance is money in minus money out.
func (r Report) Balance() decimal.Decimal {
	return r.Inflow.Sub(r.Outflow)
}

func addTo(groups map[string]*GroupStats, name string, amount decimal.Decimal) {
	g, ok := groups[name]
	if !ok {
		g = &GroupStats{Name: name, Amount: decimal.Zero}
		groups[name] = g
	}
	g.Amount = g.Amount.Add(amount)
	g.Count++
}

// rankGroups computes shares and sorts by amount, largest first.
func rankGroups(groups map[string]*GroupStats, total decimal.Decimal) []GroupStats {
	stats := make([]GroupStats, 0, len(groups))
	for _, g := range groups {
		if total.IsPositive() {
			g.Share = g.Amount.Div(total).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		stats = append(stats, *g)
	}

	sort.Slice(stats, func(i, j int) bool {
		if c := stats[i].Amount.Cmp(stats[j].Amount); c != 0 {
			return c > 0
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// Text renders the report as a Markdown chat message.
func (r Report) Text() string {
	if r.Count == 0 {
		return "📭 Nenhuma transação registrada nesta sessão do bot.\n\nDigite /novo para registrar uma."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Resumo* (%d transações)\n\n", r.Count)
	fmt.Fprintf(&b, "🟢 Entradas: R$ %s\n", r.Inflow.StringFixed(2))
	fmt.Fprintf(&b, "🔴 Despesas: R$ %s\n", r.Outflow.StringFixed(2))
	fmt.Fprintf(&b, "⚖️ Balanço: R$ %s\n\n", r.Balance().StringFixed(2))

	b.WriteString("*Por tipo:*\n")
	for _, g := range r.ByType {
		fmt.Fprintf(&b, "• %s: R$ %s (%.1f%%)\n", escapeMarkdown(g.Name), g.Amount.StringFixed(2), g.Share)
	}

	b.WriteString("\n*Por categoria:*\n")
	for _, g := range r.ByCategory {
		fmt.Fprintf(&b, "• %s: R$ %s (%.1f%%)\n", escapeMarkdown(g.Name), g.Amount.StringFixed(2), g.Share)
	}
	return b.String()
}
