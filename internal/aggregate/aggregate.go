// Package aggregate groups decoded statement rows by counterparty and
// builds the statement analysis summary.
package aggregate

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/borjamrd/hormiwita/internal/ingest"
	"github.com/borjamrd/hormiwita/internal/model"
)

// providerTotal accumulates one counterparty's rows with exact decimal
// arithmetic until the float64 boundary at output.
type providerTotal struct {
	name  string
	total decimal.Decimal
	count int
}

// Aggregate groups rows by normalized counterparty name, producing one
// summary per distinct provider with positive totals and counts >= 1.
// The income and expense sets are split by the row amount's sign; order
// of first appearance is preserved. Empty input yields empty slices.
func Aggregate(rows []ingest.Row) (income, expenses []model.ProviderSummary) {
	incomeTotals := newGrouping()
	expenseTotals := newGrouping()

	for _, row := range rows {
		name := NormalizeProvider(row.Counterparty)
		if name == "" || row.Amount == 0 {
			continue
		}
		amount := decimal.NewFromFloat(row.Amount)
		if row.Amount > 0 {
			incomeTotals.add(name, amount)
		} else {
			expenseTotals.add(name, amount.Neg())
		}
	}

	return incomeTotals.summaries(), expenseTotals.summaries()
}

// NormalizeProvider collapses whitespace and trims a counterparty name.
// Matching is case-insensitive but the first-seen casing is kept for
// display.
func NormalizeProvider(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

type grouping struct {
	byKey map[string]*providerTotal
	order []string
}

func newGrouping() *grouping {
	return &grouping{byKey: make(map[string]*providerTotal)}
}

func (g *grouping) add(name string, amount decimal.Decimal) {
	key := strings.ToLower(name)
	entry, ok := g.byKey[key]
	if !ok {
		entry = &providerTotal{name: name}
		g.byKey[key] = entry
		g.order = append(g.order, key)
	}
	entry.total = entry.total.Add(amount)
	entry.count++
}

func (g *grouping) summaries() []model.ProviderSummary {
	out := make([]model.ProviderSummary, 0, len(g.order))
	for _, key := range g.order {
		entry := g.byKey[key]
		total, _ := entry.total.Float64()
		out = append(out, model.ProviderSummary{
			ProviderName:     entry.name,
			TotalAmount:      total,
			TransactionCount: entry.count,
		})
	}
	return out
}
