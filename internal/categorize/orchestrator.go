// Package categorize merges oracle-suggested category labels onto
// aggregated provider summaries, with a deterministic fallback when the
// oracle fails or returns malformed output.
package categorize

import (
	"context"
	"log/slog"
	"strings"

	"github.com/borjamrd/hormiwita/internal/model"
	"github.com/borjamrd/hormiwita/internal/service"
)

// Fallback categories assigned when the oracle cannot be used.
const (
	FallbackIncomeCategory  = "Otros Ingresos"
	FallbackExpenseCategory = "Otros Gastos"
)

// DefaultLanguage is used when the caller does not specify one.
const DefaultLanguage = "es"

// Orchestrator coordinates batched categorization calls against the
// classification oracle.
type Orchestrator struct {
	oracle service.ClassificationOracle
	logger *slog.Logger
}

// NewOrchestrator creates a categorization orchestrator.
func NewOrchestrator(oracle service.ClassificationOracle, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{oracle: oracle, logger: logger}
}

// Categorize labels every item in one batch. The oracle is called once
// per batch, never per item, so the label vocabulary stays consistent
// across providers. The returned degraded flag is true when the fallback
// path labeled any item; an oracle failure never surfaces as an error.
// Input items are never mutated and empty input returns an empty result
// without calling the oracle.
func (o *Orchestrator) Categorize(ctx context.Context, items []model.ProviderSummary, itemType service.ItemType, existingCategories []string, language string) ([]model.CategorizedItem, bool) {
	if len(items) == 0 {
		return []model.CategorizedItem{}, false
	}
	if language == "" {
		language = DefaultLanguage
	}

	suggested, err := o.oracle.Categorize(ctx, items, itemType, existingCategories, language)
	if err != nil {
		o.logger.Warn("classification oracle failed, applying fallback categories",
			"item_type", itemType,
			"items", len(items),
			"error", err)
		return fallbackAll(items, itemType), true
	}
	if len(suggested) == 0 {
		o.logger.Warn("classification oracle returned no items, applying fallback categories",
			"item_type", itemType,
			"items", len(items))
		return fallbackAll(items, itemType), true
	}

	// Match oracle output to inputs by provider name; order-independent.
	byProvider := make(map[string]string, len(suggested))
	for _, item := range suggested {
		category := strings.TrimSpace(item.SuggestedCategory)
		if category == "" {
			continue
		}
		byProvider[strings.ToLower(strings.TrimSpace(item.ProviderName))] = category
	}

	degraded := false
	out := make([]model.CategorizedItem, 0, len(items))
	for _, item := range items {
		category, ok := byProvider[strings.ToLower(item.ProviderName)]
		if !ok {
			category = fallbackCategory(itemType)
			degraded = true
		}
		out = append(out, model.CategorizedItem{
			ProviderSummary:   item,
			SuggestedCategory: category,
		})
	}

	if degraded {
		o.logger.Warn("classification oracle output was incomplete",
			"item_type", itemType,
			"items", len(items),
			"matched", len(byProvider))
	}
	return out, degraded
}

func fallbackCategory(itemType service.ItemType) string {
	if itemType == service.ItemTypeIncome {
		return FallbackIncomeCategory
	}
	return FallbackExpenseCategory
}

func fallbackAll(items []model.ProviderSummary, itemType service.ItemType) []model.CategorizedItem {
	category := fallbackCategory(itemType)
	out := make([]model.CategorizedItem, 0, len(items))
	for _, item := range items {
		out = append(out, model.CategorizedItem{
			ProviderSummary:   item,
			SuggestedCategory: category,
		})
	}
	return out
}
