// Package forecast computes deterministic savings scenarios and the
// cumulative monthly projection derived from categorized expenses.
package forecast

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/borjamrd/hormiwita/internal/model"
)

// subscriptionKeywords marks providers as subscription-like by
// case-insensitive substring match on the provider name.
var subscriptionKeywords = []string{
	"netflix",
	"spotify",
	"hbo",
	"disney",
	"prime",
	"dazn",
	"apple",
	"gym",
	"gimnasio",
	"fitness",
	"club",
	"suscripcion",
	"suscripción",
	"subscription",
}

// nonEssentialCategories is the fixed set of categories whose expenses
// count as cuttable when the provider is not subscription-like.
var nonEssentialCategories = map[string]bool{
	"restaurantes y ocio":    true,
	"ocio y entretenimiento": true,
	"entretenimiento":        true,
	"restaurantes":           true,
	"compras online":         true,
	"viajes":                 true,
	"moda y complementos":    true,
	"ocio":                   true,
}

// cutPolicy is one scenario's fixed percentage table.
type cutPolicy struct {
	subscription float64
	nonEssential float64
}

var (
	simplePolicy   = cutPolicy{subscription: 0.50, nonEssential: 0.15}
	moderatePolicy = cutPolicy{subscription: 0.80, nonEssential: 0.40}
	maxPolicy      = cutPolicy{subscription: 1.00, nonEssential: 0.75}
)

// CalculateMonthlySavings computes the three savings scenarios from the
// categorized expense items. The computation is pure: identical input
// yields bit-identical output, with no randomness and no external calls.
func CalculateMonthlySavings(expenseItems []model.CategorizedItem) model.SavingsScenario {
	subscriptions, nonEssentials := splitBuckets(expenseItems)

	scenario := model.SavingsScenario{}
	scenario.Simple, scenario.SimpleDetails = applyPolicy(subscriptions, nonEssentials, simplePolicy)
	scenario.Moderate, scenario.ModerateDetails = applyPolicy(subscriptions, nonEssentials, moderatePolicy)
	scenario.Max, scenario.MaxDetails = applyPolicy(subscriptions, nonEssentials, maxPolicy)
	return scenario
}

// splitBuckets partitions expenses into the subscription-like and
// non-essential buckets, preserving input order. The subscription
// keyword test runs first and wins even when the item's category is also
// non-essential; a provider name that merely contains a keyword (say,
// "Gymnasium Supplies Inc.") therefore lands in the subscription bucket.
// That order is part of the contract and is preserved as documented.
func splitBuckets(items []model.CategorizedItem) (subscriptions, nonEssentials []model.CategorizedItem) {
	for _, item := range items {
		switch {
		case isSubscription(item.ProviderName):
			subscriptions = append(subscriptions, item)
		case nonEssentialCategories[strings.ToLower(strings.TrimSpace(item.SuggestedCategory))]:
			nonEssentials = append(nonEssentials, item)
		}
	}
	return subscriptions, nonEssentials
}

func isSubscription(providerName string) bool {
	name := strings.ToLower(providerName)
	for _, keyword := range subscriptionKeywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// applyPolicy computes one scenario: subscription details first, then
// non-essentials, each in input order. Items whose computed cut is
// exactly zero emit no detail row.
func applyPolicy(subscriptions, nonEssentials []model.CategorizedItem, policy cutPolicy) (float64, []model.ExpenseRemovedDetail) {
	total := decimal.Zero
	var details []model.ExpenseRemovedDetail

	appendCut := func(item model.CategorizedItem, pct float64, cutType model.CutType) {
		removed := decimal.NewFromFloat(item.TotalAmount).Mul(decimal.NewFromFloat(pct))
		if removed.IsZero() {
			return
		}
		total = total.Add(removed)
		amount, _ := removed.Float64()
		details = append(details, model.ExpenseRemovedDetail{
			Description:       item.ProviderName,
			OriginalAmount:    item.TotalAmount,
			AmountRemoved:     amount,
			Type:              cutType,
			PercentageRemoved: pct * 100,
		})
	}

	for _, item := range subscriptions {
		appendCut(item, policy.subscription, model.CutSubscription)
	}
	for _, item := range nonEssentials {
		appendCut(item, policy.nonEssential, model.CutNonEssential)
	}

	out, _ := total.Float64()
	return out, details
}
