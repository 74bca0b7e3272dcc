package forecast

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/borjamrd/hormiwita/internal/model"
)

// ForecastMonths is the fixed length of the projection series.
const ForecastMonths = 12

var spanishMonths = [12]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// GenerateForecastData projects the user's monthly savings scenarios as
// cumulative series over exactly 12 consecutive calendar months starting
// from the month of now. Accumulation is linear (not compounding) and
// kept in full precision; rounding to the nearest integer happens only
// when emitting each point.
func GenerateForecastData(profile model.UserProfile, now time.Time) []model.ForecastPoint {
	var expenseItems []model.CategorizedItem
	if profile.ExpensesIncomeSummary != nil {
		expenseItems = profile.ExpensesIncomeSummary.CategorizedExpenseItems
	}
	scenario := CalculateMonthlySavings(expenseItems)

	monthlySimple := decimal.NewFromFloat(scenario.Simple)
	monthlyModerate := decimal.NewFromFloat(scenario.Moderate)
	monthlyMax := decimal.NewFromFloat(scenario.Max)

	cumSimple := decimal.Zero
	cumModerate := decimal.Zero
	cumMax := decimal.Zero

	points := make([]model.ForecastPoint, 0, ForecastMonths)
	year, month, _ := now.Date()
	current := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < ForecastMonths; i++ {
		cumSimple = cumSimple.Add(monthlySimple)
		cumModerate = cumModerate.Add(monthlyModerate)
		cumMax = cumMax.Add(monthlyMax)

		points = append(points, model.ForecastPoint{
			Month:          monthLabel(current),
			AhorroSimple:   cumSimple.Round(0).IntPart(),
			AhorroModerado: cumModerate.Round(0).IntPart(),
			AhorroMaximo:   cumMax.Round(0).IntPart(),
		})
		current = current.AddDate(0, 1, 0)
	}

	return points
}

func monthLabel(t time.Time) string {
	return fmt.Sprintf("%s %d", spanishMonths[t.Month()-1], t.Year())
}
