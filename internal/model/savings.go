package model

// CutType distinguishes why an expense was included in a savings scenario.
type CutType string

// Expense cut type constants.
const (
	CutSubscription CutType = "subscription"
	CutNonEssential CutType = "nonEssential"
)

// ExpenseRemovedDetail records one expense contribution to a scenario.
type ExpenseRemovedDetail struct {
	Description       string  `json:"description"`
	OriginalAmount    float64 `json:"originalAmount"`
	AmountRemoved     float64 `json:"amountRemoved"`
	Type              CutType `json:"type"`
	PercentageRemoved float64 `json:"percentageRemoved,omitempty"`
}

// SavingsScenario holds the three deterministic monthly savings
// projections. It is recomputed fully from the categorized expense items
// on every request; it is never persisted or incrementally updated.
type SavingsScenario struct {
	Simple          float64                `json:"simple"`
	Moderate        float64                `json:"moderate"`
	Max             float64                `json:"max"`
	SimpleDetails   []ExpenseRemovedDetail `json:"simpleDetails"`
	ModerateDetails []ExpenseRemovedDetail `json:"moderateDetails"`
	MaxDetails      []ExpenseRemovedDetail `json:"maxDetails"`
}

// ForecastPoint is one month of the cumulative savings projection.
// Values are rounded to the nearest integer at output time only.
type ForecastPoint struct {
	Month          string `json:"month"`
	AhorroSimple   int64  `json:"ahorroSimple"`
	AhorroModerado int64  `json:"ahorroModerado"`
	AhorroMaximo   int64  `json:"ahorroMaximo"`
}
