package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/borjamrd/hormiwita/internal/ingest"
	"github.com/borjamrd/hormiwita/internal/model"
)

// Analyzer implements the statement-analysis contract deterministically
// for the structured formats (CSV, OFX): decode, aggregate, summarize.
type Analyzer struct {
	decoder *ingest.Decoder
	logger  *slog.Logger
}

// NewAnalyzer creates a statement analyzer.
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{decoder: ingest.NewDecoder(), logger: logger}
}

// Analyze decodes an uploaded statement and produces its terminal
// summary. Rejected inputs become a summary with the matching status and
// feedback; the error return is reserved for context cancellation.
func (a *Analyzer) Analyze(ctx context.Context, fileDataURI, originalFileName string) (*model.StatementSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoded, err := a.decoder.Decode(fileDataURI, originalFileName)
	if err != nil {
		var statusErr *ingest.StatusError
		if errors.As(err, &statusErr) {
			a.logger.Info("statement rejected",
				"file", originalFileName,
				"status", statusErr.Status)
			return &model.StatementSummary{
				Status:   statusErr.Status,
				Feedback: statusErr.Feedback,
			}, nil
		}
		return nil, err
	}

	income, expenses := Aggregate(decoded.Rows)

	summary := &model.StatementSummary{
		Status:                 model.StatementSuccess,
		IncomeByProvider:       income,
		ExpensesByProvider:     expenses,
		TotalIncome:            sumTotals(income),
		TotalExpenses:          sumTotals(expenses),
		DetectedCurrency:       validCurrency(decoded.Currency),
		UnassignedTransactions: decoded.Skipped,
	}

	assigned := len(decoded.Rows)
	if decoded.Skipped > 0 {
		summary.Status = model.StatementPartialData
		summary.Feedback = fmt.Sprintf(
			"Se han identificado %d movimientos; %d filas no se pudieron interpretar.",
			assigned, decoded.Skipped)
	} else {
		summary.Feedback = fmt.Sprintf(
			"Extracto analizado correctamente: %d movimientos en %d proveedores.",
			assigned, len(income)+len(expenses))
	}

	a.logger.Info("statement analyzed",
		"file", originalFileName,
		"status", summary.Status,
		"income_providers", len(income),
		"expense_providers", len(expenses),
		"unassigned", decoded.Skipped)

	return summary, nil
}

func sumTotals(summaries []model.ProviderSummary) float64 {
	total := decimal.Zero
	for _, s := range summaries {
		total = total.Add(decimal.NewFromFloat(s.TotalAmount))
	}
	out, _ := total.Float64()
	return out
}

// validCurrency keeps only ISO codes the currency table knows about.
func validCurrency(code string) string {
	if code == "" {
		return ""
	}
	if money.GetCurrency(code) == nil {
		return ""
	}
	return code
}
