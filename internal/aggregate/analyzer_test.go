package aggregate

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borjamrd/hormiwita/internal/ingest"
	"github.com/borjamrd/hormiwita/internal/model"
)

func csvDataURI(content string) string {
	return "data:" + ingest.MIMECSV + ";base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func TestAnalyze_Success(t *testing.T) {
	content := "Fecha;Concepto;Importe\n" +
		"01/05/2026;NOMINA EMPRESA SL;1850,00\n" +
		"03/05/2026;NETFLIX;-15,99\n" +
		"05/05/2026;MERCADONA;-84,20\n" +
		"09/05/2026;MERCADONA;-31,15\n"

	analyzer := NewAnalyzer(nil)
	summary, err := analyzer.Analyze(context.Background(), csvDataURI(content), "mayo.csv")

	require.NoError(t, err)
	assert.Equal(t, model.StatementSuccess, summary.Status)
	assert.True(t, summary.Status.AllowsCategorization())
	require.Len(t, summary.IncomeByProvider, 1)
	require.Len(t, summary.ExpensesByProvider, 2)
	assert.InDelta(t, 1850.00, summary.TotalIncome, 0.001)
	assert.InDelta(t, 131.34, summary.TotalExpenses, 0.001)
	assert.Equal(t, 2, summary.ExpensesByProvider[1].TransactionCount)
	assert.Zero(t, summary.UnassignedTransactions)
	assert.NotEmpty(t, summary.Feedback)
}

func TestAnalyze_PartialData(t *testing.T) {
	content := "Fecha;Concepto;Importe\n" +
		"01/05/2026;MERCADONA;-84,20\n" +
		"saldo anterior;;\n"

	analyzer := NewAnalyzer(nil)
	summary, err := analyzer.Analyze(context.Background(), csvDataURI(content), "mayo.csv")

	require.NoError(t, err)
	assert.Equal(t, model.StatementPartialData, summary.Status)
	assert.True(t, summary.Status.AllowsCategorization())
	assert.Equal(t, 1, summary.UnassignedTransactions)
}

func TestAnalyze_RejectionBecomesSummary(t *testing.T) {
	tests := []struct {
		name    string
		dataURI string
		file    string
		status  model.StatementStatus
	}{
		{
			name:    "malformed data URI",
			dataURI: "definitely-not-a-data-uri",
			file:    "extracto.csv",
			status:  model.StatementErrorParsing,
		},
		{
			name:    "empty csv",
			dataURI: csvDataURI("  "),
			file:    "vacio.csv",
			status:  model.StatementNoData,
		},
		{
			name:    "excel upload",
			dataURI: "data:" + ingest.MIMEExcelXLSX + ";base64," + base64.StdEncoding.EncodeToString([]byte("junk")),
			file:    "extracto.xlsx",
			status:  model.StatementUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := NewAnalyzer(nil)
			summary, err := analyzer.Analyze(context.Background(), tt.dataURI, tt.file)

			require.NoError(t, err)
			assert.Equal(t, tt.status, summary.Status)
			assert.False(t, summary.Status.AllowsCategorization())
			assert.NotEmpty(t, summary.Feedback)
			assert.Empty(t, summary.IncomeByProvider)
			assert.Empty(t, summary.ExpensesByProvider)
		})
	}
}

func TestAnalyze_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	analyzer := NewAnalyzer(nil)
	_, err := analyzer.Analyze(ctx, csvDataURI("Concepto;Importe\nNETFLIX;-15,99\n"), "mayo.csv")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_CurrencyValidation(t *testing.T) {
	content := "Concepto;Importe\nMERCADONA;-84,20 €\n"

	analyzer := NewAnalyzer(nil)
	summary, err := analyzer.Analyze(context.Background(), csvDataURI(content), "mayo.csv")

	require.NoError(t, err)
	assert.Equal(t, "EUR", summary.DetectedCurrency)
}

func TestValidCurrency(t *testing.T) {
	assert.Equal(t, "EUR", validCurrency("EUR"))
	assert.Equal(t, "USD", validCurrency("USD"))
	assert.Equal(t, "", validCurrency("NOPE"))
	assert.Equal(t, "", validCurrency(""))
}
