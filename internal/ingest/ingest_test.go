package ingest

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borjamrd/hormiwita/internal/model"
)

func dataURI(mime, content string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func TestDecode_CSV(t *testing.T) {
	content := "Fecha;Concepto;Importe\n" +
		"01/05/2026;NOMINA EMPRESA SL;1850,00\n" +
		"03/05/2026;NETFLIX;-15,99\n" +
		"05/05/2026;MERCADONA;-84,20\n"

	decoder := NewDecoder()
	decoded, err := decoder.Decode(dataURI(MIMECSV, content), "mayo.csv")

	require.NoError(t, err)
	require.Len(t, decoded.Rows, 3)
	assert.Equal(t, "NOMINA EMPRESA SL", decoded.Rows[0].Counterparty)
	assert.InDelta(t, 1850.00, decoded.Rows[0].Amount, 0.001)
	assert.InDelta(t, -15.99, decoded.Rows[1].Amount, 0.001)
	assert.Zero(t, decoded.Skipped)
}

func TestDecode_OFXByFileName(t *testing.T) {
	// MIME falls back to the .ofx extension when the browser sends a
	// generic type.
	decoder := NewDecoder()
	_, err := decoder.Decode(dataURI("application/octet-stream", "not really ofx"), "extracto.ofx")

	// Malformed OFX content surfaces as a parsing status, not a crash.
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, model.StatementErrorParsing, statusErr.Status)
}

func TestDecode_ExcelRejectedWithGuidance(t *testing.T) {
	tests := []struct {
		name string
		mime string
	}{
		{"legacy xls", MIMEExcelXLS},
		{"modern xlsx", MIMEExcelXLSX},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := NewDecoder()
			_, err := decoder.Decode(dataURI(tt.mime, "binary junk"), "extracto.xlsx")

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, model.StatementUnsupportedType, statusErr.Status)
			assert.Contains(t, statusErr.Feedback, "CSV")
		})
	}
}

func TestDecode_UnknownMIMERejectedWithoutInspection(t *testing.T) {
	decoder := NewDecoder()
	_, err := decoder.Decode(dataURI("application/pdf", "Concepto,Importe\nNETFLIX,-15.99\n"), "extracto.pdf")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, model.StatementUnsupportedType, statusErr.Status)
	assert.Contains(t, statusErr.Feedback, "application/pdf")
}

func TestDecode_MalformedDataURI(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"no data prefix", "text/csv;base64,Zm9v"},
		{"no payload separator", "data:text/csv;base64"},
		{"no mime type", "data:;base64,Zm9v"},
		{"wrong encoding", "data:text/csv;utf8,foo"},
		{"invalid base64", "data:text/csv;base64,!!!not-base64!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoder := NewDecoder()
			_, err := decoder.Decode(tt.uri, "extracto.csv")

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, model.StatementErrorParsing, statusErr.Status)
		})
	}
}

func TestDecode_EmptyCSV(t *testing.T) {
	decoder := NewDecoder()
	_, err := decoder.Decode(dataURI(MIMECSV, "   \n  "), "vacio.csv")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, model.StatementNoData, statusErr.Status)
}

func TestDecode_CSVWithoutAmounts(t *testing.T) {
	content := "Concepto;Notas\nNETFLIX;ocio\nMERCADONA;compra\n"

	decoder := NewDecoder()
	_, err := decoder.Decode(dataURI(MIMECSV, content), "sin-importes.csv")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, model.StatementNoData, statusErr.Status)
}

func TestStatusError_Message(t *testing.T) {
	err := &StatusError{Status: model.StatementNoData, Feedback: "sin movimientos"}
	assert.Equal(t, "NoDataIdentified: sin movimientos", err.Error())
}
