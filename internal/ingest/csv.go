package ingest

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/borjamrd/hormiwita/internal/model"
)

// decodeCSV parses statement rows out of CSV content. The decoder does
// not assume a fixed column layout: per row it takes the last field that
// parses as an amount and the longest remaining text field as the
// counterparty. Spanish bank exports with ';' separators and comma
// decimals are handled.
func decodeCSV(data []byte) (*Decoded, error) {
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, &StatusError{
			Status:   model.StatementNoData,
			Feedback: "El archivo está vacío. Sube un extracto con movimientos.",
		}
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = detectSeparator(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &StatusError{
			Status:   model.StatementErrorParsing,
			Feedback: "El archivo CSV está mal formado y no se pudo interpretar.",
		}
	}

	decoded := &Decoded{Currency: detectCurrency(content)}
	for i, record := range records {
		row, ok := parseRecord(record)
		if !ok {
			// A first row with no numeric field at all is a header;
			// anything else that fails to parse is a lost movement.
			if i > 0 || hasNumericField(record) {
				decoded.Skipped++
			}
			continue
		}
		decoded.Rows = append(decoded.Rows, row)
	}

	if len(decoded.Rows) == 0 {
		return nil, &StatusError{
			Status:   model.StatementNoData,
			Feedback: "No se identificaron movimientos en el archivo. Comprueba que el CSV contiene una columna de concepto y otra de importe.",
		}
	}
	return decoded, nil
}

// hasNumericField reports whether any field of the record parses as an
// amount. Header rows have none.
func hasNumericField(record []string) bool {
	for _, field := range record {
		if _, ok := parseAmount(field); ok {
			return true
		}
	}
	return false
}

// parseRecord extracts a counterparty and a signed amount from one CSV
// record. The amount is the last field that parses as a number; the
// counterparty is the longest non-numeric, non-date field.
func parseRecord(record []string) (Row, bool) {
	amountIdx := -1
	var amount float64
	for i := len(record) - 1; i >= 0; i-- {
		if v, ok := parseAmount(record[i]); ok {
			amountIdx = i
			amount = v
			break
		}
	}
	if amountIdx < 0 {
		return Row{}, false
	}

	var counterparty string
	for i, field := range record {
		if i == amountIdx {
			continue
		}
		field = strings.TrimSpace(field)
		if field == "" || looksLikeDate(field) {
			continue
		}
		if _, numeric := parseAmount(field); numeric {
			continue
		}
		if len(field) > len(counterparty) {
			counterparty = field
		}
	}
	if counterparty == "" {
		return Row{}, false
	}
	return Row{Counterparty: counterparty, Amount: amount}, true
}

// parseAmount parses a money value, tolerating currency symbols,
// thousands separators and comma decimals.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "€$£ ")
	if s == "" {
		return 0, false
	}

	// "1.234,56" / "1234,56" use comma decimals; "1,234.56" uses points
	if strings.Contains(s, ",") && strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// looksLikeDate reports whether a field is a date-shaped value such as
// 2024-05-01 or 01/05/2024.
func looksLikeDate(s string) bool {
	separators := 0
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || r == '/' || r == '.':
			separators++
		default:
			return false
		}
	}
	return separators == 2 && digits >= 4
}

// detectSeparator picks the CSV delimiter: Spanish exports commonly use
// ';' because ',' is the decimal separator.
func detectSeparator(content string) rune {
	firstLine, _, _ := strings.Cut(content, "\n")
	if strings.Count(firstLine, ";") > strings.Count(firstLine, ",") {
		return ';'
	}
	return ','
}

// detectCurrency looks for an explicit currency marker in the content.
func detectCurrency(content string) string {
	upper := strings.ToUpper(content)
	switch {
	case strings.Contains(content, "€") || strings.Contains(upper, "EUR"):
		return "EUR"
	case strings.Contains(upper, "USD"):
		return "USD"
	case strings.Contains(content, "$"):
		return "USD"
	case strings.Contains(upper, "GBP") || strings.Contains(content, "£"):
		return "GBP"
	default:
		return ""
	}
}
