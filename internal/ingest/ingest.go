// Package ingest converts an uploaded statement file's raw bytes into
// decoded transaction rows. Failures never escape as plain errors: every
// rejection carries the terminal statement status and user feedback the
// analysis boundary reports.
package ingest

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/borjamrd/hormiwita/internal/model"
)

// Supported and recognized MIME types.
const (
	MIMECSV       = "text/csv"
	MIMEOFX       = "application/x-ofx"
	MIMEExcelXLS  = "application/vnd.ms-excel"
	MIMEExcelXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Row is one decoded statement transaction. Amount keeps the statement's
// sign: negative amounts are expenses, positive amounts income.
type Row struct {
	Counterparty string
	Amount       float64
}

// Decoded is the result of successfully decoding a statement file.
type Decoded struct {
	Currency string
	Rows     []Row
	// Skipped counts rows present in the file that could not be
	// interpreted as transactions.
	Skipped int
}

// StatusError carries the terminal statement status for a rejected
// upload together with the feedback shown to the user.
type StatusError struct {
	Status   model.StatementStatus
	Feedback string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Feedback)
}

// Decoder decodes uploaded statement files.
type Decoder struct{}

// NewDecoder creates a statement decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses a data URI and decodes its content into transaction
// rows. Unsupported or malformed inputs return a *StatusError; content
// of unrecognized MIME types is never inspected.
func (d *Decoder) Decode(fileDataURI, originalFileName string) (*Decoded, error) {
	mime, data, err := parseDataURI(fileDataURI)
	if err != nil {
		return nil, &StatusError{
			Status:   model.StatementErrorParsing,
			Feedback: "No se pudo leer el archivo enviado. Vuelve a adjuntarlo e inténtalo de nuevo.",
		}
	}

	switch {
	case mime == MIMECSV:
		return decodeCSV(data)
	case mime == MIMEOFX || strings.HasSuffix(strings.ToLower(originalFileName), ".ofx"):
		return decodeOFX(data)
	case mime == MIMEExcelXLS || mime == MIMEExcelXLSX:
		return nil, &StatusError{
			Status: model.StatementUnsupportedType,
			Feedback: "Los archivos de Excel no se pueden leer directamente. " +
				"Expórtalo como CSV (Archivo > Guardar como > CSV) y súbelo de nuevo.",
		}
	default:
		return nil, &StatusError{
			Status:   model.StatementUnsupportedType,
			Feedback: fmt.Sprintf("El tipo de archivo %q no está soportado. Sube tu extracto en formato CSV u OFX.", mime),
		}
	}
}

// parseDataURI splits a data:<mime>;base64,<data> URI into its MIME type
// and decoded payload.
func parseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI has no payload separator")
	}

	mime, encoding, _ := strings.Cut(header, ";")
	mime = strings.TrimSpace(strings.ToLower(mime))
	if mime == "" {
		return "", nil, fmt.Errorf("data URI has no MIME type")
	}
	if encoding != "base64" {
		return "", nil, fmt.Errorf("unsupported data URI encoding %q", encoding)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return mime, data, nil
}
