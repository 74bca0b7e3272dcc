package ingest

import (
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/borjamrd/hormiwita/internal/model"
)

var severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)

// preprocessOFX fixes common formatting issues in bank-exported OFX
// files before handing them to the parser.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	return severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
}

// decodeOFX parses an OFX/QFX statement into transaction rows.
func decodeOFX(data []byte) (*Decoded, error) {
	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(data))))
	if err != nil {
		return nil, &StatusError{
			Status:   model.StatementErrorParsing,
			Feedback: "El archivo OFX está mal formado y no se pudo interpretar.",
		}
	}

	decoded := &Decoded{}

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		if decoded.Currency == "" {
			decoded.Currency = stmt.CurDef.String()
		}
		for _, tx := range stmt.BankTranList.Transactions {
			appendOFXRow(decoded, tx)
		}
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		if decoded.Currency == "" {
			decoded.Currency = stmt.CurDef.String()
		}
		for _, tx := range stmt.BankTranList.Transactions {
			appendOFXRow(decoded, tx)
		}
	}

	if len(decoded.Rows) == 0 {
		return nil, &StatusError{
			Status:   model.StatementNoData,
			Feedback: "El archivo OFX no contiene movimientos.",
		}
	}
	return decoded, nil
}

func appendOFXRow(decoded *Decoded, tx ofxgo.Transaction) {
	counterparty := ofxCounterparty(tx)
	if counterparty == "" {
		decoded.Skipped++
		return
	}
	amount, _ := tx.TrnAmt.Float64()
	if amount == 0 {
		decoded.Skipped++
		return
	}
	decoded.Rows = append(decoded.Rows, Row{Counterparty: counterparty, Amount: amount})
}

// ofxCounterparty picks the cleanest counterparty name available on an
// OFX transaction: PAYEE when present, then NAME, then MEMO.
func ofxCounterparty(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}
	if name := strings.TrimSpace(string(tx.Name)); name != "" {
		return name
	}
	return strings.TrimSpace(string(tx.Memo))
}
