package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/model"
	"github.com/borjamrd/hormiwita/internal/service"
)

const statementSystemPrompt = `Analiza el texto de un extracto bancario y agrégalo por proveedor.
Los importes agregados son siempre positivos; el signo lo decide la lista.
Responde SOLO con un objeto JSON:
{"status": "<Success|PartialData|NoDataIdentified>",
 "feedback": "<resumen para el usuario, en español>",
 "totalIncome": 0, "totalExpenses": 0,
 "detectedCurrency": "<ISO o vacío>",
 "incomeByProvider": [{"providerName": "...", "totalAmount": 0, "transactionCount": 0}],
 "expensesByProvider": [{"providerName": "...", "totalAmount": 0, "transactionCount": 0}],
 "unassignedTransactions": 0}`

// StatementAnalyzer implements service.StatementOracle with a two-tier
// strategy: structured formats go to the deterministic delegate, and
// plain-text uploads the delegate cannot decode are interpreted by the
// model. The plain-text tier runs only when Config.TextStatements opts
// in; otherwise non-CSV, non-OFX uploads keep the delegate's
// UnsupportedFileType verdict and the model is never invoked. Model
// failures fall back to the delegate's verdict so an upload always
// yields a terminal summary.
type StatementAnalyzer struct {
	delegate  service.StatementOracle
	client    Client
	logger    *slog.Logger
	retryOpts service.RetryOptions
	textTier  bool
}

// NewStatementAnalyzer wraps a deterministic analyzer with the
// model-backed plain-text path.
func NewStatementAnalyzer(delegate service.StatementOracle, client Client, cfg Config, logger *slog.Logger) *StatementAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 3
	}
	return &StatementAnalyzer{
		delegate:  delegate,
		client:    client,
		logger:    logger,
		retryOpts: retryOpts,
		textTier:  cfg.TextStatements,
	}
}

// Analyze runs the deterministic path first and escalates plain-text
// uploads to the model when the delegate declares them unsupported.
func (a *StatementAnalyzer) Analyze(ctx context.Context, fileDataURI, originalFileName string) (*model.StatementSummary, error) {
	summary, err := a.delegate.Analyze(ctx, fileDataURI, originalFileName)
	if err != nil {
		return nil, err
	}
	if summary.Status != model.StatementUnsupportedType || !a.textTier {
		return summary, nil
	}

	text, ok := plainTextPayload(fileDataURI)
	if !ok {
		return summary, nil
	}

	modelSummary, err := a.analyzeText(ctx, text, originalFileName)
	if err != nil {
		a.logger.Warn("model statement analysis failed, keeping delegate verdict",
			"file", originalFileName,
			"error", err)
		return summary, nil
	}
	return modelSummary, nil
}

func (a *StatementAnalyzer) analyzeText(ctx context.Context, text, originalFileName string) (*model.StatementSummary, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Archivo: %s\n\nContenido del extracto:\n", originalFileName)
	b.WriteString(text)

	var content string
	err := common.WithRetry(ctx, func() error {
		out, genErr := a.client.Generate(ctx, statementSystemPrompt, b.String())
		if genErr != nil {
			return genErr
		}
		content = out
		return nil
	}, a.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}

	raw, err := extractJSON(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	var summary model.StatementSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	switch summary.Status {
	case model.StatementSuccess, model.StatementPartialData, model.StatementNoData:
	default:
		return nil, fmt.Errorf("%w: unexpected status %q", common.ErrMalformedResponse, summary.Status)
	}
	if summary.Feedback == "" {
		summary.Feedback = "Extracto analizado."
	}
	return &summary, nil
}

// plainTextPayload extracts the decoded text of a text/plain data URI.
func plainTextPayload(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", false
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", false
	}
	mime, encoding, _ := strings.Cut(header, ";")
	if strings.TrimSpace(strings.ToLower(mime)) != "text/plain" || encoding != "base64" {
		return "", false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", false
	}
	return text, true
}
