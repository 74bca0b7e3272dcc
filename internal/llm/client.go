// Package llm implements the oracle contracts on top of generative
// model backends, with retry logic, rate limiting and tolerant response
// parsing.
package llm

import (
	"context"

	"github.com/borjamrd/hormiwita/internal/service"
)

// Client defines the interface for generative model backends.
type Client interface {
	// Generate returns the model's full text response for one prompt.
	Generate(ctx context.Context, systemInstruction, prompt string) (string, error)
	// GenerateStream returns the response as a lazy, finite chunk
	// stream whose final text equals the chunk concatenation.
	GenerateStream(ctx context.Context, systemInstruction, prompt string) (*service.GuidedFlowStream, error)
}

// Config holds configuration for the oracle clients.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	MaxRetries  int
	RateLimit   int
	Temperature float64
	// TextStatements lets the statement oracle interpret plain-text
	// uploads with the model. Off by default; the documented contract
	// rejects anything that is not CSV, OFX or Excel.
	TextStatements bool
}
