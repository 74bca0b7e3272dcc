package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/borjamrd/hormiwita/internal/service"
)

const defaultGeminiModel = "gemini-2.0-flash"

// geminiClient implements Client using the Gemini API.
type geminiClient struct {
	client *genai.Client
	model  string
	config Config
}

// newGeminiClient initializes the Gemini backend. The API key falls back
// to the GEMINI_API_KEY environment variable when unset.
func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	var clientCfg *genai.ClientConfig
	if cfg.APIKey != "" {
		clientCfg = &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiClient{client: client, model: model, config: cfg}, nil
}

func (g *geminiClient) generateConfig(systemInstruction string) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}}
	}
	if g.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(g.config.Temperature))
	}
	return cfg
}

// Generate returns the model's full text response for one prompt.
func (g *geminiClient) Generate(ctx context.Context, systemInstruction, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.generateConfig(systemInstruction))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

// GenerateStream streams the response chunk by chunk. The stream is
// lazy, finite and not restartable; Final blocks until the channel
// closes and always equals the concatenation of the streamed chunks.
func (g *geminiClient) GenerateStream(ctx context.Context, systemInstruction, prompt string) (*service.GuidedFlowStream, error) {
	chunks := make(chan string)
	done := make(chan struct{})

	var full strings.Builder
	var streamErr error

	go func() {
		defer close(chunks)
		defer close(done)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.generateConfig(systemInstruction)) {
			if err != nil {
				streamErr = fmt.Errorf("gemini stream failed: %w", err)
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			full.WriteString(text)
			select {
			case chunks <- text:
			case <-ctx.Done():
				streamErr = ctx.Err()
				return
			}
		}
	}()

	return &service.GuidedFlowStream{
		Chunks: chunks,
		Final: func() (string, error) {
			<-done
			return full.String(), streamErr
		},
	}, nil
}
