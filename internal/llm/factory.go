package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/borjamrd/hormiwita/internal/aggregate"
	"github.com/borjamrd/hormiwita/internal/service"
)

// OracleSet is the provider-independent oracle bundle handed to the
// session manager.
type OracleSet struct {
	Dialogue  service.DialogueOracle
	Classify  service.ClassificationOracle
	Roadmap   service.RoadmapOracle
	Guided    service.GuidedFlowOracle
	Statement service.StatementOracle
	closer    func()
}

// Close releases backend resources, if any.
func (s *OracleSet) Close() {
	if s.closer != nil {
		s.closer()
	}
}

// NewClient creates a backend client for the configured provider.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		return newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported oracle provider: %s", cfg.Provider)
	}
}

// NewOraclesForProvider wires the full oracle set for a provider name.
// The "mock" provider runs the deterministic scripted oracles, useful
// for local development without a model backend.
func NewOraclesForProvider(ctx context.Context, cfg Config, logger *slog.Logger) (*OracleSet, error) {
	analyzer := aggregate.NewAnalyzer(logger)
	if strings.EqualFold(cfg.Provider, "mock") {
		mock := NewMockOracles()
		return &OracleSet{
			Dialogue:  mock,
			Classify:  mock,
			Roadmap:   mock.AsRoadmapOracle(),
			Guided:    mock,
			Statement: analyzer,
		}, nil
	}

	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	oracles := NewOracles(client, cfg, logger)
	return &OracleSet{
		Dialogue:  oracles.Dialogue,
		Classify:  oracles.Classify,
		Roadmap:   oracles.Roadmap,
		Guided:    oracles.Guided,
		Statement: NewStatementAnalyzer(analyzer, client, cfg, logger),
		closer:    oracles.Close,
	}, nil
}
