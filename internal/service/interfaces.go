// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/borjamrd/hormiwita/internal/model"
)

// ItemType distinguishes which batch a provider summary belongs to.
type ItemType string

// Item type constants.
const (
	ItemTypeIncome  ItemType = "income"
	ItemTypeExpense ItemType = "expense"
)

// Session is the complete per-user conversational state. It is owned
// exclusively by its session; stores hold whole snapshots and every
// transition replaces the snapshot rather than mutating it in place.
type Session struct {
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
	ID             string                  `json:"id"`
	Profile        model.UserProfile       `json:"profile"`
	Messages       []model.ChatMessage     `json:"messages"`
	ExpectedInput  model.InputKind         `json:"expectedInput"`
	PendingSummary *model.StatementSummary `json:"pendingSummary,omitempty"`
}

// SessionStore defines the contract for session persistence.
type SessionStore interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Replace(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// DialogueResult is the dialogue oracle's reply to one exchange.
// UpdatedUserData, when present, replaces the session profile wholesale.
// NextExpectedInput is empty when the oracle declared no hint.
type DialogueResult struct {
	Response          string             `json:"response"`
	UpdatedUserData   *model.UserProfile `json:"updatedUserData,omitempty"`
	NextExpectedInput model.InputKind    `json:"nextExpectedInput,omitempty"`
}

// DialogueOracle drives the onboarding conversation.
type DialogueOracle interface {
	Generate(ctx context.Context, query string, history []model.ChatMessage, profile model.UserProfile) (*DialogueResult, error)
}

// ClassificationOracle assigns a category to each provider summary in a
// batch. One call covers a whole income or expense batch so the label
// vocabulary stays consistent across providers.
type ClassificationOracle interface {
	Categorize(ctx context.Context, items []model.ProviderSummary, itemType ItemType, existingCategories []string, language string) ([]model.CategorizedItem, error)
}

// StatementOracle turns an uploaded statement into an analysis summary.
type StatementOracle interface {
	Analyze(ctx context.Context, fileDataURI, originalFileName string) (*model.StatementSummary, error)
}

// RoadmapOracle generates a guided roadmap from the user's name and
// chosen specific objectives.
type RoadmapOracle interface {
	Generate(ctx context.Context, name string, specificObjectives []string) (*model.Roadmap, error)
}

// GuidedFlowStream is a lazy, finite, non-restartable sequence of text
// chunks. Final blocks until the stream closes and returns the full
// text, which always equals the concatenation of all streamed chunks.
type GuidedFlowStream struct {
	Chunks <-chan string
	Final  func() (string, error)
}

// GuidedFlowOracle streams assistant text for one guided sub-flow turn.
type GuidedFlowOracle interface {
	StreamGenerate(ctx context.Context, history []model.ChatMessage, flowContext string) (*GuidedFlowStream, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
