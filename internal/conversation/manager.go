package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/borjamrd/hormiwita/internal/categorize"
	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/forecast"
	"github.com/borjamrd/hormiwita/internal/model"
	"github.com/borjamrd/hormiwita/internal/roadmap"
	"github.com/borjamrd/hormiwita/internal/service"
)

// genericFailureMessage is shown when an oracle call fails for reasons
// the user cannot act on. The state does not advance so the same
// affordance is retried.
const genericFailureMessage = "Lo siento, ha ocurrido un problema al procesar tu mensaje. Inténtalo de nuevo en unos segundos."

// Config wires a Manager's collaborators.
type Config struct {
	Store       service.SessionStore
	Dialogue    service.DialogueOracle
	Categorizer *categorize.Orchestrator
	Analyzer    service.StatementOracle
	Roadmaps    service.RoadmapOracle
	Guided      service.GuidedFlowOracle
	Logger      *slog.Logger
}

// Manager drives onboarding sessions: it owns the busy latch that keeps
// oracle calls for one session strictly sequential, performs all oracle
// I/O around the pure transition core, and replaces session snapshots in
// the store. It never mutates a stored session in place.
type Manager struct {
	store       service.SessionStore
	dialogue    service.DialogueOracle
	categorizer *categorize.Orchestrator
	analyzer    service.StatementOracle
	roadmaps    service.RoadmapOracle
	guided      service.GuidedFlowOracle
	logger      *slog.Logger

	mu   sync.Mutex
	busy map[string]bool
}

// NewManager creates a session manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: session store is required", common.ErrInvalidConfig)
	}
	if cfg.Dialogue == nil {
		return nil, fmt.Errorf("%w: dialogue oracle is required", common.ErrInvalidConfig)
	}
	if cfg.Categorizer == nil {
		return nil, fmt.Errorf("%w: categorization orchestrator is required", common.ErrInvalidConfig)
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("%w: statement analyzer is required", common.ErrInvalidConfig)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:       cfg.Store,
		dialogue:    cfg.Dialogue,
		categorizer: cfg.Categorizer,
		analyzer:    cfg.Analyzer,
		roadmaps:    cfg.Roadmaps,
		guided:      cfg.Guided,
		logger:      logger,
		busy:        make(map[string]bool),
	}, nil
}

// StartSession creates a session and runs the initial empty-query
// exchange. The first affordance comes from the oracle's hint; when the
// oracle is unavailable the session still starts, carrying a retryable
// error message.
func (m *Manager) StartSession(ctx context.Context) (*service.Session, error) {
	now := time.Now().UTC()
	sess := &service.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	state := m.initialExchange(ctx, State{})
	sess.Profile = state.Profile
	sess.Messages = state.Messages
	sess.ExpectedInput = state.ExpectedInput

	if err := m.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	m.logger.Info("session started", "session_id", sess.ID, "expected_input", sess.ExpectedInput)
	return sess, nil
}

func (m *Manager) initialExchange(ctx context.Context, state State) State {
	result, err := m.dialogue.Generate(ctx, "", nil, model.UserProfile{})
	if err != nil {
		common.LogError(err, "initial dialogue exchange failed", common.Fields{})
		return ApplyFailure(state, Intent{}, genericFailureMessage)
	}
	return ApplyResult(state, Intent{}, DialogueOutcome{
		Response:          result.Response,
		UpdatedProfile:    result.UpdatedUserData,
		NextExpectedInput: result.NextExpectedInput,
	})
}

// HandleMessage processes one free-text user message.
func (m *Manager) HandleMessage(ctx context.Context, sessionID, content string) (*service.Session, error) {
	return m.transition(ctx, sessionID, MessageAction{Content: content})
}

// SubmitObjectives processes an objective-picker submission.
func (m *Manager) SubmitObjectives(ctx context.Context, sessionID string, kind ObjectiveKind, items []string) (*service.Session, error) {
	return m.transition(ctx, sessionID, ObjectivesAction{Kind: kind, Items: items})
}

// AcceptSummary processes the profile-summary acceptance.
func (m *Manager) AcceptSummary(ctx context.Context, sessionID string) (*service.Session, error) {
	return m.transition(ctx, sessionID, AcceptSummaryAction{})
}

// transition runs one guarded dialogue exchange for a structured action.
func (m *Manager) transition(ctx context.Context, sessionID string, action Action) (*service.Session, error) {
	if !m.acquire(sessionID) {
		return nil, common.ErrSessionBusy
	}
	defer m.release(sessionID)

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := stateOf(sess)

	intent, err := Plan(state, action)
	if err != nil {
		// Guard violation: no oracle call, no state change.
		return nil, err
	}

	result, err := m.dialogue.Generate(ctx, intent.Query, Window(state.Messages), intent.Profile)
	var next State
	if err != nil {
		common.LogError(err, "dialogue oracle failed", common.Fields{"session_id": sessionID})
		next = ApplyFailure(state, intent, genericFailureMessage)
	} else {
		next = ApplyResult(state, intent, DialogueOutcome{
			Response:          result.Response,
			UpdatedProfile:    result.UpdatedUserData,
			NextExpectedInput: result.NextExpectedInput,
		})
	}

	return m.persist(ctx, sess, next, sess.PendingSummary)
}

// UploadStatement analyzes an uploaded statement file and parks the
// resulting summary on the session until the user confirms it. The
// summary's feedback is surfaced as an assistant turn.
func (m *Manager) UploadStatement(ctx context.Context, sessionID, fileDataURI, originalFileName string) (*service.Session, error) {
	if !m.acquire(sessionID) {
		return nil, common.ErrSessionBusy
	}
	defer m.release(sessionID)

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state := stateOf(sess)

	summary, err := m.analyzer.Analyze(ctx, fileDataURI, originalFileName)
	if err != nil {
		common.LogError(err, "statement analysis failed", common.Fields{"session_id": sessionID, "file": originalFileName})
		next := ApplyFailure(state, Intent{Query: "He subido mi extracto bancario.", Profile: state.Profile}, genericFailureMessage)
		return m.persist(ctx, sess, next, sess.PendingSummary)
	}

	next := State{
		Profile:       state.Profile,
		Messages:      appendMessages(state.Messages, "He subido mi extracto bancario: "+originalFileName, summary.Feedback),
		ExpectedInput: state.ExpectedInput,
	}
	return m.persist(ctx, sess, next, summary)
}

// ConfirmStatement categorizes the pending statement's provider batches
// and runs the confirmation exchange. Only Success or PartialData
// statements may proceed.
func (m *Manager) ConfirmStatement(ctx context.Context, sessionID string) (*service.Session, error) {
	if !m.acquire(sessionID) {
		return nil, common.ErrSessionBusy
	}
	defer m.release(sessionID)

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.PendingSummary == nil {
		return nil, common.ErrNoStatement
	}
	if !sess.PendingSummary.Status.AllowsCategorization() {
		return nil, fmt.Errorf("%w: status is %s", common.ErrStatementNotUsable, sess.PendingSummary.Status)
	}
	state := stateOf(sess)
	summary := *sess.PendingSummary

	// One batch per item type; sequential by design.
	incomeItems, incomeDegraded := m.categorizer.Categorize(ctx, summary.IncomeByProvider,
		service.ItemTypeIncome, categorize.DefaultIncomeCategories, categorize.DefaultLanguage)
	expenseItems, expenseDegraded := m.categorizer.Categorize(ctx, summary.ExpensesByProvider,
		service.ItemTypeExpense, categorize.DefaultExpenseCategories, categorize.DefaultLanguage)

	if incomeDegraded || expenseDegraded {
		m.logger.Warn("categorization degraded to fallback labels",
			"session_id", sessionID,
			"income_degraded", incomeDegraded,
			"expense_degraded", expenseDegraded)
	}

	enhanced := model.EnhancedSummary{
		Original:                summary,
		CategorizedIncomeItems:  incomeItems,
		CategorizedExpenseItems: expenseItems,
	}

	intent, err := Plan(state, ConfirmAnalysisAction{Summary: enhanced})
	if err != nil {
		return nil, err
	}

	result, err := m.dialogue.Generate(ctx, intent.Query, Window(state.Messages), intent.Profile)
	var next State
	if err != nil {
		common.LogError(err, "dialogue oracle failed", common.Fields{"session_id": sessionID})
		next = ApplyFailure(state, intent, genericFailureMessage)
		return m.persist(ctx, sess, next, sess.PendingSummary)
	}

	next = ApplyResult(state, intent, DialogueOutcome{
		Response:          result.Response,
		UpdatedProfile:    result.UpdatedUserData,
		NextExpectedInput: result.NextExpectedInput,
	})
	// The oracle may echo a profile without the freshly confirmed
	// summary; the confirmed analysis always wins, wholesale.
	next.Profile.ExpensesIncomeSummary = &enhanced

	return m.persist(ctx, sess, next, nil)
}

// Forecast recomputes the savings scenarios and the 12-month cumulative
// projection from the session's categorized expenses. Nothing is
// persisted; the result is derived in full on every call.
func (m *Manager) Forecast(ctx context.Context, sessionID string) (model.SavingsScenario, []model.ForecastPoint, error) {
	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return model.SavingsScenario{}, nil, err
	}
	var expenseItems []model.CategorizedItem
	if sess.Profile.ExpensesIncomeSummary != nil {
		expenseItems = sess.Profile.ExpensesIncomeSummary.CategorizedExpenseItems
	}
	if len(expenseItems) == 0 {
		return model.SavingsScenario{}, nil, common.NewUserError(
			"Todavía no hay gastos categorizados. Sube y confirma un extracto antes de pedir la previsión.",
			common.ErrNoCategorizedExpenses)
	}
	scenario := forecast.CalculateMonthlySavings(expenseItems)
	points := forecast.GenerateForecastData(sess.Profile, time.Now())
	return scenario, points, nil
}

// GenerateRoadmap asks the roadmap oracle for a guided plan from the
// user's name and specific objectives and attaches it to the profile.
func (m *Manager) GenerateRoadmap(ctx context.Context, sessionID string) (*service.Session, error) {
	if m.roadmaps == nil {
		return nil, fmt.Errorf("%w: roadmap oracle not configured", common.ErrMissingConfig)
	}
	if !m.acquire(sessionID) {
		return nil, common.ErrSessionBusy
	}
	defer m.release(sessionID)

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	generated, err := m.roadmaps.Generate(ctx, sess.Profile.Name, sess.Profile.SpecificObjectives)
	if err != nil {
		common.LogError(err, "roadmap generation failed", common.Fields{"session_id": sessionID})
		return nil, common.NewUserError("No se pudo generar tu hoja de ruta. Inténtalo de nuevo.", err)
	}
	for i := range generated.Steps {
		if generated.Steps[i].Status == "" {
			generated.Steps[i].Status = model.StepPending
		}
	}
	if err := generated.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	profile := sess.Profile.Clone()
	profile.Roadmap = generated

	next := State{Profile: profile, Messages: sess.Messages, ExpectedInput: sess.ExpectedInput}
	return m.persist(ctx, sess, next, sess.PendingSummary)
}

// AdvanceRoadmap activates the next pending roadmap step.
func (m *Manager) AdvanceRoadmap(ctx context.Context, sessionID string) (*model.RoadmapStep, error) {
	if !m.acquire(sessionID) {
		return nil, common.ErrSessionBusy
	}
	defer m.release(sessionID)

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	profile := sess.Profile.Clone()
	step := roadmap.ActivateNextStep(profile.Roadmap)

	next := State{Profile: profile, Messages: sess.Messages, ExpectedInput: sess.ExpectedInput}
	if _, err := m.persist(ctx, sess, next, sess.PendingSummary); err != nil {
		return nil, err
	}
	if step == nil {
		return nil, nil
	}
	out := *step
	return &out, nil
}

// CompleteRoadmapStep marks the named step completed.
func (m *Manager) CompleteRoadmapStep(ctx context.Context, sessionID, objective string) (*service.Session, error) {
	if !m.acquire(sessionID) {
		return nil, common.ErrSessionBusy
	}
	defer m.release(sessionID)

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	profile := sess.Profile.Clone()
	if err := roadmap.CompleteStep(profile.Roadmap, objective); err != nil {
		return nil, err
	}

	next := State{Profile: profile, Messages: sess.Messages, ExpectedInput: sess.ExpectedInput}
	return m.persist(ctx, sess, next, sess.PendingSummary)
}

// StreamGuided runs one turn of the active step's guided sub-flow,
// relaying chunks through onChunk as they arrive and appending the
// finalized text to the session history. The accumulator guards a
// consumer that abandons mid-stream.
func (m *Manager) StreamGuided(ctx context.Context, sessionID, userInput string, acc *Accumulator, onChunk func(string)) (string, error) {
	if m.guided == nil {
		return "", fmt.Errorf("%w: guided flow oracle not configured", common.ErrMissingConfig)
	}
	if !m.acquire(sessionID) {
		return "", common.ErrSessionBusy
	}
	defer m.release(sessionID)

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	active := sess.Profile.Roadmap.ActiveStep()
	if active == nil {
		return "", common.ErrNoRoadmap
	}

	history := appendMessages(sess.Messages, userInput, "")
	stream, err := m.guided.StreamGenerate(ctx, Window(history), active.FlowIdentifier)
	if err != nil {
		common.LogError(err, "guided flow stream failed", common.Fields{"session_id": sessionID, "flow": active.FlowIdentifier})
		return "", common.NewUserError(genericFailureMessage, err)
	}

	if acc == nil {
		acc = NewAccumulator()
	}
	final := Fold(stream, acc, onChunk)
	if stream.Final != nil {
		if _, err := stream.Final(); err != nil {
			common.LogError(err, "guided flow stream broke mid-turn", common.Fields{"session_id": sessionID, "flow": active.FlowIdentifier})
			return "", common.NewUserError(genericFailureMessage, err)
		}
	}

	// An abandoned consumer drains the stream but records nothing.
	if !acc.Live() {
		return final, nil
	}

	next := State{
		Profile:       sess.Profile,
		Messages:      appendMessages(sess.Messages, userInput, final),
		ExpectedInput: sess.ExpectedInput,
	}
	if _, err := m.persist(ctx, sess, next, sess.PendingSummary); err != nil {
		return "", err
	}
	return final, nil
}

// Reset clears all messages and profile data and re-runs the initial
// exchange for the same session ID.
func (m *Manager) Reset(ctx context.Context, sessionID string) (*service.Session, error) {
	if !m.acquire(sessionID) {
		return nil, common.ErrSessionBusy
	}
	defer m.release(sessionID)

	sess, err := m.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state := m.initialExchange(ctx, State{})
	m.logger.Info("session reset", "session_id", sessionID)
	return m.persist(ctx, sess, state, nil)
}

// Get returns the current session snapshot.
func (m *Manager) Get(ctx context.Context, sessionID string) (*service.Session, error) {
	return m.store.Get(ctx, sessionID)
}

// Delete removes a session entirely.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}

// persist replaces the stored session with a new snapshot built from the
// next state. The previous snapshot is never mutated.
func (m *Manager) persist(ctx context.Context, prev *service.Session, next State, pending *model.StatementSummary) (*service.Session, error) {
	updated := &service.Session{
		ID:             prev.ID,
		CreatedAt:      prev.CreatedAt,
		UpdatedAt:      time.Now().UTC(),
		Profile:        next.Profile,
		Messages:       next.Messages,
		ExpectedInput:  next.ExpectedInput,
		PendingSummary: pending,
	}
	if err := m.store.Replace(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return updated, nil
}

func stateOf(sess *service.Session) State {
	return State{
		Profile:       sess.Profile,
		Messages:      sess.Messages,
		ExpectedInput: sess.ExpectedInput,
	}
}

func (m *Manager) acquire(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy[sessionID] {
		return false
	}
	m.busy[sessionID] = true
	return true
}

func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.busy, sessionID)
}
