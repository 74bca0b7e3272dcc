package conversation

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borjamrd/hormiwita/internal/aggregate"
	"github.com/borjamrd/hormiwita/internal/categorize"
	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/ingest"
	"github.com/borjamrd/hormiwita/internal/llm"
	"github.com/borjamrd/hormiwita/internal/model"
	"github.com/borjamrd/hormiwita/internal/service"
	"github.com/borjamrd/hormiwita/internal/storage"
)

const statementCSV = "Fecha;Concepto;Importe\n" +
	"01/05/2026;NOMINA EMPRESA SL;1850,00\n" +
	"03/05/2026;NETFLIX;-15,99\n" +
	"05/05/2026;MERCADONA;-84,20\n"

func statementDataURI(content string) string {
	return "data:" + ingest.MIMECSV + ";base64," + base64.StdEncoding.EncodeToString([]byte(content))
}

func newTestManager(t *testing.T) (*Manager, *llm.MockOracles) {
	t.Helper()
	mock := llm.NewMockOracles()
	manager, err := NewManager(Config{
		Store:       storage.NewMemoryStore(),
		Dialogue:    mock,
		Categorizer: categorize.NewOrchestrator(mock, nil),
		Analyzer:    aggregate.NewAnalyzer(nil),
		Roadmaps:    mock.AsRoadmapOracle(),
		Guided:      mock,
	})
	require.NoError(t, err)
	return manager, mock
}

func TestNewManager_RequiresCollaborators(t *testing.T) {
	mock := llm.NewMockOracles()

	_, err := NewManager(Config{})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = NewManager(Config{Store: storage.NewMemoryStore(), Dialogue: mock})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestStartSession(t *testing.T) {
	manager, _ := newTestManager(t)

	sess, err := manager.StartSession(context.Background())

	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, model.RoleAssistant, sess.Messages[0].Role)
	assert.Equal(t, model.InputGeneralConversation, sess.ExpectedInput)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestStartSession_OracleDownStillStarts(t *testing.T) {
	manager, mock := newTestManager(t)
	mock.FailDialogue = true

	sess, err := manager.StartSession(context.Background())

	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, genericFailureMessage, sess.Messages[0].Content)
}

func TestHandleMessage_AdvancesProfile(t *testing.T) {
	manager, _ := newTestManager(t)
	sess, err := manager.StartSession(context.Background())
	require.NoError(t, err)

	updated, err := manager.HandleMessage(context.Background(), sess.ID, "Borja")

	require.NoError(t, err)
	assert.Equal(t, "Borja", updated.Profile.Name)
	assert.Equal(t, model.InputGeneralObjectives, updated.ExpectedInput)
	require.Len(t, updated.Messages, 3)
	assert.Equal(t, "Borja", updated.Messages[1].Content)
}

func TestHandleMessage_UnknownSession(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.HandleMessage(context.Background(), "no-such-session", "hola")

	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}

func TestHandleMessage_EmptyMessageSkipsOracle(t *testing.T) {
	manager, mock := newTestManager(t)
	sess, err := manager.StartSession(context.Background())
	require.NoError(t, err)
	callsBefore := mock.DialogueCalls

	_, err = manager.HandleMessage(context.Background(), sess.ID, "   ")

	require.Error(t, err)
	assert.Equal(t, callsBefore, mock.DialogueCalls)

	stored, err := manager.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 1)
}

func TestHandleMessage_OracleFailureKeepsAffordance(t *testing.T) {
	manager, mock := newTestManager(t)
	sess, err := manager.StartSession(context.Background())
	require.NoError(t, err)
	mock.FailDialogue = true

	updated, err := manager.HandleMessage(context.Background(), sess.ID, "Borja")

	require.NoError(t, err)
	assert.Equal(t, model.InputGeneralConversation, updated.ExpectedInput)
	assert.Empty(t, updated.Profile.Name)
	require.Len(t, updated.Messages, 3)
	assert.Equal(t, genericFailureMessage, updated.Messages[2].Content)
}

func TestSubmitObjectives_EmptyGeneralRejected(t *testing.T) {
	manager, _ := newTestManager(t)
	sess, err := manager.StartSession(context.Background())
	require.NoError(t, err)

	_, err = manager.SubmitObjectives(context.Background(), sess.ID, ObjectivesGeneral, nil)

	assert.ErrorIs(t, err, common.ErrEmptySelection)
}

func TestSubmitObjectives_FullProgression(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	sess, err := manager.StartSession(ctx)
	require.NoError(t, err)
	_, err = manager.HandleMessage(ctx, sess.ID, "Borja")
	require.NoError(t, err)

	updated, err := manager.SubmitObjectives(ctx, sess.ID, ObjectivesGeneral, []string{"Ahorrar"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ahorrar"}, updated.Profile.GeneralObjectives)
	assert.Equal(t, model.InputSpecificObjectives, updated.ExpectedInput)

	updated, err = manager.SubmitObjectives(ctx, sess.ID, ObjectivesSpecific, []string{"Fondo de emergencia"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fondo de emergencia"}, updated.Profile.SpecificObjectives)
	assert.Equal(t, model.InputStatementUpload, updated.ExpectedInput)
}

func TestUploadStatement_ParksPendingSummary(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	sess, err := manager.StartSession(ctx)
	require.NoError(t, err)

	updated, err := manager.UploadStatement(ctx, sess.ID, statementDataURI(statementCSV), "mayo.csv")

	require.NoError(t, err)
	require.NotNil(t, updated.PendingSummary)
	assert.Equal(t, model.StatementSuccess, updated.PendingSummary.Status)
	assert.Nil(t, updated.Profile.ExpensesIncomeSummary)
	require.Len(t, updated.Messages, 3)
	assert.Equal(t, updated.PendingSummary.Feedback, updated.Messages[2].Content)
}

func TestConfirmStatement_WithoutUpload(t *testing.T) {
	manager, _ := newTestManager(t)
	sess, err := manager.StartSession(context.Background())
	require.NoError(t, err)

	_, err = manager.ConfirmStatement(context.Background(), sess.ID)

	assert.ErrorIs(t, err, common.ErrNoStatement)
}

func TestConfirmStatement_RejectedStatementNotUsable(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	sess, err := manager.StartSession(ctx)
	require.NoError(t, err)

	_, err = manager.UploadStatement(ctx, sess.ID, statementDataURI("  "), "vacio.csv")
	require.NoError(t, err)

	_, err = manager.ConfirmStatement(ctx, sess.ID)
	assert.ErrorIs(t, err, common.ErrStatementNotUsable)
}

func TestConfirmStatement_AttachesEnhancedSummary(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	sess, err := manager.StartSession(ctx)
	require.NoError(t, err)
	_, err = manager.UploadStatement(ctx, sess.ID, statementDataURI(statementCSV), "mayo.csv")
	require.NoError(t, err)

	updated, err := manager.ConfirmStatement(ctx, sess.ID)

	require.NoError(t, err)
	assert.Nil(t, updated.PendingSummary)
	enhanced := updated.Profile.ExpensesIncomeSummary
	require.NotNil(t, enhanced)
	require.Len(t, enhanced.CategorizedIncomeItems, 1)
	require.Len(t, enhanced.CategorizedExpenseItems, 2)
	assert.Equal(t, "Nómina", enhanced.CategorizedIncomeItems[0].SuggestedCategory)
	assert.Equal(t, "Suscripciones", enhanced.CategorizedExpenseItems[0].SuggestedCategory)
	assert.Equal(t, "Supermercado", enhanced.CategorizedExpenseItems[1].SuggestedCategory)
}

func TestConfirmStatement_DegradedCategoriesStillAttach(t *testing.T) {
	manager, mock := newTestManager(t)
	ctx := context.Background()
	sess, err := manager.StartSession(ctx)
	require.NoError(t, err)
	_, err = manager.UploadStatement(ctx, sess.ID, statementDataURI(statementCSV), "mayo.csv")
	require.NoError(t, err)
	mock.FailClassify = true

	updated, err := manager.ConfirmStatement(ctx, sess.ID)

	require.NoError(t, err)
	enhanced := updated.Profile.ExpensesIncomeSummary
	require.NotNil(t, enhanced)
	for _, item := range enhanced.CategorizedExpenseItems {
		assert.Equal(t, categorize.FallbackExpenseCategory, item.SuggestedCategory)
	}
	for _, item := range enhanced.CategorizedIncomeItems {
		assert.Equal(t, categorize.FallbackIncomeCategory, item.SuggestedCategory)
	}
}

func TestForecast_AfterConfirmation(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	sess, err := manager.StartSession(ctx)
	require.NoError(t, err)
	_, err = manager.UploadStatement(ctx, sess.ID, statementDataURI(statementCSV), "mayo.csv")
	require.NoError(t, err)
	_, err = manager.ConfirmStatement(ctx, sess.ID)
	require.NoError(t, err)

	scenario, points, err := manager.Forecast(ctx, sess.ID)

	require.NoError(t, err)
	// Netflix 15.99 is the only cuttable expense in the fixture.
	assert.InDelta(t, 7.995, scenario.Simple, 0.001)
	assert.InDelta(t, 15.99, scenario.Max, 0.001)
	require.Len(t, points, 12)
	assert.Greater(t, points[11].AhorroMaximo, points[0].AhorroMaximo)
}

func TestForecast_WithoutSummaryIsRejected(t *testing.T) {
	manager, _ := newTestManager(t)
	sess, err := manager.StartSession(context.Background())
	require.NoError(t, err)

	_, _, err = manager.Forecast(context.Background(), sess.ID)

	require.ErrorIs(t, err, common.ErrNoCategorizedExpenses)
	assert.NotEmpty(t, common.UserMessage(err, ""))
}

func onboardedSession(t *testing.T, manager *Manager) string {
	t.Helper()
	ctx := context.Background()
	sess, err := manager.StartSession(ctx)
	require.NoError(t, err)
	_, err = manager.HandleMessage(ctx, sess.ID, "Borja")
	require.NoError(t, err)
	_, err = manager.SubmitObjectives(ctx, sess.ID, ObjectivesGeneral, []string{"Ahorrar"})
	require.NoError(t, err)
	_, err = manager.SubmitObjectives(ctx, sess.ID, ObjectivesSpecific, []string{"Fondo de emergencia", "Reducir suscripciones"})
	require.NoError(t, err)
	return sess.ID
}

func TestGenerateRoadmap(t *testing.T) {
	manager, _ := newTestManager(t)
	id := onboardedSession(t, manager)

	updated, err := manager.GenerateRoadmap(context.Background(), id)

	require.NoError(t, err)
	roadmap := updated.Profile.Roadmap
	require.NotNil(t, roadmap)
	require.Len(t, roadmap.Steps, 2)
	assert.Equal(t, model.StepPending, roadmap.Steps[0].Status)
	assert.Contains(t, roadmap.Introduction, "Borja")
	require.NoError(t, roadmap.Validate())
}

func TestGenerateRoadmap_OracleFailure(t *testing.T) {
	manager, mock := newTestManager(t)
	id := onboardedSession(t, manager)
	mock.FailRoadmap = true

	_, err := manager.GenerateRoadmap(context.Background(), id)

	require.Error(t, err)
	assert.NotEmpty(t, common.UserMessage(err, ""))

	stored, err := manager.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, stored.Profile.Roadmap)
}

func TestAdvanceAndCompleteRoadmap(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	id := onboardedSession(t, manager)
	_, err := manager.GenerateRoadmap(ctx, id)
	require.NoError(t, err)

	step, err := manager.AdvanceRoadmap(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, step)
	assert.Equal(t, "Fondo de emergencia", step.Objective)
	assert.Equal(t, model.StepInProgress, step.Status)

	// Advancing again resumes the same step.
	again, err := manager.AdvanceRoadmap(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, step.Objective, again.Objective)

	_, err = manager.CompleteRoadmapStep(ctx, id, step.Objective)
	require.NoError(t, err)

	next, err := manager.AdvanceRoadmap(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "Reducir suscripciones", next.Objective)
}

func TestStreamGuided(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	id := onboardedSession(t, manager)
	_, err := manager.GenerateRoadmap(ctx, id)
	require.NoError(t, err)
	_, err = manager.AdvanceRoadmap(ctx, id)
	require.NoError(t, err)

	var chunks []string
	final, err := manager.StreamGuided(ctx, id, "¿Por dónde empiezo?", nil, func(chunk string) {
		chunks = append(chunks, chunk)
	})

	require.NoError(t, err)
	assert.NotEmpty(t, chunks)
	assert.Equal(t, final, strings.Join(chunks, ""))

	stored, err := manager.Get(ctx, id)
	require.NoError(t, err)
	last := stored.Messages[len(stored.Messages)-1]
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, final, last.Content)
}

func TestStreamGuided_RequiresActiveStep(t *testing.T) {
	manager, _ := newTestManager(t)
	sess, err := manager.StartSession(context.Background())
	require.NoError(t, err)

	_, err = manager.StreamGuided(context.Background(), sess.ID, "hola", nil, nil)

	assert.ErrorIs(t, err, common.ErrNoRoadmap)
}

func TestStreamGuided_AbandonedConsumerNotPersisted(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	id := onboardedSession(t, manager)
	_, err := manager.GenerateRoadmap(ctx, id)
	require.NoError(t, err)
	_, err = manager.AdvanceRoadmap(ctx, id)
	require.NoError(t, err)

	before, err := manager.Get(ctx, id)
	require.NoError(t, err)

	acc := NewAccumulator()
	acc.Abandon()
	_, err = manager.StreamGuided(ctx, id, "¿Por dónde empiezo?", acc, nil)
	require.NoError(t, err)

	after, err := manager.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, after.Messages, len(before.Messages))
}

// brokenGuidedOracle emits one chunk, then reports a transport failure
// through the stream's Final hook.
type brokenGuidedOracle struct{}

func (brokenGuidedOracle) StreamGenerate(context.Context, []model.ChatMessage, string) (*service.GuidedFlowStream, error) {
	ch := make(chan string, 1)
	ch <- "Vamos "
	close(ch)
	return &service.GuidedFlowStream{
		Chunks: ch,
		Final:  func() (string, error) { return "Vamos ", errors.New("connection reset") },
	}, nil
}

func TestStreamGuided_BrokenStreamNotPersisted(t *testing.T) {
	mock := llm.NewMockOracles()
	manager, err := NewManager(Config{
		Store:       storage.NewMemoryStore(),
		Dialogue:    mock,
		Categorizer: categorize.NewOrchestrator(mock, nil),
		Analyzer:    aggregate.NewAnalyzer(nil),
		Roadmaps:    mock.AsRoadmapOracle(),
		Guided:      brokenGuidedOracle{},
	})
	require.NoError(t, err)

	ctx := context.Background()
	id := onboardedSession(t, manager)
	_, err = manager.GenerateRoadmap(ctx, id)
	require.NoError(t, err)
	_, err = manager.AdvanceRoadmap(ctx, id)
	require.NoError(t, err)

	before, err := manager.Get(ctx, id)
	require.NoError(t, err)

	_, err = manager.StreamGuided(ctx, id, "¿Por dónde empiezo?", nil, nil)

	require.Error(t, err)
	assert.NotEmpty(t, common.UserMessage(err, ""))

	after, err := manager.Get(ctx, id)
	require.NoError(t, err)
	assert.Len(t, after.Messages, len(before.Messages), "truncated text must not reach history")
}

func TestBusyLatch(t *testing.T) {
	manager, _ := newTestManager(t)
	sess, err := manager.StartSession(context.Background())
	require.NoError(t, err)

	require.True(t, manager.acquire(sess.ID))
	defer manager.release(sess.ID)

	_, err = manager.HandleMessage(context.Background(), sess.ID, "hola")
	assert.ErrorIs(t, err, common.ErrSessionBusy)

	_, err = manager.ConfirmStatement(context.Background(), sess.ID)
	assert.ErrorIs(t, err, common.ErrSessionBusy)

	// Other sessions are unaffected.
	other, err := manager.StartSession(context.Background())
	require.NoError(t, err)
	_, err = manager.HandleMessage(context.Background(), other.ID, "hola")
	assert.NoError(t, err)
}

func TestReset_ClearsEverything(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	id := onboardedSession(t, manager)
	_, err := manager.UploadStatement(ctx, id, statementDataURI(statementCSV), "mayo.csv")
	require.NoError(t, err)

	updated, err := manager.Reset(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, id, updated.ID)
	assert.Empty(t, updated.Profile.Name)
	assert.Empty(t, updated.Profile.GeneralObjectives)
	assert.Nil(t, updated.PendingSummary)
	require.Len(t, updated.Messages, 1)
	assert.Equal(t, model.RoleAssistant, updated.Messages[0].Role)
}

func TestDelete(t *testing.T) {
	manager, _ := newTestManager(t)
	sess, err := manager.StartSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, manager.Delete(context.Background(), sess.ID))

	_, err = manager.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, common.ErrSessionNotFound)
}
