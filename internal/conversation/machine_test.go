package conversation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/model"
)

func TestPlan_MessageAction(t *testing.T) {
	state := State{Profile: model.UserProfile{Name: "Borja"}}

	intent, err := Plan(state, MessageAction{Content: "  quiero ahorrar  "})

	require.NoError(t, err)
	assert.Equal(t, "quiero ahorrar", intent.Query)
	assert.Equal(t, "Borja", intent.Profile.Name)
}

func TestPlan_EmptyMessageRejected(t *testing.T) {
	_, err := Plan(State{}, MessageAction{Content: "   "})

	require.Error(t, err)
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.NotEmpty(t, userErr.UserMessage)
}

func TestPlan_GeneralObjectives(t *testing.T) {
	state := State{Profile: model.UserProfile{Name: "Borja"}}

	intent, err := Plan(state, ObjectivesAction{
		Kind:  ObjectivesGeneral,
		Items: []string{"Ahorrar", "ahorrar", "  ", "Invertir"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Ahorrar", "Invertir"}, intent.Profile.GeneralObjectives)
	assert.Contains(t, intent.Query, "Ahorrar, Invertir")
}

func TestPlan_EmptyGeneralObjectivesRejected(t *testing.T) {
	_, err := Plan(State{}, ObjectivesAction{Kind: ObjectivesGeneral, Items: []string{"  ", ""}})

	assert.ErrorIs(t, err, common.ErrEmptySelection)
}

func TestPlan_SpecificObjectivesRequireGeneral(t *testing.T) {
	_, err := Plan(State{}, ObjectivesAction{
		Kind:  ObjectivesSpecific,
		Items: []string{"Fondo de emergencia"},
	})

	assert.ErrorIs(t, err, common.ErrEmptySelection)
}

func TestPlan_EmptySpecificObjectivesAllowed(t *testing.T) {
	state := State{Profile: model.UserProfile{GeneralObjectives: []string{"Ahorrar"}}}

	intent, err := Plan(state, ObjectivesAction{Kind: ObjectivesSpecific})

	require.NoError(t, err)
	assert.Equal(t, "No quiero añadir objetivos específicos adicionales.", intent.Query)
	assert.Empty(t, intent.Profile.SpecificObjectives)
}

func TestPlan_SpecificObjectivesMerge(t *testing.T) {
	state := State{Profile: model.UserProfile{
		GeneralObjectives:  []string{"Ahorrar"},
		SpecificObjectives: []string{"Fondo de emergencia"},
	}}

	intent, err := Plan(state, ObjectivesAction{
		Kind:  ObjectivesSpecific,
		Items: []string{"fondo de emergencia", "Ahorro para viaje"},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Fondo de emergencia", "Ahorro para viaje"}, intent.Profile.SpecificObjectives)
}

func TestPlan_ConfirmAnalysisAttachesSummary(t *testing.T) {
	summary := model.EnhancedSummary{
		Original: model.StatementSummary{Status: model.StatementSuccess},
	}

	intent, err := Plan(State{}, ConfirmAnalysisAction{Summary: summary})

	require.NoError(t, err)
	require.NotNil(t, intent.Profile.ExpensesIncomeSummary)
	assert.Equal(t, model.StatementSuccess, intent.Profile.ExpensesIncomeSummary.Original.Status)
	assert.NotEmpty(t, intent.Query)
}

func TestPlan_DoesNotMutateState(t *testing.T) {
	state := State{Profile: model.UserProfile{GeneralObjectives: []string{"Ahorrar"}}}

	_, err := Plan(state, ObjectivesAction{Kind: ObjectivesGeneral, Items: []string{"Invertir"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"Ahorrar"}, state.Profile.GeneralObjectives)
}

func TestApplyResult_AppendsTurnsAndReplacesProfile(t *testing.T) {
	state := State{
		Messages:      []model.ChatMessage{{Role: model.RoleAssistant, Content: "¿Cómo te llamas?"}},
		ExpectedInput: model.InputGeneralConversation,
	}
	intent := Intent{Query: "Me llamo Borja", Profile: state.Profile}
	updated := model.UserProfile{Name: "Borja"}

	next := ApplyResult(state, intent, DialogueOutcome{
		Response:          "Encantado, Borja.",
		UpdatedProfile:    &updated,
		NextExpectedInput: model.InputGeneralObjectives,
	})

	require.Len(t, next.Messages, 3)
	assert.Equal(t, model.RoleUser, next.Messages[1].Role)
	assert.Equal(t, "Me llamo Borja", next.Messages[1].Content)
	assert.Equal(t, "Encantado, Borja.", next.Messages[2].Content)
	assert.Equal(t, "Borja", next.Profile.Name)
	assert.Equal(t, model.InputGeneralObjectives, next.ExpectedInput)
	// The original state stays untouched.
	assert.Len(t, state.Messages, 1)
}

func TestApplyResult_KeepsIntentProfileWithoutOracleUpdate(t *testing.T) {
	intent := Intent{
		Query:   "He seleccionado estos objetivos generales: Ahorrar.",
		Profile: model.UserProfile{Name: "Borja", GeneralObjectives: []string{"Ahorrar"}},
	}

	next := ApplyResult(State{}, intent, DialogueOutcome{Response: "Perfecto."})

	assert.Equal(t, []string{"Ahorrar"}, next.Profile.GeneralObjectives)
}

func TestApplyResult_UnknownHintKeepsCurrentInput(t *testing.T) {
	state := State{ExpectedInput: model.InputStatementUpload}

	next := ApplyResult(state, Intent{Query: "hola"}, DialogueOutcome{
		Response:          "ok",
		NextExpectedInput: model.InputKind("teleport"),
	})

	assert.Equal(t, model.InputStatementUpload, next.ExpectedInput)
}

func TestApplyResult_DefaultsToGeneralConversation(t *testing.T) {
	next := ApplyResult(State{}, Intent{}, DialogueOutcome{Response: "hola"})

	assert.Equal(t, model.InputGeneralConversation, next.ExpectedInput)
}

func TestApplyFailure_KeepsInputAndProfile(t *testing.T) {
	state := State{
		Profile:       model.UserProfile{Name: "Borja"},
		Messages:      []model.ChatMessage{{Role: model.RoleAssistant, Content: "hola"}},
		ExpectedInput: model.InputGeneralObjectives,
	}
	intent := Intent{Query: "He seleccionado estos objetivos generales: Ahorrar."}

	next := ApplyFailure(state, intent, "Lo siento, inténtalo de nuevo.")

	assert.Equal(t, model.InputGeneralObjectives, next.ExpectedInput)
	assert.Equal(t, "Borja", next.Profile.Name)
	require.Len(t, next.Messages, 3)
	assert.Equal(t, "Lo siento, inténtalo de nuevo.", next.Messages[2].Content)
}

func TestWindow_BoundsHistory(t *testing.T) {
	var messages []model.ChatMessage
	for i := 0; i < HistoryWindow+5; i++ {
		messages = append(messages, model.ChatMessage{
			Role:    model.RoleUser,
			Content: fmt.Sprintf("turno %d", i),
		})
	}

	window := Window(messages)

	require.Len(t, window, HistoryWindow)
	assert.Equal(t, "turno 5", window[0].Content)
	assert.Equal(t, fmt.Sprintf("turno %d", HistoryWindow+4), window[HistoryWindow-1].Content)
}

func TestWindow_ShortHistoryUntouched(t *testing.T) {
	messages := []model.ChatMessage{{Role: model.RoleUser, Content: "hola"}}
	assert.Equal(t, messages, Window(messages))
	assert.Empty(t, Window(nil))
}
