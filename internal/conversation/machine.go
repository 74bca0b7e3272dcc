// Package conversation implements the onboarding dialogue state machine.
// The transition logic is pure: it validates a user action, synthesizes
// the natural-language query for the dialogue oracle, and applies the
// oracle's result to produce the next state. All I/O lives in Manager.
package conversation

import (
	"fmt"
	"strings"

	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/model"
)

// HistoryWindow bounds the trailing conversation history sent with every
// oracle request.
const HistoryWindow = 10

// State is one immutable snapshot of a session's conversational state.
type State struct {
	Profile       model.UserProfile
	Messages      []model.ChatMessage
	ExpectedInput model.InputKind
}

// ObjectiveKind distinguishes the two objective-selection affordances.
type ObjectiveKind string

// Objective kind constants.
const (
	ObjectivesGeneral  ObjectiveKind = "general"
	ObjectivesSpecific ObjectiveKind = "specific"
)

// Action is a structured user action driving one transition.
type Action interface {
	isAction()
}

// MessageAction is a free-text chat message.
type MessageAction struct {
	Content string
}

// ObjectivesAction is a submission from one of the objective pickers.
type ObjectivesAction struct {
	Kind  ObjectiveKind
	Items []string
}

// ConfirmAnalysisAction confirms the categorized statement analysis,
// attaching the enhanced summary to the profile wholesale.
type ConfirmAnalysisAction struct {
	Summary model.EnhancedSummary
}

// AcceptSummaryAction accepts the displayed profile summary.
type AcceptSummaryAction struct{}

func (MessageAction) isAction()         {}
func (ObjectivesAction) isAction()      {}
func (ConfirmAnalysisAction) isAction() {}
func (AcceptSummaryAction) isAction()   {}

// Intent is what a planned transition wants from the outside world: one
// dialogue-oracle exchange carrying the synthesized query and the
// profile as updated by the action itself.
type Intent struct {
	Query   string
	Profile model.UserProfile
}

// Plan validates an action against the current state and produces the
// oracle intent. Guard violations return an error before any oracle
// call; the state is untouched.
func Plan(state State, action Action) (Intent, error) {
	switch a := action.(type) {
	case MessageAction:
		content := strings.TrimSpace(a.Content)
		if content == "" {
			return Intent{}, common.NewUserError("Escribe un mensaje antes de enviar.", nil)
		}
		return Intent{Query: content, Profile: state.Profile.Clone()}, nil

	case ObjectivesAction:
		return planObjectives(state, a)

	case ConfirmAnalysisAction:
		profile := state.Profile.Clone()
		summary := a.Summary
		profile.ExpensesIncomeSummary = &summary
		return Intent{
			Query:   "He revisado el análisis de mis ingresos y gastos y confirmo las categorías asignadas.",
			Profile: profile,
		}, nil

	case AcceptSummaryAction:
		return Intent{
			Query:   "El resumen de mi perfil es correcto, continuemos.",
			Profile: state.Profile.Clone(),
		}, nil

	default:
		return Intent{}, fmt.Errorf("unknown action type %T", action)
	}
}

func planObjectives(state State, a ObjectivesAction) (Intent, error) {
	items := dedupeObjectives(a.Items)

	switch a.Kind {
	case ObjectivesGeneral:
		if len(items) == 0 {
			return Intent{}, common.NewUserError("Selecciona al menos un objetivo general para continuar.", common.ErrEmptySelection)
		}
		profile := state.Profile.Clone()
		profile.GeneralObjectives = mergeUnique(profile.GeneralObjectives, items)
		return Intent{
			Query:   "He seleccionado estos objetivos generales: " + strings.Join(items, ", ") + ".",
			Profile: profile,
		}, nil

	case ObjectivesSpecific:
		if !state.Profile.HasGeneralObjectives() {
			return Intent{}, common.NewUserError("Primero elige tus objetivos generales.", common.ErrEmptySelection)
		}
		profile := state.Profile.Clone()
		if len(items) == 0 {
			// Explicitly optional: an empty selection is a valid answer.
			return Intent{
				Query:   "No quiero añadir objetivos específicos adicionales.",
				Profile: profile,
			}, nil
		}
		profile.SpecificObjectives = mergeUnique(profile.SpecificObjectives, items)
		return Intent{
			Query:   "He seleccionado estos objetivos específicos: " + strings.Join(items, ", ") + ".",
			Profile: profile,
		}, nil

	default:
		return Intent{}, fmt.Errorf("unknown objective kind %q", a.Kind)
	}
}

// ApplyResult merges a successful oracle exchange into the state: the
// synthesized user turn and the assistant reply are appended, the
// profile is replaced wholesale when the oracle returned one, and the
// next-input hint decides the next affordance.
func ApplyResult(state State, intent Intent, result DialogueOutcome) State {
	next := State{
		Profile:       intent.Profile,
		Messages:      appendMessages(state.Messages, intent.Query, result.Response),
		ExpectedInput: state.ExpectedInput,
	}
	if result.UpdatedProfile != nil {
		next.Profile = result.UpdatedProfile.Clone()
	}
	next.ExpectedInput = nextInput(state.ExpectedInput, result.NextExpectedInput)
	return next
}

// ApplyFailure records an oracle failure: the user's turn stays in the
// history followed by a user-visible assistant error, and the expected
// input does not change so the same affordance is retried.
func ApplyFailure(state State, intent Intent, userMessage string) State {
	return State{
		Profile:       state.Profile,
		Messages:      appendMessages(state.Messages, intent.Query, userMessage),
		ExpectedInput: state.ExpectedInput,
	}
}

// DialogueOutcome is the oracle response as seen by the pure core.
type DialogueOutcome struct {
	Response          string
	UpdatedProfile    *model.UserProfile
	NextExpectedInput model.InputKind
}

// nextInput resolves the next affordance from the oracle hint. An absent
// or unknown hint keeps the current one, defaulting to free conversation
// when nothing was ever set (the machine never hardcodes the first
// state beyond this default).
func nextInput(current, hint model.InputKind) model.InputKind {
	if hint.Valid() {
		return hint
	}
	if current.Valid() {
		return current
	}
	return model.InputGeneralConversation
}

// Window returns the trailing history slice sent to the oracle.
func Window(messages []model.ChatMessage) []model.ChatMessage {
	if len(messages) <= HistoryWindow {
		return messages
	}
	return messages[len(messages)-HistoryWindow:]
}

func appendMessages(messages []model.ChatMessage, query, response string) []model.ChatMessage {
	out := make([]model.ChatMessage, 0, len(messages)+2)
	out = append(out, messages...)
	if query != "" {
		out = append(out, model.ChatMessage{Role: model.RoleUser, Content: query})
	}
	if response != "" {
		out = append(out, model.ChatMessage{Role: model.RoleAssistant, Content: response})
	}
	return out
}

func dedupeObjectives(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || seen[strings.ToLower(item)] {
			continue
		}
		seen[strings.ToLower(item)] = true
		out = append(out, item)
	}
	return out
}

func mergeUnique(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, item := range existing {
		seen[strings.ToLower(item)] = true
	}
	for _, item := range incoming {
		if !seen[strings.ToLower(item)] {
			seen[strings.ToLower(item)] = true
			out = append(out, item)
		}
	}
	return out
}
