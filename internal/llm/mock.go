package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/model"
	"github.com/borjamrd/hormiwita/internal/service"
)

// MockOracles provides deterministic oracle implementations for tests
// and for running the service without a model backend. Error injection
// fields force failure paths.
type MockOracles struct {
	FailDialogue bool
	FailClassify bool
	FailRoadmap  bool
	FailGuided   bool

	// DialogueCalls counts Generate invocations.
	DialogueCalls int
	// ClassifyCalls counts Categorize invocations.
	ClassifyCalls int
}

// NewMockOracles creates the mock oracle set.
func NewMockOracles() *MockOracles {
	return &MockOracles{}
}

// Generate scripts the onboarding progression from the profile contents:
// name, then general objectives, then specific objectives, then the
// statement upload, then the summary.
func (m *MockOracles) Generate(_ context.Context, query string, _ []model.ChatMessage, profile model.UserProfile) (*service.DialogueResult, error) {
	m.DialogueCalls++
	if m.FailDialogue {
		return nil, common.ErrOracleUnavailable
	}

	updated := profile.Clone()

	switch {
	case query == "" && profile.Name == "":
		return &service.DialogueResult{
			Response:          "¡Hola! Soy hormiwita, tu asesor financiero. ¿Cómo te llamas?",
			NextExpectedInput: model.InputGeneralConversation,
		}, nil

	case profile.Name == "":
		updated.Name = strings.TrimSpace(query)
		return &service.DialogueResult{
			Response:          fmt.Sprintf("Encantado, %s. Elige tus objetivos generales.", updated.Name),
			UpdatedUserData:   &updated,
			NextExpectedInput: model.InputGeneralObjectives,
		}, nil

	case len(profile.GeneralObjectives) == 0:
		return &service.DialogueResult{
			Response:          "Cuéntame qué objetivos generales te gustaría trabajar.",
			UpdatedUserData:   &updated,
			NextExpectedInput: model.InputGeneralObjectives,
		}, nil

	case len(profile.SpecificObjectives) == 0 && !strings.Contains(query, "específicos adicionales"):
		return &service.DialogueResult{
			Response:          "Perfecto. Ahora concreta objetivos específicos si quieres.",
			UpdatedUserData:   &updated,
			NextExpectedInput: model.InputSpecificObjectives,
		}, nil

	case profile.ExpensesIncomeSummary == nil:
		return &service.DialogueResult{
			Response:          "Sube tu extracto bancario para analizar tus ingresos y gastos.",
			UpdatedUserData:   &updated,
			NextExpectedInput: model.InputStatementUpload,
		}, nil

	default:
		return &service.DialogueResult{
			Response:          "Este es el resumen de tu perfil financiero.",
			UpdatedUserData:   &updated,
			NextExpectedInput: model.InputSummaryDisplay,
		}, nil
	}
}

// categoryRules maps provider-name fragments to mock categories.
var categoryRules = []struct {
	fragment string
	category string
}{
	{"nomina", "Nómina"},
	{"nómina", "Nómina"},
	{"salario", "Nómina"},
	{"netflix", "Suscripciones"},
	{"spotify", "Suscripciones"},
	{"hbo", "Suscripciones"},
	{"mercadona", "Supermercado"},
	{"carrefour", "Supermercado"},
	{"lidl", "Supermercado"},
	{"restaurante", "Restaurantes y Ocio"},
	{"bar ", "Restaurantes y Ocio"},
	{"amazon", "Compras Online"},
	{"aliexpress", "Compras Online"},
}

// Categorize assigns categories from fixed keyword rules.
func (m *MockOracles) Categorize(_ context.Context, items []model.ProviderSummary, itemType service.ItemType, _ []string, _ string) ([]model.CategorizedItem, error) {
	m.ClassifyCalls++
	if m.FailClassify {
		return nil, common.ErrOracleUnavailable
	}

	out := make([]model.CategorizedItem, 0, len(items))
	for _, item := range items {
		category := ""
		name := strings.ToLower(item.ProviderName)
		for _, rule := range categoryRules {
			if strings.Contains(name, rule.fragment) {
				category = rule.category
				break
			}
		}
		if category == "" {
			if itemType == service.ItemTypeIncome {
				category = "Otros Ingresos"
			} else {
				category = "Otros Gastos"
			}
		}
		out = append(out, model.CategorizedItem{ProviderSummary: item, SuggestedCategory: category})
	}
	return out, nil
}

// Generate builds one pending step per specific objective.
func (m *MockOracles) GenerateRoadmap(_ context.Context, name string, specificObjectives []string) (*model.Roadmap, error) {
	if m.FailRoadmap {
		return nil, common.ErrOracleUnavailable
	}

	steps := make([]model.RoadmapStep, 0, len(specificObjectives))
	for _, obj := range specificObjectives {
		steps = append(steps, model.RoadmapStep{
			Objective:      obj,
			Title:          obj,
			Description:    "Trabajaremos juntos en: " + obj,
			FlowIdentifier: slugify(obj),
			Status:         model.StepPending,
		})
	}
	return &model.Roadmap{
		Introduction: fmt.Sprintf("%s, esta es tu hoja de ruta personalizada.", name),
		Steps:        steps,
	}, nil
}

// StreamGenerate yields a canned guided-flow answer word by word.
func (m *MockOracles) StreamGenerate(_ context.Context, _ []model.ChatMessage, flowContext string) (*service.GuidedFlowStream, error) {
	if m.FailGuided {
		return nil, common.ErrOracleUnavailable
	}

	words := strings.Fields("Vamos paso a paso con " + flowContext + ". Empieza registrando tus gastos de esta semana.")
	chunks := make(chan string)
	done := make(chan struct{})
	var full strings.Builder

	go func() {
		defer close(chunks)
		defer close(done)
		for i, word := range words {
			chunk := word
			if i < len(words)-1 {
				chunk += " "
			}
			full.WriteString(chunk)
			chunks <- chunk
		}
	}()

	return &service.GuidedFlowStream{
		Chunks: chunks,
		Final: func() (string, error) {
			<-done
			return full.String(), nil
		},
	}, nil
}

// roadmapAdapter lets MockOracles satisfy service.RoadmapOracle despite
// the method-name clash with the dialogue contract.
type roadmapAdapter struct {
	mock *MockOracles
}

func (a roadmapAdapter) Generate(ctx context.Context, name string, specificObjectives []string) (*model.Roadmap, error) {
	return a.mock.GenerateRoadmap(ctx, name, specificObjectives)
}

// AsRoadmapOracle exposes the mock as a service.RoadmapOracle.
func (m *MockOracles) AsRoadmapOracle() service.RoadmapOracle {
	return roadmapAdapter{mock: m}
}

func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}
