package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/model"
	"github.com/borjamrd/hormiwita/internal/service"
)

// Oracles bundles the oracle implementations sharing one backend client,
// rate limiter and retry policy.
type Oracles struct {
	Dialogue *DialogueOracle
	Classify *ClassificationOracle
	Roadmap  *RoadmapOracle
	Guided   *GuidedFlowOracle
}

// core holds what every oracle needs.
type core struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   service.RetryOptions
}

func (c *core) generate(ctx context.Context, system, prompt string) (string, error) {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return "", err
	}
	var out string
	err := common.WithRetry(ctx, func() error {
		text, genErr := c.client.Generate(ctx, system, prompt)
		if genErr != nil {
			return genErr
		}
		out = text
		return nil
	}, c.retryOpts)
	return out, err
}

// NewOracles creates the oracle set for the given client.
func NewOracles(client Client, cfg Config, logger *slog.Logger) *Oracles {
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
	c := &core{
		client:      client,
		logger:      logger,
		rateLimiter: newRateLimiter(cfg.RateLimit),
		retryOpts:   retryOpts,
	}
	return &Oracles{
		Dialogue: &DialogueOracle{core: c},
		Classify: &ClassificationOracle{core: c},
		Roadmap:  &RoadmapOracle{core: c},
		Guided:   &GuidedFlowOracle{core: c},
	}
}

// Close releases the shared rate limiter.
func (o *Oracles) Close() {
	o.Dialogue.core.rateLimiter.Close()
}

// DialogueOracle implements service.DialogueOracle against the backend.
type DialogueOracle struct {
	core *core
}

const dialogueSystemPrompt = `Eres hormiwita, un asesor financiero personal que guía al usuario
por un proceso de onboarding: nombre, objetivos generales, objetivos específicos,
análisis de ingresos y gastos y resumen final.
Responde SIEMPRE con un único objeto JSON con esta forma:
{"response": "<texto para el usuario>",
 "updatedUserData": {<perfil actualizado, opcional>},
 "nextExpectedInput": "<general_conversation|general_objectives_selection|specific_objectives_selection|expense_income_upload|summary_display>"}
No añadas nada fuera del JSON.`

// Generate runs one dialogue exchange.
func (d *DialogueOracle) Generate(ctx context.Context, query string, history []model.ChatMessage, profile model.UserProfile) (*service.DialogueResult, error) {
	prompt, err := buildDialoguePrompt(query, history, profile)
	if err != nil {
		return nil, err
	}

	content, err := d.core.generate(ctx, dialogueSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}

	payload, err := parseDialogue(content)
	if err != nil {
		d.core.logger.Warn("unparseable dialogue response", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	result := &service.DialogueResult{
		Response:        payload.Response,
		UpdatedUserData: payload.UpdatedUserData,
	}
	if hint := model.InputKind(payload.NextExpectedInput); hint.Valid() {
		result.NextExpectedInput = hint
	}
	return result, nil
}

func buildDialoguePrompt(query string, history []model.ChatMessage, profile model.UserProfile) (string, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}

	var b strings.Builder
	b.WriteString("Perfil actual del usuario:\n")
	b.Write(profileJSON)
	b.WriteString("\n\nConversación reciente:\n")
	for _, msg := range history {
		fmt.Fprintf(&b, "[%s] %s\n", msg.Role, msg.Content)
	}
	if query == "" {
		b.WriteString("\nEl usuario acaba de llegar. Salúdale y comienza el onboarding.")
	} else {
		fmt.Fprintf(&b, "\nMensaje del usuario: %s", query)
	}
	return b.String(), nil
}

// ClassificationOracle implements service.ClassificationOracle.
type ClassificationOracle struct {
	core *core
}

const classifySystemPrompt = `Eres un clasificador de movimientos bancarios.
Asigna a cada proveedor una categoría. Prefiere las categorías existentes
que se te proporcionan, pero puedes proponer otras si encajan mejor.
Responde SOLO con un objeto JSON:
{"categorizedItems": [{"providerName": "...", "totalAmount": 0, "transactionCount": 0, "suggestedCategory": "..."}]}`

// Categorize labels one whole batch in a single model call.
func (c *ClassificationOracle) Categorize(ctx context.Context, items []model.ProviderSummary, itemType service.ItemType, existingCategories []string, language string) ([]model.CategorizedItem, error) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Tipo de movimientos: %s\nIdioma de las categorías: %s\n", itemType, language)
	if len(existingCategories) > 0 {
		fmt.Fprintf(&b, "Categorías existentes: %s\n", strings.Join(existingCategories, ", "))
	}
	b.WriteString("Proveedores a clasificar:\n")
	b.Write(itemsJSON)

	content, err := c.core.generate(ctx, classifySystemPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}

	payload, err := parseCategorization(content)
	if err != nil {
		c.core.logger.Warn("unparseable categorization response", "item_type", itemType, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	return payload.CategorizedItems, nil
}

// RoadmapOracle implements service.RoadmapOracle.
type RoadmapOracle struct {
	core *core
}

const roadmapSystemPrompt = `Genera una hoja de ruta financiera personalizada.
Cada objetivo específico del usuario se convierte en un paso guiado.
Responde SOLO con un objeto JSON:
{"introduction": "...",
 "steps": [{"objective": "...", "title": "...", "description": "...", "flowIdentifier": "..."}]}`

// Generate creates a roadmap from the user's name and specific objectives.
func (r *RoadmapOracle) Generate(ctx context.Context, name string, specificObjectives []string) (*model.Roadmap, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Nombre del usuario: %s\n", name)
	b.WriteString("Objetivos específicos:\n")
	for _, obj := range specificObjectives {
		fmt.Fprintf(&b, "- %s\n", obj)
	}

	content, err := r.core.generate(ctx, roadmapSystemPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}

	payload, err := parseRoadmap(content)
	if err != nil {
		r.core.logger.Warn("unparseable roadmap response", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	steps := make([]model.RoadmapStep, 0, len(payload.Steps))
	for _, step := range payload.Steps {
		step.Status = model.StepPending
		steps = append(steps, step)
	}
	return &model.Roadmap{Introduction: payload.Introduction, Steps: steps}, nil
}

// GuidedFlowOracle implements service.GuidedFlowOracle.
type GuidedFlowOracle struct {
	core *core
}

const guidedSystemPrompt = `Eres un asesor financiero guiando al usuario por un
sub-flujo concreto de su hoja de ruta. Responde en texto plano, en español,
de forma breve y accionable.`

// StreamGenerate streams one guided sub-flow turn.
func (g *GuidedFlowOracle) StreamGenerate(ctx context.Context, history []model.ChatMessage, flowContext string) (*service.GuidedFlowStream, error) {
	if err := g.core.rateLimiter.wait(ctx); err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Sub-flujo activo: %s\n\nConversación reciente:\n", flowContext)
	for _, msg := range history {
		fmt.Fprintf(&b, "[%s] %s\n", msg.Role, msg.Content)
	}

	stream, err := g.core.client.GenerateStream(ctx, guidedSystemPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrOracleUnavailable, err)
	}
	return stream, nil
}
