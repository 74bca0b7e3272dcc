package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/borjamrd/hormiwita/internal/model"
)

// dialoguePayload is the JSON shape the dialogue oracle is asked to
// produce.
type dialoguePayload struct {
	Response          string             `json:"response"`
	UpdatedUserData   *model.UserProfile `json:"updatedUserData,omitempty"`
	NextExpectedInput string             `json:"nextExpectedInput,omitempty"`
}

// categorizationPayload is the JSON shape the classification oracle is
// asked to produce.
type categorizationPayload struct {
	CategorizedItems []model.CategorizedItem `json:"categorizedItems"`
}

// roadmapPayload is the JSON shape the roadmap oracle is asked to
// produce.
type roadmapPayload struct {
	Introduction string              `json:"introduction"`
	Steps        []model.RoadmapStep `json:"steps"`
}

// extractJSON pulls the JSON object out of a model response, tolerating
// markdown code fences and prose around the payload.
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)

	// Strip markdown fences like ```json ... ```
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return content[start : end+1], nil
}

func parseDialogue(content string) (*dialoguePayload, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var payload dialoguePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode dialogue response: %w", err)
	}
	if payload.Response == "" {
		return nil, fmt.Errorf("dialogue response has no text")
	}
	return &payload, nil
}

func parseCategorization(content string) (*categorizationPayload, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var payload categorizationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode categorization response: %w", err)
	}
	return &payload, nil
}

func parseRoadmap(content string) (*roadmapPayload, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var payload roadmapPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode roadmap response: %w", err)
	}
	if len(payload.Steps) == 0 {
		return nil, fmt.Errorf("roadmap response has no steps")
	}
	return &payload, nil
}
