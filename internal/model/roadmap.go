package model

import "fmt"

// StepStatus is the lifecycle state of one roadmap step.
type StepStatus string

// Roadmap step status constants. Steps only move forward:
// pending -> in_progress -> completed.
const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepCompleted  StepStatus = "completed"
)

// CanTransitionTo reports whether moving from s to next honors the
// monotonic step lifecycle.
func (s StepStatus) CanTransitionTo(next StepStatus) bool {
	switch s {
	case StepPending:
		return next == StepInProgress
	case StepInProgress:
		return next == StepCompleted
	default:
		return false
	}
}

// RoadmapStep maps one user-selected specific objective to a guided
// sub-flow. Objective is the unique key within its roadmap.
type RoadmapStep struct {
	Objective      string     `json:"objective"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	FlowIdentifier string     `json:"flowIdentifier"`
	Status         StepStatus `json:"status"`
}

// Roadmap is the ordered guided plan generated from the user's specific
// objectives. At most one step is in_progress at any time.
type Roadmap struct {
	Introduction string        `json:"introduction"`
	Steps        []RoadmapStep `json:"steps"`
}

// ActiveStep returns the step currently in progress, or nil.
func (r *Roadmap) ActiveStep() *RoadmapStep {
	if r == nil {
		return nil
	}
	for i := range r.Steps {
		if r.Steps[i].Status == StepInProgress {
			return &r.Steps[i]
		}
	}
	return nil
}

// StepByObjective returns the step keyed by objective, or nil.
func (r *Roadmap) StepByObjective(objective string) *RoadmapStep {
	if r == nil {
		return nil
	}
	for i := range r.Steps {
		if r.Steps[i].Objective == objective {
			return &r.Steps[i]
		}
	}
	return nil
}

// Validate checks roadmap structural invariants: unique objective keys
// and at most one in-progress step.
func (r *Roadmap) Validate() error {
	seen := make(map[string]bool, len(r.Steps))
	active := 0
	for i, step := range r.Steps {
		if step.Objective == "" {
			return fmt.Errorf("step %d: objective key is required", i)
		}
		if seen[step.Objective] {
			return fmt.Errorf("duplicate objective %q in roadmap", step.Objective)
		}
		seen[step.Objective] = true
		if step.Status == StepInProgress {
			active++
		}
	}
	if active > 1 {
		return fmt.Errorf("roadmap has %d steps in progress, want at most 1", active)
	}
	return nil
}
