// Package roadmap governs progression through a generated roadmap:
// exactly one step in progress at a time, moving only forward.
// Generating the roadmap itself is the roadmap oracle's job.
package roadmap

import (
	"fmt"

	"github.com/borjamrd/hormiwita/internal/common"
	"github.com/borjamrd/hormiwita/internal/model"
)

// ActivateNextStep marks the first pending step (stable array order) as
// in progress and returns it. If a step is already in progress that step
// is returned unchanged, so no second step is ever activated alongside
// it. Returns nil when there is no roadmap or nothing is pending.
func ActivateNextStep(r *model.Roadmap) *model.RoadmapStep {
	if r == nil {
		return nil
	}
	if active := r.ActiveStep(); active != nil {
		return active
	}
	for i := range r.Steps {
		if r.Steps[i].Status == model.StepPending {
			r.Steps[i].Status = model.StepInProgress
			return &r.Steps[i]
		}
	}
	return nil
}

// CompleteStep marks the named step as completed, clearing the active
// slot so the next ActivateNextStep call can advance. Completing a step
// that never went through in_progress is rejected: steps move forward
// only.
func CompleteStep(r *model.Roadmap, objective string) error {
	if r == nil {
		return common.ErrNoRoadmap
	}
	step := r.StepByObjective(objective)
	if step == nil {
		return fmt.Errorf("%w: %q", common.ErrUnknownStep, objective)
	}
	if step.Status == model.StepCompleted {
		return nil
	}
	if !step.Status.CanTransitionTo(model.StepCompleted) {
		return fmt.Errorf("step %q is %s, cannot complete", objective, step.Status)
	}
	step.Status = model.StepCompleted
	return nil
}

// Remaining counts the steps not yet completed.
func Remaining(r *model.Roadmap) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, step := range r.Steps {
		if step.Status != model.StepCompleted {
			n++
		}
	}
	return n
}
