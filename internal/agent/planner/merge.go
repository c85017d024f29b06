package planner

import "fmt"

// ConflictError signals that a PlanPatch change could not be applied
// because its target step is in a state that forbids the requested
// mutation.
type ConflictError struct {
	StepID string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("E_CONFLICT: step %q: %s", e.StepID, e.Reason)
}

// MergePatch applies patch to base, producing a new FullPlan. It implements
// the merge semantics:
//
//   - add-after-id: insert the new step immediately after AfterID (or at the
//     head if AfterID is empty).
//   - replace-by-id: replace the step body, preserving the existing step's
//     Dependencies unless the replacement explicitly supplies its own
//     (non-nil) Dependencies.
//   - remove-by-id: delete the step, cascading failure to any step that
//     depended on it (status becomes failed, reason "dependency_removed").
//
// The merged plan is re-validated (Validate) before being returned.
func MergePatch(base *FullPlan, patch *PlanPatch) (*FullPlan, error) {
	steps := make([]Step, len(base.Steps))
	copy(steps, base.Steps)

	byID := func() map[string]int {
		m := make(map[string]int, len(steps))
		for i, s := range steps {
			m[s.ID] = i
		}
		return m
	}

	for _, change := range patch.Changes {
		index := byID()

		switch change.Op {
		case PatchOpAdd:
			if change.Step == nil {
				return nil, fmt.Errorf("planner: add change missing step body")
			}
			if _, exists := index[change.Step.ID]; exists {
				return nil, fmt.Errorf("planner: add change reuses existing id %q", change.Step.ID)
			}
			newStep := *change.Step
			if newStep.Status == "" {
				newStep.Status = StepPending
			}
			if change.AfterID == "" {
				steps = append([]Step{newStep}, steps...)
				continue
			}
			pos, ok := index[change.AfterID]
			if !ok {
				return nil, fmt.Errorf("planner: add change after unknown id %q", change.AfterID)
			}
			steps = append(steps[:pos+1], append([]Step{newStep}, steps[pos+1:]...)...)

		case PatchOpReplace:
			pos, ok := index[change.StepID]
			if !ok {
				return nil, fmt.Errorf("planner: replace change targets unknown id %q", change.StepID)
			}
			target := steps[pos]
			if target.Status == StepInProgress {
				return nil, &ConflictError{StepID: target.ID, Reason: "cannot replace a step that is in_progress"}
			}
			if change.Step == nil {
				return nil, fmt.Errorf("planner: replace change missing step body")
			}
			replacement := *change.Step
			replacement.ID = target.ID
			if replacement.Dependencies == nil {
				replacement.Dependencies = target.Dependencies
			}
			if replacement.Status == "" {
				replacement.Status = StepPending
			}
			steps[pos] = replacement

		case PatchOpRemove:
			pos, ok := index[change.StepID]
			if !ok {
				return nil, fmt.Errorf("planner: remove change targets unknown id %q", change.StepID)
			}
			target := steps[pos]
			if target.Status == StepInProgress && target.Status != StepFailed {
				return nil, &ConflictError{StepID: target.ID, Reason: "cannot remove a step that is in_progress"}
			}
			removedID := target.ID
			steps = append(steps[:pos], steps[pos+1:]...)
			for i := range steps {
				for _, dep := range steps[i].Dependencies {
					if dep == removedID && steps[i].Status != StepDone {
						steps[i].Status = StepFailed
						steps[i].FailureReason = "dependency_removed"
						break
					}
				}
			}

		default:
			return nil, fmt.Errorf("planner: unknown patch op %q", change.Op)
		}
	}

	merged := &FullPlan{Type: "FullPlan", Title: base.Title, Steps: steps}
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}
