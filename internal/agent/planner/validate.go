package planner

import "fmt"

// ValidationError reports a structural invariant violation in a FullPlan.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "planner: " + e.Reason }

// Validate checks the structural invariants from and that must hold
// for any FullPlan before execution resumes: unique step ids, dependencies
// referencing only existing ids, and at most one step in_progress.
func Validate(p *FullPlan) error {
	ids := make(map[string]struct{}, len(p.Steps))
	inProgress := 0
	for _, s := range p.Steps {
		if s.ID == "" {
			return &ValidationError{Reason: "step has empty id"}
		}
		if _, dup := ids[s.ID]; dup {
			return &ValidationError{Reason: fmt.Sprintf("duplicate step id %q", s.ID)}
		}
		ids[s.ID] = struct{}{}
		if s.Status == StepInProgress {
			inProgress++
		}
	}
	if inProgress > 1 {
		return &ValidationError{Reason: "more than one step is in_progress"}
	}
	for _, s := range p.Steps {
		// A failed or skipped step is terminal: it will never be started, so
		// a dependency left dangling by a cascading removal does not
		// violate the invariant.
		if s.Status == StepFailed || s.Status == StepSkipped {
			continue
		}
		for _, dep := range s.Dependencies {
			if _, ok := ids[dep]; !ok {
				return &ValidationError{Reason: fmt.Sprintf("step %q depends on unknown id %q", s.ID, dep)}
			}
		}
	}
	return nil
}

// ReadyToStart reports whether step s may leave StepPending: all of its
// dependencies, looked up in byID, must be StepDone.
func ReadyToStart(s Step, byID map[string]Step) bool {
	for _, dep := range s.Dependencies {
		d, ok := byID[dep]
		if !ok || d.Status != StepDone {
			return false
		}
	}
	return true
}

// IndexByID returns a lookup map from step id to Step for p.Steps.
func IndexByID(p *FullPlan) map[string]Step {
	out := make(map[string]Step, len(p.Steps))
	for _, s := range p.Steps {
		out[s.ID] = s
	}
	return out
}
