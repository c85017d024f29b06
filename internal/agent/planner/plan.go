// Package planner implements the Plan / PlanPatch data model, its parsing
// protocol (including tool-call coercion), and PlanPatch merge semantics.
package planner

import "github.com/agentcore/orchestrator/internal/agent/tools"

// StepStatus is the lifecycle state of a single plan Step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepDone       StepStatus = "done"
	StepFailed     StepStatus = "failed"
	StepSkipped    StepStatus = "skipped"
)

// Step is one unit of work within a Plan.
type Step struct {
	ID            string       `json:"id"`
	Description   string       `json:"description"`
	Dependencies  []string     `json:"dependencies,omitempty"`
	ToolsExpected []tools.Ident `json:"tools_expected,omitempty"`
	Status        StepStatus   `json:"status"`
	// FailureReason is set when Status is StepFailed (e.g.,
	// "dependency_removed" after a cascading PlanPatch removal).
	FailureReason string `json:"failure_reason,omitempty"`
}

// FullPlan is the complete, ordered sequence of Steps for a turn.
type FullPlan struct {
	Type  string `json:"type"` // always "FullPlan" on the wire
	Title string `json:"title"`
	Steps []Step `json:"steps"`
}

// PatchOp names the operation a single PlanPatch change performs.
type PatchOp string

const (
	PatchOpAdd     PatchOp = "add"
	PatchOpReplace PatchOp = "replace"
	PatchOpRemove  PatchOp = "remove"
)

// PatchChange is one entry in a PlanPatch's Changes list.
type PatchChange struct {
	Op PatchOp `json:"op"`
	// AfterID anchors an "add" op: the new step is inserted immediately
	// after the step with this id. Empty means insert at the head.
	AfterID string `json:"after_id,omitempty"`
	// StepID identifies the target step for "replace" and "remove".
	StepID string `json:"step_id,omitempty"`
	// Step carries the new/replacement step body for "add" and "replace".
	Step *Step `json:"step,omitempty"`
}

// PlanPatch is an incremental change set produced by the Replanner (or, on
// initial planning, never — FullPlan is required the first time).
type PlanPatch struct {
	Type    string        `json:"type"` // always "PlanPatch" on the wire
	Changes []PatchChange `json:"changes"`
}

// ParsedPlan is the tagged union the parser produces: exactly one of Full or
// Patch is populated, matching the "duck-typed plan-ish output" design note.
type ParsedPlan struct {
	Full  *FullPlan
	Patch *PlanPatch
}
