// Package events implements the Event/Audit Bus: every significant
// orchestrator action emits an Event, which is redacted, appended to a
// line-delimited audit log, and fanned out to in-process subscribers
// non-blockingly — a slow subscriber is dropped for that event rather than
// stalling the publisher or other subscribers.
package events

import "time"

// Kind names a category of event. The orchestrator emits one of these
// per significant action.
type Kind string

const (
	KindTurnStart         Kind = "turn_start"
	KindIntentClassified  Kind = "intent_classified"
	KindPlanGenerated     Kind = "plan_generated"
	KindToolCallStarted   Kind = "tool_call_started"
	KindToolCallCompleted Kind = "tool_call_completed"
	KindControlSignal     Kind = "control_signal"
	KindApprovalRequired  Kind = "approval_required"
	KindPolicyDenyPath    Kind = "policy_deny_path"
	KindPolicyDenyCommand Kind = "policy_deny_command"
	KindLLMRequestParams  Kind = "llm_request_params"
	KindLLMResponse       Kind = "llm_response"
	KindLLMError          Kind = "llm_error"
	KindTurnComplete      Kind = "turn_complete"
)

// Event is one structured, append-only audit record.
type Event struct {
	TS        time.Time      `json:"ts"`
	TraceID   string         `json:"trace_id"`
	SessionID string         `json:"session_id"`
	ProjectID string         `json:"project_id"`
	Kind      Kind           `json:"kind"`
	Data      map[string]any `json:"data,omitempty"`
}
