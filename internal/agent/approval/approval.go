// Package approval implements the file-backed Approval Store: one
// JSON file per ApprovalRequest under the session's approvals/ directory,
// written atomically via temp-file-then-rename.
package approval

import (
	"time"

	"github.com/agentcore/orchestrator/internal/agent/policy"
)

// Status is the lifecycle state of an ApprovalRequest.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Request is one pending-or-decided approval gate, persisted across turns
// until decided.
type Request struct {
	ID          string           `json:"id"`
	TraceID     string           `json:"trace_id"`
	RiskLevel   policy.RiskLevel `json:"risk_level"`
	IntentName  string           `json:"intent_name"`
	PlanSummary string           `json:"plan_summary"`
	Status      Status           `json:"status"`
	RequestedAt time.Time        `json:"requested_at"`
	DecidedAt   *time.Time       `json:"decided_at,omitempty"`
	DecidedBy   string           `json:"decided_by,omitempty"`
	Comment     string           `json:"comment,omitempty"`
}
