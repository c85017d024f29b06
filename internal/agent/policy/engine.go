package policy

import (
	"fmt"

	"github.com/agentcore/orchestrator/internal/agent/tools"
)

type (
	// ApprovalChecker is the narrow view of the Approval Store the Engine
	// needs: whether a plan summary already has an approved (non-expired)
	// ApprovalRequest. Defined here rather than imported from package
	// approval to avoid a dependency cycle (approval persists ApprovalRequest
	// records whose lifecycle the Engine only needs to query, not own).
	ApprovalChecker interface {
		IsApproved(planSummary string) bool
	}

	// Options configures an Engine: an explicit allow/deny surface plus the
	// gates layered on top of it (sandbox, command list, approval).
	Options struct {
		Sandbox   *Sandbox
		Command   CommandPolicy
		Approvals ApprovalChecker
		// MediumRiskRequiresConfirm gates medium-risk steps behind a
		// lightweight confirm (write confirm / exec confirm) rather than a
		// full ApprovalRequest. Callers supply the confirm decision inline
		// via Decide's confirmed parameter.
		MediumRiskRequiresConfirm bool
		// AllowedTools, when non-empty, is the sole set of tools any step may
		// dispatch; anything outside it is denied regardless of risk.
		AllowedTools []string
		// DisallowedTools denies specific tools outright, checked before
		// AllowedTools so the two can be combined (an explicit deny always
		// wins over an allowlist entry).
		DisallowedTools []string
	}

	// Engine is the process-wide policy gate consulted by the dispatcher
	// before every tool invocation.
	Engine struct {
		opts          Options
		allowedSet    map[tools.Ident]struct{}
		disallowedSet map[tools.Ident]struct{}
	}

	// Decision is the outcome of evaluating one step against the policy
	// gates. ErrorCode, when non-empty, is one of the dispatcher's
	// E_PATH_DENIED / E_CMD_DENIED / E_APPROVAL_REQUIRED failure codes.
	Decision struct {
		Allow     bool
		ErrorCode string
		Reason    string
	}
)

// NewEngine constructs an Engine from Options.
func NewEngine(opts Options) *Engine {
	e := &Engine{opts: opts}
	if len(opts.AllowedTools) > 0 {
		e.allowedSet = make(map[tools.Ident]struct{}, len(opts.AllowedTools))
		for _, name := range opts.AllowedTools {
			e.allowedSet[tools.Ident(name)] = struct{}{}
		}
	}
	if len(opts.DisallowedTools) > 0 {
		e.disallowedSet = make(map[tools.Ident]struct{}, len(opts.DisallowedTools))
		for _, name := range opts.DisallowedTools {
			e.disallowedSet[tools.Ident(name)] = struct{}{}
		}
	}
	return e
}

// DecideStep evaluates a tool step against risk- and tool-level gates. argv,
// when non-nil, is the command line a command-executing tool would run;
// paths lists the paths a file-touching tool would access. confirmed
// reflects a medium-risk write/exec confirm already obtained from the user
// for this step, if any.
func (e *Engine) DecideStep(ident tools.Ident, risk RiskLevel, planSummary string, argv []string, paths []string, confirmed bool) Decision {
	if _, denied := e.disallowedSet[ident]; denied {
		return Decision{Allow: false, ErrorCode: "E_CMD_DENIED", Reason: fmt.Sprintf("tool %q is disallowed by policy", ident)}
	}
	if e.allowedSet != nil {
		if _, allowed := e.allowedSet[ident]; !allowed {
			return Decision{Allow: false, ErrorCode: "E_CMD_DENIED", Reason: fmt.Sprintf("tool %q is not in the allowed_tools list", ident)}
		}
	}
	if argv != nil {
		if err := e.opts.Command.CheckCommand(argv); err != nil {
			return Decision{Allow: false, ErrorCode: "E_CMD_DENIED", Reason: err.Error()}
		}
	}
	if e.opts.Sandbox != nil {
		for _, p := range paths {
			if _, err := e.opts.Sandbox.CheckPath(p, PathWrite); err != nil {
				return Decision{Allow: false, ErrorCode: "E_PATH_DENIED", Reason: err.Error()}
			}
		}
	}

	switch {
	case risk >= RiskHigh:
		if e.opts.Approvals == nil || !e.opts.Approvals.IsApproved(planSummary) {
			return Decision{Allow: false, ErrorCode: "E_APPROVAL_REQUIRED", Reason: "high/critical risk step requires an approved plan"}
		}
	case risk == RiskMedium:
		if e.opts.MediumRiskRequiresConfirm && !confirmed {
			return Decision{Allow: false, ErrorCode: "E_APPROVAL_REQUIRED", Reason: "medium risk step requires write/exec confirm"}
		}
	}
	return Decision{Allow: true}
}
