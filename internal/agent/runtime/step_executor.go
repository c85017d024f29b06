package runtime

import (
	"context"
	"fmt"

	"github.com/agentcore/orchestrator/internal/agent/cache"
	"github.com/agentcore/orchestrator/internal/agent/dispatch"
	"github.com/agentcore/orchestrator/internal/agent/feedback"
	"github.com/agentcore/orchestrator/internal/agent/model"
	"github.com/agentcore/orchestrator/internal/agent/planner"
	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/promptcompose"
	"github.com/agentcore/orchestrator/internal/agent/telemetry"
)

// Built-in defaults for the per-step loop's hard limits; a Limits
// value supplied by config overrides them.
const (
	defaultIterPerStep      = 20
	defaultStutterWindow    = 8
	defaultStutterThreshold = 3
	maxInvalidOutputs       = 3
)

// StepExecutor drives the per-step loop build the step
// prompt, request a completion, parse it as a control envelope, tool call,
// or legacy token, dispatch any tool call, and fold the shaped feedback
// back into the running transcript.
type StepExecutor struct {
	client     model.Client
	modelName  string
	composer   *promptcompose.Composer
	dispatcher *dispatch.Dispatcher
	shaper     *feedback.Shaper
	logger     telemetry.Logger

	iterPerStep      int
	stutterWindow    int
	stutterThreshold int
}

// StepExecutorOptions configures a StepExecutor.
type StepExecutorOptions struct {
	Client           model.Client
	ModelName        string
	Composer         *promptcompose.Composer
	Dispatcher       *dispatch.Dispatcher
	Shaper           *feedback.Shaper
	Logger           telemetry.Logger
	IterPerStep      int
	StutterWindow    int
	StutterThreshold int
}

// NewStepExecutor constructs a StepExecutor from opts, defaulting unset caps
// to the defaults.
func NewStepExecutor(opts StepExecutorOptions) *StepExecutor {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	iterPerStep := opts.IterPerStep
	if iterPerStep <= 0 {
		iterPerStep = defaultIterPerStep
	}
	window := opts.StutterWindow
	if window <= 0 {
		window = defaultStutterWindow
	}
	threshold := opts.StutterThreshold
	if threshold <= 0 {
		threshold = defaultStutterThreshold
	}
	return &StepExecutor{
		client:           opts.Client,
		modelName:        opts.ModelName,
		composer:         opts.Composer,
		dispatcher:       opts.Dispatcher,
		shaper:           opts.Shaper,
		logger:           logger,
		iterPerStep:      iterPerStep,
		stutterWindow:    window,
		stutterThreshold: threshold,
	}
}

// StepOutcome reports how one step's loop ended.
type StepOutcome struct {
	Status        planner.StepStatus
	FailureReason string
	// Replan is set when the step loop ended with a replan request, either
	// because the model emitted {"control":"replan"} or because the
	// stutter detector fired.
	Replan       bool
	ReplanReason string
	// TurnExhausted is set when the shared turn-level iteration budget ran
	// out mid-step; the step itself is left exactly as it was (still
	// in_progress) for the orchestrator to classify as MAX_ITER.
	TurnExhausted bool
	// ApprovalRequired is set when a tool dispatch came back E_APPROVAL_REQUIRED.
	// The step is not retried: the orchestrator must surface
	// WAITING_FOR_APPROVAL rather than burn iterations on a call the
	// policy engine will keep refusing.
	ApprovalRequired bool
	// PolicyDenied is set when a tool dispatch came back E_PATH_DENIED or
	// E_CMD_DENIED. Like ApprovalRequired, this is never retried blindly;
	// it is surfaced as a replan so the model can choose a different
	// approach, with ReplanReason carrying the denial code.
	PolicyDenied bool
}

// StepCall carries everything one RunStep invocation needs: the plan
// context, the step to execute, the running transcript (mutated in place so
// the orchestrator observes every tool call and feedback message in
// issuance order), and identifiers for dispatch/events.
type StepCall struct {
	Profile       string
	PlanTitle     string
	Step          planner.Step
	Transcript    *[]model.Message
	TraceID       string
	SessionID     string
	ProjectID     string
	WorkspaceRoot string
	RiskLevel     policy.RiskLevel
	// ToolsAllowed is the intent's tool allowlist (empty means no
	// restriction); it narrows the Context layer's advertised tool set
	// alongside RiskLevel's group.
	ToolsAllowed []string
	PlanSummary  string
	Confirmed    bool
	// TurnBudget is the caller's remaining total-turn iteration count
	//; RunStep decrements it once per LLM call and
	// stops (TurnExhausted=true) when it reaches zero.
	TurnBudget *int
}

// RunStep drives call.Step to completion, failure, or a replan request.
func (e *StepExecutor) RunStep(ctx context.Context, call StepCall) StepOutcome {
	invalidCount := 0
	var recentCalls []string
	var recentFeedback string

	for i := 0; i < e.iterPerStep; i++ {
		if call.TurnBudget != nil {
			if *call.TurnBudget <= 0 {
				return StepOutcome{TurnExhausted: true}
			}
			*call.TurnBudget--
		}

		vars := promptcompose.Vars{
			PlanTitle:       call.PlanTitle,
			StepDescription: call.Step.Description,
			RecentFeedback:  recentFeedback,
			ToolsSection:    toolsSection(call.RiskLevel, call.ToolsAllowed),
		}
		sysPrompt, err := e.composer.ComposeSystemPrompt(call.Profile, promptcompose.StageExecuteStep, vars)
		if err != nil {
			return StepOutcome{Status: planner.StepFailed, FailureReason: fmt.Sprintf("E_TEMPLATE_VAR: %v", err)}
		}
		userPrompt, err := e.composer.ComposeUserPrompt(call.Profile, promptcompose.StageExecuteStep, vars)
		if err != nil {
			return StepOutcome{Status: planner.StepFailed, FailureReason: fmt.Sprintf("E_TEMPLATE_VAR: %v", err)}
		}

		messages := make([]model.Message, 0, len(*call.Transcript)+2)
		messages = append(messages, model.NewTextMessage(model.RoleSystem, sysPrompt))
		messages = append(messages, model.NewTextMessage(model.RoleUser, userPrompt))
		messages = append(messages, *call.Transcript...)

		resp, err := e.client.Complete(ctx, &model.Request{Model: e.modelName, Messages: messages})
		if err != nil {
			return StepOutcome{Status: planner.StepFailed, FailureReason: fmt.Sprintf("E_LLM_ERROR: %v", err)}
		}
		raw := resp.Message.Content.AsText()

		out, perr := ParseStepOutput(raw)
		if perr != nil {
			invalidCount++
			*call.Transcript = append(*call.Transcript, model.NewTextMessage(model.RoleAssistant, raw))
			if invalidCount >= maxInvalidOutputs {
				return StepOutcome{Status: planner.StepFailed, FailureReason: "E_INVALID_OUTPUT"}
			}
			*call.Transcript = append(*call.Transcript, model.NewTextMessage(model.RoleUser,
				fmt.Sprintf("Your last output could not be parsed (%v). Respond with exactly one JSON control envelope or tool call.", perr)))
			continue
		}

		if out.Legacy {
			e.logger.Warn(ctx, "runtime: step output used a legacy string token instead of JSON", "step_id", call.Step.ID)
		}

		if out.Envelope != nil {
			*call.Transcript = append(*call.Transcript, model.NewTextMessage(model.RoleAssistant, raw))
			switch out.Envelope.Control {
			case ControlStepDone:
				return StepOutcome{Status: planner.StepDone}
			case ControlReplan:
				return StepOutcome{Replan: true, ReplanReason: out.Envelope.Reason}
			}
		}

		toolCall := out.Call
		sig := cache.CanonicalKey(toolCall.Tool, toolCall.Args)
		recentCalls = append(recentCalls, sig)
		if len(recentCalls) > e.stutterWindow {
			recentCalls = recentCalls[len(recentCalls)-e.stutterWindow:]
		}
		if stuttering(recentCalls, e.stutterThreshold) {
			return StepOutcome{Replan: true, ReplanReason: "E_STUTTERING"}
		}

		result := e.dispatcher.Dispatch(ctx, dispatch.Call{
			ToolCall:      *toolCall,
			TraceID:       call.TraceID,
			SessionID:     call.SessionID,
			ProjectID:     call.ProjectID,
			WorkspaceRoot: call.WorkspaceRoot,
			RiskLevel:     call.RiskLevel,
			PlanSummary:   call.PlanSummary,
			Confirmed:     call.Confirmed,
		})

		if !result.OK {
			switch result.ErrorCode {
			case "E_APPROVAL_REQUIRED":
				*call.Transcript = append(*call.Transcript, model.NewTextMessage(model.RoleAssistant, raw))
				return StepOutcome{ApprovalRequired: true}
			case "E_PATH_DENIED", "E_CMD_DENIED":
				*call.Transcript = append(*call.Transcript, model.NewTextMessage(model.RoleAssistant, raw))
				return StepOutcome{Replan: true, ReplanReason: result.ErrorCode, PolicyDenied: true}
			}
		}

		shaped := e.shaper.Shape(toolCall.Tool, result)
		recentFeedback = shaped

		*call.Transcript = append(*call.Transcript, model.NewTextMessage(model.RoleAssistant, raw))
		*call.Transcript = append(*call.Transcript, model.NewTextMessage(model.RoleTool, shaped))
	}
	return StepOutcome{Status: planner.StepFailed, FailureReason: "E_STEP_MAX_ITER"}
}

// stuttering reports whether the last threshold entries of recent are all
// equal and non-empty.
func stuttering(recent []string, threshold int) bool {
	if len(recent) < threshold {
		return false
	}
	tail := recent[len(recent)-threshold:]
	for i := 1; i < len(tail); i++ {
		if tail[i] != tail[0] {
			return false
		}
	}
	return true
}
