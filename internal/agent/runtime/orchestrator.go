package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/agentcore/orchestrator/internal/agent/approval"
	"github.com/agentcore/orchestrator/internal/agent/classifier"
	"github.com/agentcore/orchestrator/internal/agent/events"
	"github.com/agentcore/orchestrator/internal/agent/memory"
	"github.com/agentcore/orchestrator/internal/agent/model"
	"github.com/agentcore/orchestrator/internal/agent/planner"
	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/promptcompose"
	"github.com/agentcore/orchestrator/internal/agent/session"
	"github.com/agentcore/orchestrator/internal/agent/telemetry"
)

// Limits bounds the Step Executor and the turn as a whole (config.LimitsConfig).
type Limits struct {
	IterPerStep      int
	IterPerTurn      int
	StutterWindow    int
	StutterThreshold int
}

// OrchestratorOptions wires every dependency the turn state machine drives.
type OrchestratorOptions struct {
	Classifier   *classifier.Classifier
	Router       *classifier.Router
	Composer     *promptcompose.Composer
	PlanClient   model.Client
	ModelName    string
	StepExecutor *StepExecutor
	Replanner    *Replanner
	Approvals    *approval.Store
	Bus          *events.Bus
	Sessions     session.Store
	Logger       telemetry.Logger
	Limits       Limits
	// Memory supplies the project-memory text folded into the Context
	// prompt layer. Nil means every turn composes with an empty note.
	Memory memory.Provider
	// DefaultProfile names the promptcompose profile used when an intent
	// match carries no PromptProfileRef of its own.
	DefaultProfile string
	// MaxReplansPerStep escalates a step to BLOCKED after this many
	// consecutive failed replan attempts against it.
	MaxReplansPerStep int
}

// TurnOutcome is what RunTurn returns: the terminal state, why it stopped,
// the final plan (nil for a DIRECT turn), and the direct/approval
// particulars a caller needs to act on.
type TurnOutcome struct {
	State          State
	StopReason     string
	DirectAnswer   string
	Plan           *planner.FullPlan
	ApprovalID     string
	BlockedStepID  string
	BlockedReason  string
}

// Orchestrator drives one turn end to end through the state machine
// classify, route, plan-or-answer-direct, gate on
// approval, execute steps (replanning on failure), then verify.
type Orchestrator struct {
	classifier   *classifier.Classifier
	router       *classifier.Router
	composer     *promptcompose.Composer
	planClient   model.Client
	modelName    string
	stepExecutor *StepExecutor
	replanner    *Replanner
	approvals    *approval.Store
	bus          *events.Bus
	sessions     session.Store
	logger       telemetry.Logger
	limits       Limits
	memory       memory.Provider

	defaultProfile    string
	maxReplansPerStep int
}

// NewOrchestrator constructs an Orchestrator from opts.
func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	maxReplans := opts.MaxReplansPerStep
	if maxReplans <= 0 {
		maxReplans = 3
	}
	profile := opts.DefaultProfile
	if profile == "" {
		profile = "developer"
	}
	return &Orchestrator{
		classifier:        opts.Classifier,
		router:            opts.Router,
		composer:          opts.Composer,
		planClient:        opts.PlanClient,
		modelName:         opts.ModelName,
		stepExecutor:      opts.StepExecutor,
		replanner:         opts.Replanner,
		approvals:         opts.Approvals,
		bus:               opts.Bus,
		sessions:          opts.Sessions,
		logger:            logger,
		limits:            opts.Limits,
		memory:            opts.Memory,
		defaultProfile:    profile,
		maxReplansPerStep: maxReplans,
	}
}

// TurnInput names the identifiers and content one RunTurn call needs.
type TurnInput struct {
	SessionID     string
	ProjectID     string
	WorkspaceRoot string
	TurnID        string
	TraceID       string
	UserInput     string
}

// RunTurn drives in to TurnInput.UserInput through the full turn state
// machine and returns its terminal outcome. It never returns an error for
// turn-level failures (those become a StopReason); the error return is
// reserved for infrastructure failures the caller cannot recover from
// within the turn (e.g. the session store rejecting the turn record).
func (o *Orchestrator) RunTurn(ctx context.Context, in TurnInput) (TurnOutcome, error) {
	o.publish(in, events.KindTurnStart, map[string]any{"user_input": in.UserInput})
	if err := o.sessions.UpsertTurn(ctx, session.TurnMeta{
		TurnID: in.TurnID, SessionID: in.SessionID, TraceID: in.TraceID, Status: session.TurnRunning,
	}); err != nil {
		return TurnOutcome{}, fmt.Errorf("runtime: upsert turn: %w", err)
	}

	result := o.classifier.Classify(ctx, in.UserInput)
	o.publish(in, events.KindIntentClassified, map[string]any{
		"category": string(result.Category), "confidence": result.Confidence,
	})

	match, keywordMatched := o.router.RouteByKeyword(in.UserInput)
	planningEnabled := keywordMatched
	if !keywordMatched {
		match = o.router.RouteByCategory(result.Category)
		planningEnabled = !classifier.PlanningDisabled(result.Category)
	}

	profile := match.PromptProfileRef
	if profile == "" {
		profile = o.defaultProfile
	}

	var outcome TurnOutcome
	if !planningEnabled {
		outcome = o.runDirect(ctx, in, profile)
	} else {
		outcome = o.runPlanned(ctx, in, profile, match)
	}

	o.finishTurn(ctx, in, outcome)
	o.publish(in, events.KindTurnComplete, map[string]any{
		"state": string(outcome.State), "stop_reason": outcome.StopReason,
	})
	return outcome, nil
}

// projectMemory fetches the current project memory note, logging and
// falling back to an empty string on a provider error rather than failing
// the turn over it.
func (o *Orchestrator) projectMemory(ctx context.Context, in TurnInput) string {
	if o.memory == nil {
		return ""
	}
	text, err := o.memory.ProjectMemory(ctx, in.ProjectID)
	if err != nil {
		o.logger.Warn(ctx, "runtime: failed to load project memory", "project_id", in.ProjectID, "error", err.Error())
		return ""
	}
	return text
}

func (o *Orchestrator) runDirect(ctx context.Context, in TurnInput, profile string) TurnOutcome {
	vars := promptcompose.Vars{
		UserInput:     in.UserInput,
		ProjectMemory: o.projectMemory(ctx, in),
		ToolsSection:  toolsSection(policy.RiskLow, nil),
	}
	sysPrompt, err := o.composer.ComposeSystemPrompt(profile, promptcompose.StageDirectAnswer, vars)
	if err != nil {
		return TurnOutcome{State: StateBlocked, StopReason: StopReasonPlanParseFailed, BlockedReason: err.Error()}
	}
	userPrompt, err := o.composer.ComposeUserPrompt(profile, promptcompose.StageDirectAnswer, vars)
	if err != nil {
		return TurnOutcome{State: StateBlocked, StopReason: StopReasonPlanParseFailed, BlockedReason: err.Error()}
	}
	resp, err := o.planClient.Complete(ctx, &model.Request{
		Model: o.modelName,
		Messages: []model.Message{
			model.NewTextMessage(model.RoleSystem, sysPrompt),
			model.NewTextMessage(model.RoleUser, userPrompt),
		},
	})
	if err != nil {
		return TurnOutcome{State: StateBlocked, StopReason: StopReasonStepFailed, BlockedReason: err.Error()}
	}
	return TurnOutcome{State: StateDone, StopReason: StopReasonDirectAnswer, DirectAnswer: resp.Message.Content.AsText()}
}

func (o *Orchestrator) runPlanned(ctx context.Context, in TurnInput, profile string, match classifier.IntentMatch) TurnOutcome {
	plan, err := o.planTurn(ctx, in, profile, match)
	if err != nil {
		return TurnOutcome{State: StateBlocked, StopReason: StopReasonPlanParseFailed, BlockedReason: err.Error()}
	}
	o.publish(in, events.KindPlanGenerated, map[string]any{"title": plan.Title, "steps": len(plan.Steps)})

	planSummary := planSummaryOf(plan)
	if match.RiskLevel >= policy.RiskHigh {
		if !o.approvals.IsApproved(planSummary) {
			ref, cerr := o.approvals.Create(in.TraceID, match.Name, planSummary, match.RiskLevel)
			if cerr != nil {
				return TurnOutcome{State: StateBlocked, StopReason: StopReasonStepFailed, BlockedReason: cerr.Error()}
			}
			o.publish(in, events.KindApprovalRequired, map[string]any{"approval_id": ref.ID, "plan_summary": planSummary})
			return TurnOutcome{State: StateWaitingForApproval, StopReason: StopReasonApprovalRequired, Plan: plan, ApprovalID: ref.ID}
		}
	}

	return o.executePlan(ctx, in, profile, plan, planSummary, match)
}

// planTurn composes the planning prompt, calls the model, and parses the
// result, retrying once with an injected parse-error message and finally
// attempting tool-call coercion on a second failure.
func (o *Orchestrator) planTurn(ctx context.Context, in TurnInput, profile string, match classifier.IntentMatch) (*planner.FullPlan, error) {
	vars := promptcompose.Vars{
		UserInput:     in.UserInput,
		ProjectMemory: o.projectMemory(ctx, in),
		ToolsSection:  toolsSection(match.RiskLevel, match.Tools),
	}
	sysPrompt, err := o.composer.ComposeSystemPrompt(profile, promptcompose.StagePlanning, vars)
	if err != nil {
		return nil, err
	}
	userPrompt, err := o.composer.ComposeUserPrompt(profile, promptcompose.StagePlanning, vars)
	if err != nil {
		return nil, err
	}
	messages := []model.Message{
		model.NewTextMessage(model.RoleSystem, sysPrompt),
		model.NewTextMessage(model.RoleUser, userPrompt),
	}

	resp, err := o.planClient.Complete(ctx, &model.Request{Model: o.modelName, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("runtime: plan completion: %w", err)
	}
	raw := resp.Message.Content.AsText()

	parsed, perr := planner.ParseOutput(raw)
	if perr == nil {
		if parsed.Full == nil {
			return nil, fmt.Errorf("runtime: initial plan output must be a FullPlan")
		}
		if err := planner.Validate(parsed.Full); err != nil {
			return nil, err
		}
		return parsed.Full, nil
	}

	messages = append(messages,
		model.NewTextMessage(model.RoleAssistant, raw),
		model.NewTextMessage(model.RoleUser, fmt.Sprintf("Your last output could not be parsed (%v). Respond with exactly one JSON FullPlan object, no code fences.", perr)),
	)
	resp, err = o.planClient.Complete(ctx, &model.Request{Model: o.modelName, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("runtime: plan retry completion: %w", err)
	}
	raw = resp.Message.Content.AsText()

	parsed, perr = planner.ParseOutput(raw)
	if perr == nil && parsed.Full != nil {
		if err := planner.Validate(parsed.Full); err != nil {
			return nil, err
		}
		return parsed.Full, nil
	}

	coerced, cerr := planner.CoerceToolCall(raw)
	if cerr != nil {
		return nil, perr
	}
	if err := planner.Validate(coerced); err != nil {
		return nil, err
	}
	return coerced, nil
}

func (o *Orchestrator) executePlan(ctx context.Context, in TurnInput, profile string, plan *planner.FullPlan, planSummary string, match classifier.IntentMatch) TurnOutcome {
	turnBudget := o.limits.IterPerTurn
	if turnBudget <= 0 {
		turnBudget = 50
	}
	consecutiveReplanFailures := make(map[string]int)
	policyDeniedOnce := make(map[string]bool)
	transcript := []model.Message{}

	for {
		byID := planner.IndexByID(plan)
		next, hasNext := nextReadyStep(plan, byID)
		if !hasNext {
			break
		}

		markStepStatus(plan, next.ID, planner.StepInProgress, "")

		outcome := o.stepExecutor.RunStep(ctx, StepCall{
			Profile:       profile,
			PlanTitle:     plan.Title,
			Step:          next,
			Transcript:    &transcript,
			TraceID:       in.TraceID,
			SessionID:     in.SessionID,
			ProjectID:     in.ProjectID,
			WorkspaceRoot: in.WorkspaceRoot,
			RiskLevel:     match.RiskLevel,
			ToolsAllowed:  match.Tools,
			PlanSummary:   planSummary,
			TurnBudget:    &turnBudget,
		})

		if outcome.TurnExhausted {
			return TurnOutcome{State: StateMaxIter, StopReason: StopReasonTurnIterCap, Plan: plan, BlockedStepID: next.ID}
		}

		if outcome.Status == planner.StepDone {
			markStepStatus(plan, next.ID, planner.StepDone, "")
			consecutiveReplanFailures[next.ID] = 0
			continue
		}

		if outcome.ApprovalRequired {
			markStepStatus(plan, next.ID, planner.StepFailed, "E_APPROVAL_REQUIRED")
			ref, cerr := o.approvals.Create(in.TraceID, match.Name, planSummary, match.RiskLevel)
			if cerr != nil {
				return TurnOutcome{State: StateBlocked, StopReason: StopReasonStepFailed, Plan: plan, BlockedStepID: next.ID, BlockedReason: cerr.Error()}
			}
			o.publish(in, events.KindApprovalRequired, map[string]any{"approval_id": ref.ID, "plan_summary": planSummary})
			return TurnOutcome{State: StateWaitingForApproval, StopReason: StopReasonApprovalRequired, Plan: plan, ApprovalID: ref.ID, BlockedStepID: next.ID}
		}

		if outcome.PolicyDenied {
			if policyDeniedOnce[next.ID] {
				markStepStatus(plan, next.ID, planner.StepFailed, outcome.ReplanReason)
				return TurnOutcome{State: StateBlocked, StopReason: StopReasonPolicyDenied, Plan: plan, BlockedStepID: next.ID, BlockedReason: outcome.ReplanReason}
			}
			policyDeniedOnce[next.ID] = true
		}

		failureKind := outcome.FailureReason
		if outcome.Replan {
			failureKind = outcome.ReplanReason
		}
		markStepStatus(plan, next.ID, planner.StepFailed, failureKind)

		// Retry the replan call itself (not the step) up to
		// maxReplansPerStep times: a replan attempt that fails to produce a
		// usable plan leaves the step StepFailed, so the outer loop would
		// never revisit it on its own.
		var revised *planner.FullPlan
		var rerr error
		for consecutiveReplanFailures[next.ID] < o.maxReplansPerStep {
			revised, rerr = o.replanner.Replan(ctx, ReplanRequest{
				Profile:        profile,
				Plan:           plan,
				FailedStepID:   next.ID,
				FailureKind:    failureKind,
				RecentFeedback: lastToolFeedback(transcript),
				RiskLevel:      match.RiskLevel,
				ToolsAllowed:   match.Tools,
			})
			if rerr == nil {
				break
			}
			consecutiveReplanFailures[next.ID]++
		}
		if rerr != nil {
			return TurnOutcome{State: StateBlocked, StopReason: StopReasonReplanExhausted, Plan: plan, BlockedStepID: next.ID, BlockedReason: rerr.Error()}
		}
		plan = revised
		revisedSummary := planSummaryOf(plan)
		if match.RiskLevel >= policy.RiskHigh && revisedSummary != planSummary && !o.approvals.IsApproved(revisedSummary) {
			planSummary = revisedSummary
			ref, cerr := o.approvals.Create(in.TraceID, match.Name, planSummary, match.RiskLevel)
			if cerr != nil {
				return TurnOutcome{State: StateBlocked, StopReason: StopReasonStepFailed, Plan: plan, BlockedReason: cerr.Error()}
			}
			o.publish(in, events.KindApprovalRequired, map[string]any{"approval_id": ref.ID, "plan_summary": planSummary})
			return TurnOutcome{State: StateWaitingForApproval, StopReason: StopReasonApprovalRequired, Plan: plan, ApprovalID: ref.ID}
		}
		planSummary = revisedSummary
		consecutiveReplanFailures[next.ID] = 0
	}

	if anyStepFailed(plan) {
		return TurnOutcome{State: StateBlocked, StopReason: StopReasonStepFailed, Plan: plan}
	}
	return TurnOutcome{State: StateDone, StopReason: StopReasonDone, Plan: plan}
}

func (o *Orchestrator) finishTurn(ctx context.Context, in TurnInput, outcome TurnOutcome) {
	status := session.TurnDone
	switch outcome.State {
	case StateBlocked:
		status = session.TurnBlocked
	case StateMaxIter:
		status = session.TurnMaxIter
	case StateWaitingForApproval:
		status = session.TurnPending
	}
	if err := o.sessions.UpsertTurn(ctx, session.TurnMeta{
		TurnID: in.TurnID, SessionID: in.SessionID, TraceID: in.TraceID,
		Status: status, StopReason: outcome.StopReason, UpdatedAt: time.Now(),
	}); err != nil {
		o.logger.Warn(ctx, "runtime: failed to persist turn outcome", "turn_id", in.TurnID, "error", err.Error())
	}
}

func (o *Orchestrator) publish(in TurnInput, kind events.Kind, data map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.Event{
		TS: time.Now(), TraceID: in.TraceID, SessionID: in.SessionID, ProjectID: in.ProjectID,
		Kind: kind, Data: data,
	})
}

// nextReadyStep returns the first pending step whose dependencies are all
// done, in plan order.
func nextReadyStep(plan *planner.FullPlan, byID map[string]planner.Step) (planner.Step, bool) {
	for _, s := range plan.Steps {
		if s.Status != planner.StepPending {
			continue
		}
		if planner.ReadyToStart(s, byID) {
			return s, true
		}
	}
	return planner.Step{}, false
}

func markStepStatus(plan *planner.FullPlan, stepID string, status planner.StepStatus, failureReason string) {
	for i := range plan.Steps {
		if plan.Steps[i].ID == stepID {
			plan.Steps[i].Status = status
			plan.Steps[i].FailureReason = failureReason
			return
		}
	}
}

func anyStepFailed(plan *planner.FullPlan) bool {
	for _, s := range plan.Steps {
		if s.Status == planner.StepFailed {
			return true
		}
	}
	return false
}

func planSummaryOf(plan *planner.FullPlan) string {
	summary := plan.Title
	for _, s := range plan.Steps {
		summary += "|" + s.ID + ":" + string(s.Status)
	}
	return summary
}

func lastToolFeedback(transcript []model.Message) string {
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == model.RoleTool {
			return transcript[i].Content.AsText()
		}
	}
	return ""
}
