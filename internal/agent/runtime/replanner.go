package runtime

import (
	"context"
	"fmt"

	"github.com/agentcore/orchestrator/internal/agent/model"
	"github.com/agentcore/orchestrator/internal/agent/planner"
	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/promptcompose"
	"github.com/agentcore/orchestrator/internal/agent/telemetry"
)

// Replanner drives the recovery path: given the current plan and why
// a step failed, it asks the planning model for a fix, preferring an
// incremental PlanPatch over a full rewrite, and re-validates the result
// before handing it back to the orchestrator.
type Replanner struct {
	client    model.Client
	modelName string
	composer  *promptcompose.Composer
	logger    telemetry.Logger
}

// ReplannerOptions configures a Replanner.
type ReplannerOptions struct {
	Client    model.Client
	ModelName string
	Composer  *promptcompose.Composer
	Logger    telemetry.Logger
}

// NewReplanner constructs a Replanner from opts.
func NewReplanner(opts ReplannerOptions) *Replanner {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Replanner{
		client:    opts.Client,
		modelName: opts.ModelName,
		composer:  opts.Composer,
		logger:    logger,
	}
}

// ReplanRequest describes the failure the orchestrator wants the model to
// recover from.
type ReplanRequest struct {
	Profile        string
	Plan           *planner.FullPlan
	FailedStepID   string
	FailureKind    string
	RecentFeedback string
	RiskLevel      policy.RiskLevel
	ToolsAllowed   []string
}

// Replan asks the model to revise req.Plan and returns the merged,
// re-validated result. A PlanPatch response is merged onto the existing
// plan via planner.MergePatch; a FullPlan response replaces the plan
// outright.
func (r *Replanner) Replan(ctx context.Context, req ReplanRequest) (*planner.FullPlan, error) {
	vars := promptcompose.Vars{
		PlanTitle:      req.Plan.Title,
		FailedStepID:   req.FailedStepID,
		FailureKind:    req.FailureKind,
		RecentFeedback: req.RecentFeedback,
		ToolsSection:   toolsSection(req.RiskLevel, req.ToolsAllowed),
	}
	sysPrompt, err := r.composer.ComposeSystemPrompt(req.Profile, promptcompose.StageReplan, vars)
	if err != nil {
		return nil, fmt.Errorf("runtime: compose replan system prompt: %w", err)
	}
	userPrompt, err := r.composer.ComposeUserPrompt(req.Profile, promptcompose.StageReplan, vars)
	if err != nil {
		return nil, fmt.Errorf("runtime: compose replan user prompt: %w", err)
	}

	messages := []model.Message{
		model.NewTextMessage(model.RoleSystem, sysPrompt),
		model.NewTextMessage(model.RoleUser, userPrompt),
	}

	resp, err := r.client.Complete(ctx, &model.Request{Model: r.modelName, Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("runtime: replan completion: %w", err)
	}
	raw := resp.Message.Content.AsText()

	parsed, perr := planner.ParseOutput(raw)
	if perr != nil {
		// One retry, with the parse error quoted back to the model, mirrors
		// the planner's own retry-once contract.
		messages = append(messages,
			model.NewTextMessage(model.RoleAssistant, raw),
			model.NewTextMessage(model.RoleUser, fmt.Sprintf("Your last output could not be parsed (%v). Respond with exactly one JSON object, either a FullPlan or a PlanPatch, no code fences.", perr)),
		)
		resp, err = r.client.Complete(ctx, &model.Request{Model: r.modelName, Messages: messages})
		if err != nil {
			return nil, fmt.Errorf("runtime: replan retry completion: %w", err)
		}
		raw = resp.Message.Content.AsText()
		parsed, perr = planner.ParseOutput(raw)
		if perr != nil {
			return nil, perr
		}
	}

	if parsed.Full != nil {
		if err := planner.Validate(parsed.Full); err != nil {
			return nil, err
		}
		return parsed.Full, nil
	}

	merged, err := planner.MergePatch(req.Plan, parsed.Patch)
	if err != nil {
		return nil, err
	}
	return merged, nil
}
