package runtime

import (
	"context"
	"os"
	"testing"

	"github.com/agentcore/orchestrator/internal/agent/model"
	"github.com/agentcore/orchestrator/internal/agent/planner"
	"github.com/agentcore/orchestrator/internal/agent/promptcompose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReplanComposer(t *testing.T) *promptcompose.Composer {
	t.Helper()
	dir := t.TempDir()
	profilesPath := dir + "/prompt_profiles.yaml"
	versionsPath := dir + "/prompt_versions.json"

	profiles := `
developer:
  replan:
    core: core.safety
    user_prompt: user.replan
`
	versions := `{"core.safety": {"current": "v1"}, "user.replan": {"current": "v1"}}`
	require.NoError(t, os.WriteFile(profilesPath, []byte(profiles), 0o644))
	require.NoError(t, os.WriteFile(versionsPath, []byte(versions), 0o644))

	reg, err := promptcompose.NewProfileRegistry(profilesPath, versionsPath)
	require.NoError(t, err)

	templates := promptcompose.MapTemplateSource{
		"core.safety@v1": "Revise the plan to recover from the failure.",
		"user.replan@v1": "Plan: {{.PlanTitle}}\nFailed step: {{.FailedStepID}}\nKind: {{.FailureKind}}\nFeedback: {{.RecentFeedback}}",
	}
	return promptcompose.NewComposer(reg, templates)
}

func basePlan() *planner.FullPlan {
	return &planner.FullPlan{
		Type:  "FullPlan",
		Title: "Fix the bug",
		Steps: []planner.Step{
			{ID: "s1", Description: "reproduce", Status: planner.StepDone},
			{ID: "s2", Description: "patch", Status: planner.StepFailed, FailureReason: "E_CMD_DENIED"},
		},
	}
}

func TestReplanAcceptsPlanPatch(t *testing.T) {
	patch := `{"type":"PlanPatch","changes":[{"op":"replace","step_id":"s2","step":{"id":"s2","description":"patch via editor tool instead","status":"pending"}}]}`
	client := &scriptedClient{responses: []string{patch}}
	r := NewReplanner(ReplannerOptions{Client: client, ModelName: "test-model", Composer: newReplanComposer(t)})

	plan, err := r.Replan(context.Background(), ReplanRequest{
		Profile:        "developer",
		Plan:           basePlan(),
		FailedStepID:   "s2",
		FailureKind:    "E_CMD_DENIED",
		RecentFeedback: "command denied by policy",
	})

	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "patch via editor tool instead", plan.Steps[1].Description)
	assert.Equal(t, planner.StepPending, plan.Steps[1].Status)
}

func TestReplanAcceptsFullPlanFallback(t *testing.T) {
	full := `{"type":"FullPlan","title":"Fix the bug, take two","steps":[{"id":"s1","description":"reproduce differently","status":"pending"}]}`
	client := &scriptedClient{responses: []string{full}}
	r := NewReplanner(ReplannerOptions{Client: client, ModelName: "test-model", Composer: newReplanComposer(t)})

	plan, err := r.Replan(context.Background(), ReplanRequest{
		Profile:      "developer",
		Plan:         basePlan(),
		FailedStepID: "s2",
		FailureKind:  "E_CMD_DENIED",
	})

	require.NoError(t, err)
	assert.Equal(t, "Fix the bug, take two", plan.Title)
	require.Len(t, plan.Steps, 1)
}

func TestReplanRetriesOnceOnParseFailure(t *testing.T) {
	patch := `{"type":"PlanPatch","changes":[{"op":"replace","step_id":"s2","step":{"id":"s2","description":"retry path","status":"pending"}}]}`
	client := &scriptedClient{responses: []string{"not json at all", patch}}
	r := NewReplanner(ReplannerOptions{Client: client, ModelName: "test-model", Composer: newReplanComposer(t)})

	plan, err := r.Replan(context.Background(), ReplanRequest{
		Profile:      "developer",
		Plan:         basePlan(),
		FailedStepID: "s2",
		FailureKind:  "E_CMD_DENIED",
	})

	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, "retry path", plan.Steps[1].Description)
}

func TestReplanFailsAfterSecondParseFailure(t *testing.T) {
	client := &scriptedClient{responses: []string{"nonsense", "still nonsense"}}
	r := NewReplanner(ReplannerOptions{Client: client, ModelName: "test-model", Composer: newReplanComposer(t)})

	_, err := r.Replan(context.Background(), ReplanRequest{
		Profile:      "developer",
		Plan:         basePlan(),
		FailedStepID: "s2",
		FailureKind:  "E_CMD_DENIED",
	})

	assert.Error(t, err)
	assert.Equal(t, 2, client.calls)
}

func TestReplanRejectsPatchThatLeavesDanglingDependency(t *testing.T) {
	plan := &planner.FullPlan{
		Type:  "FullPlan",
		Title: "Fix the bug",
		Steps: []planner.Step{
			{ID: "s1", Description: "reproduce", Status: planner.StepFailed},
			{ID: "s2", Description: "patch", Dependencies: []string{"s1"}, Status: planner.StepPending},
		},
	}
	patch := `{"type":"PlanPatch","changes":[{"op":"remove","step_id":"s1"}]}`
	client := &scriptedClient{responses: []string{patch}}
	r := NewReplanner(ReplannerOptions{Client: client, ModelName: "test-model", Composer: newReplanComposer(t)})

	merged, err := r.Replan(context.Background(), ReplanRequest{
		Profile:      "developer",
		Plan:         plan,
		FailedStepID: "s1",
		FailureKind:  "E_TOOL_ERROR",
	})

	require.NoError(t, err)
	require.Len(t, merged.Steps, 1)
	assert.Equal(t, planner.StepFailed, merged.Steps[0].Status)
	assert.Equal(t, "dependency_removed", merged.Steps[0].FailureReason)
}
