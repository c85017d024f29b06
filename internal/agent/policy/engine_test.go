package policy

import (
	"testing"

	"github.com/agentcore/orchestrator/internal/agent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApprovals struct {
	approved map[string]bool
}

func (f fakeApprovals) IsApproved(planSummary string) bool {
	return f.approved[planSummary]
}

func TestEngineDecideStep(t *testing.T) {
	sb, err := NewSandbox(t.TempDir())
	require.NoError(t, err)

	t.Run("low risk allowed without approval", func(t *testing.T) {
		e := NewEngine(Options{Sandbox: sb})
		d := e.DecideStep(tools.Ident("read_file"), RiskLow, "summary", nil, nil, false)
		assert.True(t, d.Allow)
	})

	t.Run("high risk blocked absent approval", func(t *testing.T) {
		e := NewEngine(Options{Sandbox: sb, Approvals: fakeApprovals{}})
		d := e.DecideStep(tools.Ident("delete_file"), RiskHigh, "delete config.yaml", nil, nil, false)
		assert.False(t, d.Allow)
		assert.Equal(t, "E_APPROVAL_REQUIRED", d.ErrorCode)
	})

	t.Run("high risk allowed once plan summary approved", func(t *testing.T) {
		e := NewEngine(Options{Sandbox: sb, Approvals: fakeApprovals{approved: map[string]bool{"delete config.yaml": true}}})
		d := e.DecideStep(tools.Ident("delete_file"), RiskHigh, "delete config.yaml", nil, nil, false)
		assert.True(t, d.Allow)
	})

	t.Run("medium risk requires confirm when configured", func(t *testing.T) {
		e := NewEngine(Options{Sandbox: sb, MediumRiskRequiresConfirm: true})
		d := e.DecideStep(tools.Ident("write_file"), RiskMedium, "summary", nil, nil, false)
		assert.False(t, d.Allow)
		assert.Equal(t, "E_APPROVAL_REQUIRED", d.ErrorCode)

		d = e.DecideStep(tools.Ident("write_file"), RiskMedium, "summary", nil, nil, true)
		assert.True(t, d.Allow)
	})

	t.Run("denied command short-circuits before risk check", func(t *testing.T) {
		e := NewEngine(Options{Sandbox: sb})
		d := e.DecideStep(tools.Ident("run_command"), RiskLow, "summary", []string{"rm", "-rf", "."}, nil, false)
		assert.False(t, d.Allow)
		assert.Equal(t, "E_CMD_DENIED", d.ErrorCode)
	})

	t.Run("path outside sandbox denied", func(t *testing.T) {
		e := NewEngine(Options{Sandbox: sb})
		d := e.DecideStep(tools.Ident("write_file"), RiskLow, "summary", nil, []string{"../escape.txt"}, false)
		assert.False(t, d.Allow)
		assert.Equal(t, "E_PATH_DENIED", d.ErrorCode)
	})

	t.Run("tool outside allowed_tools denied even at low risk", func(t *testing.T) {
		e := NewEngine(Options{Sandbox: sb, AllowedTools: []string{"read_file"}})
		d := e.DecideStep(tools.Ident("write_file"), RiskLow, "summary", nil, nil, false)
		assert.False(t, d.Allow)
		assert.Equal(t, "E_CMD_DENIED", d.ErrorCode)

		d = e.DecideStep(tools.Ident("read_file"), RiskLow, "summary", nil, nil, false)
		assert.True(t, d.Allow)
	})

	t.Run("disallowed_tools wins over allowed_tools", func(t *testing.T) {
		e := NewEngine(Options{Sandbox: sb, AllowedTools: []string{"read_file"}, DisallowedTools: []string{"read_file"}})
		d := e.DecideStep(tools.Ident("read_file"), RiskLow, "summary", nil, nil, false)
		assert.False(t, d.Allow)
		assert.Equal(t, "E_CMD_DENIED", d.ErrorCode)
	})

	t.Run("disallowed_tools denies without an allowlist configured", func(t *testing.T) {
		e := NewEngine(Options{Sandbox: sb, DisallowedTools: []string{"run_command"}})
		d := e.DecideStep(tools.Ident("run_command"), RiskLow, "summary", nil, nil, false)
		assert.False(t, d.Allow)
		assert.Equal(t, "E_CMD_DENIED", d.ErrorCode)

		d = e.DecideStep(tools.Ident("read_file"), RiskLow, "summary", nil, nil, false)
		assert.True(t, d.Allow)
	})
}
