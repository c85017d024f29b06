package command

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunArgvModeCapturesStdout(t *testing.T) {
	r := NewRunner(policy.CommandPolicy{}, 0)
	res, err := r.Run(context.Background(), Request{Argv: []string{"echo", "hello"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "hello")
	assert.False(t, res.Truncated)
}

func TestRunShellModeForPipedCommand(t *testing.T) {
	r := NewRunner(policy.CommandPolicy{}, 0)
	res, err := r.Run(context.Background(), Request{Command: "echo hi | wc -l"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "1")
}

func TestRunNonZeroExitCodePropagates(t *testing.T) {
	r := NewRunner(policy.CommandPolicy{}, 0)
	res, err := r.Run(context.Background(), Request{Argv: []string{"sh", "-c", "exit 3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunDeniedCommandIsRejectedBeforeExecution(t *testing.T) {
	r := NewRunner(policy.CommandPolicy{}, 0)
	_, err := r.Run(context.Background(), Request{Argv: []string{"rm", "-rf", "/tmp/x"}})
	require.Error(t, err)
}

func TestRunDeniedCommandInShellModeIsAlsoRejected(t *testing.T) {
	r := NewRunner(policy.CommandPolicy{}, 0)
	_, err := r.Run(context.Background(), Request{Command: "rm -rf /tmp/x; echo done"})
	require.Error(t, err)
}

func TestRunTimeoutKillsProcessAndReturnsErrTimeout(t *testing.T) {
	r := NewRunner(policy.CommandPolicy{}, 0)
	_, err := r.Run(context.Background(), Request{
		Argv:    []string{"sleep", "5"},
		Timeout: 50 * time.Millisecond,
	})
	require.ErrorIs(t, err, ErrTimeout)
}

func TestRunOutputOverBudgetIsTruncatedWithHeadAndTail(t *testing.T) {
	r := NewRunner(policy.CommandPolicy{}, 20)
	res, err := r.Run(context.Background(), Request{
		Command: "printf 'AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAZZZZZZZZZZZZZZZZZZZZ'",
	})
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.True(t, strings.HasPrefix(res.Stdout, "AAA"))
	assert.True(t, strings.HasSuffix(res.Stdout, "ZZZ"))
}

func TestDetectShellModeDetectsMetacharacters(t *testing.T) {
	assert.True(t, DetectShellMode("ls | grep foo"))
	assert.True(t, DetectShellMode("echo $HOME"))
	assert.False(t, DetectShellMode("ls -la /tmp"))
}
