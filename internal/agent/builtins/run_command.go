package builtins

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agentcore/orchestrator/internal/agent/command"
	"github.com/agentcore/orchestrator/internal/agent/toolerrors"
	"github.com/agentcore/orchestrator/internal/agent/tools"
)

const defaultCommandTimeoutSeconds = 30

// RunCommandSpec returns the ToolSpec for running a shell command or argv
// rooted at the workspace, via runner. Its approval gate lives one layer up
// (policy.Engine.DecideStep and the orchestrator's turn-level confirmation),
// not in this handler: by the time Dispatch reaches the handler, the call
// has already cleared CheckCommand once in DecideStep and is cleared again
// here by Runner.Run against the same CommandPolicy, so a command blocked
// after approval (e.g. a denied first token hidden behind an alias) still
// fails closed.
func RunCommandSpec(runner *command.Runner, workspaceRoot string) *tools.ToolSpec {
	return &tools.ToolSpec{
		Name:    "run_command",
		Summary: "Run a shell command rooted at the workspace and capture its output.",
		ArgsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"command": {"type": "string"},
				"argv": {"type": "array", "items": {"type": "string"}},
				"timeout_seconds": {"type": "integer", "minimum": 1, "default": 30}
			}
		}`),
		ExampleArgs:     map[string]any{"command": "go test ./...", "timeout_seconds": 60},
		SideEffects:     tools.SideEffectExec,
		VisibleInPrompt: true,
		CallableByModel: true,
		Groups:          []tools.Group{tools.GroupExec},
		TimeoutSeconds:  defaultCommandTimeoutSeconds + 5,
		Handler: func(hctx tools.HandlerContext, args map[string]any) (any, error) {
			cmdLine, _ := args["command"].(string)
			argv := stringSliceArg(args, "argv")
			if cmdLine == "" && len(argv) == 0 {
				return nil, toolerrors.New("E_BAD_ARGS", "one of command or argv is required")
			}
			timeout := time.Duration(intArg(args, "timeout_seconds", defaultCommandTimeoutSeconds)) * time.Second

			res, err := runner.Run(hctx.Context(), command.Request{
				Command: cmdLine,
				Argv:    argv,
				Cwd:     workspaceRoot,
				Timeout: timeout,
			})
			if err != nil {
				if errors.Is(err, command.ErrTimeout) {
					return nil, toolerrors.NewWithCause("E_TIMEOUT", "command timed out", err)
				}
				return nil, toolerrors.NewWithCause("E_TOOL_ERROR", err.Error(), err)
			}
			// A single string payload: head+tail truncation from the
			// Feedback Shaper applies to the combined transcript exactly as
			// it would to a long file read.
			return formatCommandResult(res), nil
		},
	}
}

func formatCommandResult(res command.Result) string {
	status := "ok"
	if res.TimedOut {
		status = "timed out"
	} else if res.ExitCode != 0 {
		status = "failed"
	}
	out := fmt.Sprintf("exit=%d status=%s duration_ms=%d", res.ExitCode, status, res.DurationMS)
	if res.Stdout != "" {
		out += "\n--- stdout ---\n" + res.Stdout
	}
	if res.Stderr != "" {
		out += "\n--- stderr ---\n" + res.Stderr
	}
	if res.Truncated {
		out += "\n(output truncated)"
	}
	return out
}

func stringSliceArg(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		out = append(out, s)
	}
	return out
}
