package builtins

import (
	"github.com/agentcore/orchestrator/internal/agent/command"
	"github.com/agentcore/orchestrator/internal/agent/patch"
	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/tools"
)

// All returns the complete built-in tool set the orchestrator ships with,
// ready to pass to tools.Init. sandbox gates every path-touching handler;
// runner executes run_command; engine backs apply_patch/undo_patch and is
// shared between the two so an undo can find its apply.
func All(sandbox *policy.Sandbox, runner *command.Runner, engine *patch.Engine, workspaceRoot string) []*tools.ToolSpec {
	return []*tools.ToolSpec{
		ReadFileSpec(sandbox),
		WriteFileSpec(sandbox),
		ListDirSpec(sandbox),
		GrepSpec(sandbox),
		RunCommandSpec(runner, workspaceRoot),
		ApplyPatchSpec(sandbox, engine),
		UndoPatchSpec(engine),
	}
}
