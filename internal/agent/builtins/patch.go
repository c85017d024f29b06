package builtins

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agentcore/orchestrator/internal/agent/patch"
	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/toolerrors"
	"github.com/agentcore/orchestrator/internal/agent/tools"
)

// ApplyPatchSpec and UndoPatchSpec share a single *patch.Engine instance so
// an undo_patch call can find the apply it is reversing: the Engine's undo
// store is keyed by plan id, and a handler's only caller-scoped identifier
// is HandlerContext.TraceID, so that trace id doubles as the plan id here.
// This assumes the Step Executor holds one trace id per plan, which matches
// how TraceID is threaded through Dispatcher.Call for every step of a turn.
func ApplyPatchSpec(sandbox *policy.Sandbox, engine *patch.Engine) *tools.ToolSpec {
	return &tools.ToolSpec{
		Name:    "apply_patch",
		Summary: "Apply one or more context-anchored hunks to a file in the workspace.",
		ArgsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string"},
				"hunks": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"before": {"type": "string"},
							"after": {"type": "string"}
						},
						"required": ["before", "after"]
					},
					"minItems": 1
				}
			},
			"required": ["path", "hunks"]
		}`),
		ExampleArgs: map[string]any{
			"path":  "internal/agent/scratch.go",
			"hunks": []any{map[string]any{"before": "old text", "after": "new text"}},
		},
		SideEffects:     tools.SideEffectWrite,
		VisibleInPrompt: true,
		CallableByModel: true,
		Groups:          []tools.Group{tools.GroupWrite},
		Handler: func(hctx tools.HandlerContext, args map[string]any) (any, error) {
			raw, _ := args["path"].(string)
			resolved, err := resolvePath(sandbox, raw, policy.PathWrite)
			if err != nil {
				return nil, err
			}
			hunks, err := decodeHunks(args["hunks"])
			if err != nil {
				return nil, toolerrors.NewWithCause("E_BAD_ARGS", err.Error(), err)
			}

			res, err := engine.Apply(hctx.TraceID(), resolved, patch.Patch{Hunks: hunks})
			if err != nil {
				return nil, translatePatchError(err)
			}
			return pathResult{
				Data: map[string]any{
					"path":     raw,
					"old_hash": res.OldHash,
					"new_hash": res.NewHash,
				},
				Paths: []string{resolved},
			}, nil
		},
	}
}

// UndoPatchSpec returns the ToolSpec for reversing the most recent
// apply_patch performed under the current plan's trace id. It refuses if
// the target file has been touched by anything else since the apply, per
// patch.Engine.Undo's hash check.
func UndoPatchSpec(engine *patch.Engine) *tools.ToolSpec {
	return &tools.ToolSpec{
		Name:            "undo_patch",
		Summary:         "Undo the most recent apply_patch made in the current plan.",
		ArgsSchema:      json.RawMessage(`{"type": "object", "properties": {}}`),
		ExampleArgs:     map[string]any{},
		SideEffects:     tools.SideEffectWrite,
		VisibleInPrompt: true,
		CallableByModel: true,
		Groups:          []tools.Group{tools.GroupWrite},
		Handler: func(hctx tools.HandlerContext, args map[string]any) (any, error) {
			if err := engine.Undo(hctx.TraceID()); err != nil {
				return nil, translatePatchError(err)
			}
			return "undo applied", nil
		},
	}
}

func decodeHunks(raw any) ([]patch.Hunk, error) {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, errors.New("hunks must be a non-empty array")
	}
	hunks := make([]patch.Hunk, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("hunks[%d] must be an object", i)
		}
		before, _ := obj["before"].(string)
		after, _ := obj["after"].(string)
		if before == "" {
			return nil, fmt.Errorf("hunks[%d].before is required", i)
		}
		hunks = append(hunks, patch.Hunk{Before: before, After: after})
	}
	return hunks, nil
}

func translatePatchError(err error) error {
	var perr *patch.Error
	if errors.As(err, &perr) {
		return toolerrors.NewWithCause(string(perr.Code), perr.Error(), perr)
	}
	return toolerrors.NewWithCause("E_TOOL_ERROR", err.Error(), err)
}
