// Package builtins registers the workspace-facing tool set the orchestrator
// ships with: file read/write, directory listing, text search, patch
// apply/undo, and command execution. Every handler resolves paths through a
// policy.Sandbox before touching disk, check_path contract, and
// reports the paths it touched via PathsTouched so the dispatcher's cache
// invalidation targets exactly the entries that depended on them.
package builtins

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/toolerrors"
	"github.com/agentcore/orchestrator/internal/agent/tools"
)

const defaultReadLineLimit = 2000

// pathResult is a lightweight payload wrapper that reports the single path
// a handler touched, satisfying the dispatcher's optional pathsToucher
// interface.
type pathResult struct {
	Data  any      `json:"data"`
	Paths []string `json:"-"`
}

func (p pathResult) PathsTouched() []string { return p.Paths }

// MarshalJSON flattens pathResult so callers serializing a ToolResult.Payload
// see Data's fields directly rather than a wrapper envelope.
func (p pathResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Data)
}

func resolvePath(sandbox *policy.Sandbox, raw string, mode policy.PathMode) (string, error) {
	resolved, err := sandbox.CheckPath(raw, mode)
	if err != nil {
		return "", toolerrors.NewWithCause("E_PATH_DENIED", err.Error(), err)
	}
	return resolved, nil
}

// ReadFileSpec returns the ToolSpec for reading a window of lines from a
// workspace file. Line numbers in the response are 1-indexed.
func ReadFileSpec(sandbox *policy.Sandbox) *tools.ToolSpec {
	return &tools.ToolSpec{
		Name:    "read_file",
		Summary: "Read a window of lines from a file in the workspace.",
		ArgsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string"},
				"offset": {"type": "integer", "minimum": 1, "default": 1},
				"limit": {"type": "integer", "minimum": 1, "maximum": 2000, "default": 2000}
			},
			"required": ["path"]
		}`),
		ExampleArgs:     map[string]any{"path": "internal/agent/runtime/orchestrator.go", "offset": 1, "limit": 200},
		SideEffects:     tools.SideEffectRead,
		VisibleInPrompt: true,
		CallableByModel: true,
		Groups:          []tools.Group{tools.GroupReadonly, tools.GroupMinimal},
		Handler: func(hctx tools.HandlerContext, args map[string]any) (any, error) {
			raw, _ := args["path"].(string)
			resolved, err := resolvePath(sandbox, raw, policy.PathRead)
			if err != nil {
				return nil, err
			}
			offset := intArg(args, "offset", 1)
			limit := intArg(args, "limit", defaultReadLineLimit)

			f, err := os.Open(resolved)
			if err != nil {
				return nil, toolerrors.NewWithCause("E_NOT_FOUND", err.Error(), err)
			}
			defer f.Close()

			var lines []string
			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			lineNo := 0
			for scanner.Scan() {
				lineNo++
				if lineNo < offset {
					continue
				}
				if len(lines) >= limit {
					break
				}
				lines = append(lines, fmt.Sprintf("%d\t%s", lineNo, scanner.Text()))
			}
			if err := scanner.Err(); err != nil {
				return nil, toolerrors.NewWithCause("E_TOOL_ERROR", err.Error(), err)
			}
			// Returned as a bare string (not wrapped in a map) so the
			// Feedback Shaper's ReadFileChars cap applies its head+tail
			// truncation to the actual file text rather than to a
			// JSON-marshaled envelope. Each line carries its own 1-indexed
			// line number, so offset and extent stay visible even when the
			// Shaper trims the middle out.
			return strings.Join(lines, "\n"), nil
		},
	}
}

// WriteFileSpec returns the ToolSpec for overwriting a workspace file's full
// contents atomically (temp file, fsync, rename), mirroring the Patch
// Engine's write discipline for single-shot writes outside the hunk-based
// apply_patch flow.
func WriteFileSpec(sandbox *policy.Sandbox) *tools.ToolSpec {
	return &tools.ToolSpec{
		Name:    "write_file",
		Summary: "Overwrite a file in the workspace with new contents.",
		ArgsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string"},
				"content": {"type": "string"}
			},
			"required": ["path", "content"]
		}`),
		ExampleArgs:     map[string]any{"path": "internal/agent/scratch.go", "content": "package agent\n"},
		SideEffects:     tools.SideEffectWrite,
		VisibleInPrompt: true,
		CallableByModel: true,
		Groups:          []tools.Group{tools.GroupWrite},
		Handler: func(hctx tools.HandlerContext, args map[string]any) (any, error) {
			raw, _ := args["path"].(string)
			content, _ := args["content"].(string)
			resolved, err := resolvePath(sandbox, raw, policy.PathWrite)
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return nil, toolerrors.NewWithCause("E_TOOL_ERROR", err.Error(), err)
			}
			if err := writeAtomic(resolved, []byte(content)); err != nil {
				return nil, toolerrors.NewWithCause("E_TOOL_ERROR", err.Error(), err)
			}
			return pathResult{
				Data:  map[string]any{"path": raw, "bytes_written": len(content)},
				Paths: []string{resolved},
			}, nil
		},
	}
}

// ListDirSpec returns the ToolSpec for listing a directory's entries,
// non-recursively, sorted for deterministic output.
func ListDirSpec(sandbox *policy.Sandbox) *tools.ToolSpec {
	return &tools.ToolSpec{
		Name:    "list_dir",
		Summary: "List the entries of a directory in the workspace.",
		ArgsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "default": "."}
			}
		}`),
		ExampleArgs:     map[string]any{"path": "internal/agent"},
		SideEffects:     tools.SideEffectRead,
		VisibleInPrompt: true,
		CallableByModel: true,
		Groups:          []tools.Group{tools.GroupReadonly, tools.GroupMinimal},
		Handler: func(hctx tools.HandlerContext, args map[string]any) (any, error) {
			raw, ok := args["path"].(string)
			if !ok || raw == "" {
				raw = "."
			}
			resolved, err := resolvePath(sandbox, raw, policy.PathRead)
			if err != nil {
				return nil, err
			}
			entries, err := os.ReadDir(resolved)
			if err != nil {
				return nil, toolerrors.NewWithCause("E_NOT_FOUND", err.Error(), err)
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			sort.Strings(names)
			// Returned as a bare []string so the Feedback Shaper's GrepHits
			// cap applies its head-N-with-count-suffix treatment instead of
			// falling through to a JSON-marshaled envelope.
			return names, nil
		},
	}
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
