package builtins

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/toolerrors"
	"github.com/agentcore/orchestrator/internal/agent/tools"
)

// maxGrepMatches bounds how many matches a single grep call collects before
// giving up, independent of the Feedback Shaper's GrepHits display cap: this
// keeps a pathological pattern (e.g. matching every line of a large tree)
// from walking the entire workspace.
const maxGrepMatches = 500

var defaultSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// GrepSpec returns the ToolSpec for a regular-expression text search rooted
// at a workspace path, named grep to match the model-facing tool-calling
// convention the rest of the system expects.
func GrepSpec(sandbox *policy.Sandbox) *tools.ToolSpec {
	return &tools.ToolSpec{
		Name:    "grep",
		Summary: "Search files under a workspace path for a regular expression.",
		ArgsSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {"type": "string"},
				"path": {"type": "string", "default": "."},
				"case_insensitive": {"type": "boolean", "default": false}
			},
			"required": ["pattern"]
		}`),
		ExampleArgs:     map[string]any{"pattern": "TODO", "path": "internal"},
		SideEffects:     tools.SideEffectRead,
		VisibleInPrompt: true,
		CallableByModel: true,
		Groups:          []tools.Group{tools.GroupReadonly},
		Handler: func(hctx tools.HandlerContext, args map[string]any) (any, error) {
			pattern, _ := args["pattern"].(string)
			if pattern == "" {
				return nil, toolerrors.New("E_BAD_ARGS", "pattern is required")
			}
			root, _ := args["path"].(string)
			if root == "" {
				root = "."
			}
			insensitive, _ := args["case_insensitive"].(bool)
			if insensitive {
				pattern = "(?i)" + pattern
			}
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, toolerrors.NewWithCause("E_BAD_ARGS", err.Error(), err)
			}

			resolved, err := resolvePath(sandbox, root, policy.PathRead)
			if err != nil {
				return nil, err
			}

			var matches []any
			walkErr := filepath.WalkDir(resolved, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil // skip unreadable entries rather than aborting the search
				}
				if d.IsDir() {
					if defaultSkipDirs[d.Name()] {
						return filepath.SkipDir
					}
					return nil
				}
				if len(matches) >= maxGrepMatches {
					return fs.SkipAll
				}
				found, grepErr := grepFile(p, re, &matches)
				_ = found
				return grepErr
			})
			if walkErr != nil {
				return nil, toolerrors.NewWithCause("E_TOOL_ERROR", walkErr.Error(), walkErr)
			}

			sort.Slice(matches, func(i, j int) bool {
				return matches[i].(string) < matches[j].(string)
			})
			// Returned as a bare []any so the Feedback Shaper's GrepHits cap
			// applies its head-N-with-count-suffix treatment.
			return matches, nil
		},
	}
}

func grepFile(path string, re *regexp.Regexp, matches *[]any) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	found := false
	for scanner.Scan() {
		lineNo++
		if len(*matches) >= maxGrepMatches {
			break
		}
		line := scanner.Text()
		if re.MatchString(line) {
			found = true
			*matches = append(*matches, fmt.Sprintf("%s:%d:%s", path, lineNo, strings.TrimSpace(line)))
		}
	}
	return found, nil
}
