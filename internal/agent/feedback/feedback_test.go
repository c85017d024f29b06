package feedback

import (
	"strings"
	"testing"

	"github.com/agentcore/orchestrator/internal/agent/tools"
	"github.com/stretchr/testify/assert"
)

func TestShapeErrorPreservesTextVerbatimWithinBound(t *testing.T) {
	s := NewShaper(LevelBalanced)
	out := s.Shape("run_cmd", tools.ToolResult{OK: false, ErrorCode: "E_TIMEOUT", ErrorText: "command timed out after 30s"})
	assert.Contains(t, out, "E_TIMEOUT")
	assert.Contains(t, out, "command timed out after 30s")
}

func TestShapeErrorTruncatesLongText(t *testing.T) {
	s := NewShaper(LevelAggressive)
	longText := strings.Repeat("x", 5000)
	out := s.Shape("run_cmd", tools.ToolResult{OK: false, ErrorCode: "E_CMD_DENIED", ErrorText: longText})
	assert.Less(t, len(out), 5000)
}

func TestShapeListKeepsHeadNWithCountSuffix(t *testing.T) {
	s := NewShaper(LevelAggressive) // GrepHits=5
	items := make([]any, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, i)
	}
	out := s.Shape("grep", tools.ToolResult{OK: true, Payload: items})
	assert.Contains(t, out, "15 more")
	assert.Contains(t, out, "20 total")
}

func TestShapeListKeepsAllWhenUnderCap(t *testing.T) {
	s := NewShaper(LevelMinimal)
	items := []any{"a.go", "b.go"}
	out := s.Shape("list_dir", tools.ToolResult{OK: true, Payload: items})
	assert.Contains(t, out, "a.go")
	assert.Contains(t, out, "b.go")
	assert.NotContains(t, out, "more")
}

func TestShapeTextKeepsHeadAndTailOnOverflow(t *testing.T) {
	s := NewShaper(LevelAggressive) // ReadFileChars=400
	text := strings.Repeat("a", 200) + "MIDDLE" + strings.Repeat("b", 2000)
	out := s.Shape("read_file", tools.ToolResult{OK: true, Payload: text})
	assert.True(t, strings.HasPrefix(out, "[read_file]\naaa"))
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, "MIDDLE")
}

func TestShapeMarksCachedAndTruncated(t *testing.T) {
	s := NewShaper(LevelBalanced)
	out := s.Shape("read_file", tools.ToolResult{OK: true, Payload: "x", FromCache: true, Truncated: true})
	assert.Contains(t, out, "(cached)")
	assert.Contains(t, out, "(truncated)")
}

func TestNewShaperFallsBackOnUnknownLevel(t *testing.T) {
	s := NewShaper(Level("bogus"))
	assert.Equal(t, LevelBalanced, s.level)
}
