// Package feedback implements the Feedback Shaper: it compresses
// raw ToolResult payloads into model-sized feedback text at one of three
// compression levels.
package feedback

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentcore/orchestrator/internal/agent/tools"
)

// Level names a compression level. Each level parameterizes the caps below;
// "aggressive" keeps the least content, "minimal" the most.
type Level string

const (
	LevelMinimal    Level = "minimal"
	LevelBalanced   Level = "balanced"
	LevelAggressive Level = "aggressive"
)

// Caps bounds one compression level's output size across result shapes.
type Caps struct {
	PreviewChars  int
	GrepHits      int
	ReadFileChars int
	WebResults    int
}

// defaultCaps gives each level a sensible built-in Caps set.
var defaultCaps = map[Level]Caps{
	LevelMinimal:    {PreviewChars: 2000, GrepHits: 50, ReadFileChars: 4000, WebResults: 10},
	LevelBalanced:   {PreviewChars: 800, GrepHits: 20, ReadFileChars: 1500, WebResults: 5},
	LevelAggressive: {PreviewChars: 200, GrepHits: 5, ReadFileChars: 400, WebResults: 2},
}

// Shaper compresses ToolResult payloads into feedback text at a fixed level.
type Shaper struct {
	level Level
	caps  Caps
}

// NewShaper constructs a Shaper for level, using the level's default Caps.
func NewShaper(level Level) *Shaper {
	caps, ok := defaultCaps[level]
	if !ok {
		caps = defaultCaps[LevelBalanced]
		level = LevelBalanced
	}
	return &Shaper{level: level, caps: caps}
}

// Shape renders result (for tool toolName) as feedback text appended to the
// message log. Error text is always preserved verbatim, bounded by
// PreviewChars; list-shaped payloads keep a head-N with a count suffix;
// byte/char-shaped payloads keep head+tail with an ellipsis.
func (s *Shaper) Shape(toolName string, result tools.ToolResult) string {
	if !result.OK {
		return s.shapeError(toolName, result)
	}

	var body string
	switch payload := result.Payload.(type) {
	case []any:
		body = s.shapeList(payload)
	case []string:
		items := make([]any, len(payload))
		for i, v := range payload {
			items[i] = v
		}
		body = s.shapeList(items)
	case string:
		body = s.shapeText(payload)
	default:
		body = s.shapeText(marshalFallback(payload))
	}

	prefix := fmt.Sprintf("[%s]", toolName)
	if result.FromCache {
		prefix += " (cached)"
	}
	if result.Truncated {
		prefix += " (truncated)"
	}
	return prefix + "\n" + body
}

func (s *Shaper) shapeError(toolName string, result tools.ToolResult) string {
	text := result.ErrorText
	if len(text) > s.caps.PreviewChars {
		text = text[:s.caps.PreviewChars] + "…"
	}
	return fmt.Sprintf("[%s] error %s: %s", toolName, result.ErrorCode, text)
}

func (s *Shaper) shapeList(items []any) string {
	n := s.caps.GrepHits
	if n <= 0 {
		n = len(items)
	}
	if len(items) <= n {
		return joinItems(items)
	}
	head := joinItems(items[:n])
	return fmt.Sprintf("%s\n… (%d more, %d total)", head, len(items)-n, len(items))
}

func (s *Shaper) shapeText(text string) string {
	limit := s.caps.ReadFileChars
	if limit <= 0 || len(text) <= limit {
		return text
	}
	headLen := limit / 2
	tailLen := limit - headLen
	return fmt.Sprintf("%s\n…\n%s", text[:headLen], text[len(text)-tailLen:])
}

func joinItems(items []any) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%v", it)
	}
	return strings.Join(parts, "\n")
}

func marshalFallback(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
