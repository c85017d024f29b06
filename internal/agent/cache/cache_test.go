package cache

import (
	"testing"
	"time"

	"github.com/agentcore/orchestrator/internal/agent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetMiss(t *testing.T) {
	c := New(Options{})
	_, ok := c.Get("list_dir", map[string]any{"path": "src"})
	assert.False(t, ok)
}

func TestCachePutThenGetHit(t *testing.T) {
	c := New(Options{})
	result := tools.ToolResult{OK: true, Payload: []string{"a.go", "b.go"}}
	c.Put("list_dir", map[string]any{"path": "src"}, result, []string{"src"})

	got, ok := c.Get("list_dir", map[string]any{"path": "src"})
	require.True(t, ok)
	assert.True(t, got.FromCache)
	assert.Equal(t, result.Payload, got.Payload)
	assert.Equal(t, 1, c.Len())
}

func TestCacheKeyOrderInsensitive(t *testing.T) {
	c := New(Options{})
	result := tools.ToolResult{OK: true, Payload: "x"}
	c.Put("grep", map[string]any{"pattern": "TODO", "path": "src"}, result, nil)

	got, ok := c.Get("grep", map[string]any{"path": "src", "pattern": "TODO"})
	require.True(t, ok)
	assert.Equal(t, "x", got.Payload)
}

func TestCacheInvalidatePathsRemovesOverlapping(t *testing.T) {
	c := New(Options{})
	c.Put("read_file", map[string]any{"path": "a.py"}, tools.ToolResult{OK: true, Payload: "content"}, []string{"a.py"})
	c.Put("read_file", map[string]any{"path": "b.py"}, tools.ToolResult{OK: true, Payload: "content"}, []string{"b.py"})

	c.InvalidatePaths([]string{"a.py"})

	_, ok := c.Get("read_file", map[string]any{"path": "a.py"})
	assert.False(t, ok)
	_, ok = c.Get("read_file", map[string]any{"path": "b.py"})
	assert.True(t, ok)
}

func TestCacheInvalidateAllClearsEverything(t *testing.T) {
	c := New(Options{})
	c.Put("read_file", map[string]any{"path": "a.py"}, tools.ToolResult{OK: true}, []string{"a.py"})
	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("read_file", map[string]any{"path": "a.py"})
	assert.False(t, ok)
}

func TestCacheTTLExpiry(t *testing.T) {
	c := New(Options{TTL: 20 * time.Millisecond})
	c.Put("list_dir", map[string]any{"path": "src"}, tools.ToolResult{OK: true}, nil)
	time.Sleep(40 * time.Millisecond)
	_, ok := c.Get("list_dir", map[string]any{"path": "src"})
	assert.False(t, ok)
}

func TestCanonicalKeyStableUnderReordering(t *testing.T) {
	k1 := CanonicalKey("grep", map[string]any{"a": 1, "b": "x"})
	k2 := CanonicalKey("grep", map[string]any{"b": "x", "a": 1})
	assert.Equal(t, k1, k2)
}

func TestCanonicalKeyDiffersOnDifferentValues(t *testing.T) {
	k1 := CanonicalKey("grep", map[string]any{"a": 1})
	k2 := CanonicalKey("grep", map[string]any{"a": 2})
	assert.NotEqual(t, k1, k2)
}
