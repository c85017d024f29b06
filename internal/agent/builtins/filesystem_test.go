package builtins

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/orchestrator/internal/agent/policy"
)

type fakeHandlerContext struct {
	ctx           context.Context
	workspaceRoot string
	traceID       string
}

func (f fakeHandlerContext) Context() context.Context { return f.ctx }
func (f fakeHandlerContext) WorkspaceRoot() string     { return f.workspaceRoot }
func (f fakeHandlerContext) TraceID() string           { return f.traceID }

func newFakeHandlerContext(root string) fakeHandlerContext {
	return fakeHandlerContext{ctx: context.Background(), workspaceRoot: root, traceID: "trace-1"}
}

func newTestSandbox(t *testing.T) (*policy.Sandbox, string) {
	t.Helper()
	root := t.TempDir()
	sandbox, err := policy.NewSandbox(root)
	require.NoError(t, err)
	return sandbox, root
}

func TestReadFileReturnsNumberedLines(t *testing.T) {
	sandbox, root := newTestSandbox(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("one\ntwo\nthree\n"), 0o644))

	spec := ReadFileSpec(sandbox)
	out, err := spec.Handler(newFakeHandlerContext(root), map[string]any{"path": "a.txt"})
	require.NoError(t, err)

	text, ok := out.(string)
	require.True(t, ok, "read_file must return a bare string payload")
	assert.Equal(t, "1\tone\n2\ttwo\n3\tthree", text)
}

func TestReadFileRespectsOffsetAndLimit(t *testing.T) {
	sandbox, root := newTestSandbox(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("one\ntwo\nthree\nfour\n"), 0o644))

	spec := ReadFileSpec(sandbox)
	out, err := spec.Handler(newFakeHandlerContext(root), map[string]any{"path": "a.txt", "offset": float64(2), "limit": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, "2\ttwo\n3\tthree", out)
}

func TestReadFileRejectsPathEscape(t *testing.T) {
	sandbox, root := newTestSandbox(t)
	spec := ReadFileSpec(sandbox)

	_, err := spec.Handler(newFakeHandlerContext(root), map[string]any{"path": "../outside.txt"})
	require.Error(t, err)
}

func TestWriteFileReportsPathsTouched(t *testing.T) {
	sandbox, root := newTestSandbox(t)
	spec := WriteFileSpec(sandbox)

	out, err := spec.Handler(newFakeHandlerContext(root), map[string]any{"path": "sub/b.txt", "content": "hello\n"})
	require.NoError(t, err)

	touched, ok := out.(interface{ PathsTouched() []string })
	require.True(t, ok)
	assert.Len(t, touched.PathsTouched(), 1)

	data, err := os.ReadFile(filepath.Join(root, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestListDirReturnsSortedBareSlice(t *testing.T) {
	sandbox, root := newTestSandbox(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte(""), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "z"), 0o755))

	spec := ListDirSpec(sandbox)
	out, err := spec.Handler(newFakeHandlerContext(root), map[string]any{})
	require.NoError(t, err)

	entries, ok := out.([]string)
	require.True(t, ok, "list_dir must return a bare []string payload")
	assert.Equal(t, []string{"a.txt", "b.txt", "z/"}, entries)
}

func TestListDirDefaultsToWorkspaceRoot(t *testing.T) {
	sandbox, root := newTestSandbox(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte(""), 0o644))

	spec := ListDirSpec(sandbox)
	out, err := spec.Handler(newFakeHandlerContext(root), map[string]any{"path": ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, out)
}
