package classifier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleIntents = `
version: 1
default_risk_level: low
default_mode: unified
intents:
  - name: delete_file
    keywords: ["delete config.yaml", "rm config"]
    risk_level: high
    tools: ["delete_file"]
    priority: 10
    enabled: true
  - name: list_files
    keywords: ["list files", "enumerate files", "show directory"]
    risk_level: low
    tools: ["list_dir"]
    priority: 1
    enabled: true
  - name: disabled_intent
    keywords: ["delete config.yaml"]
    risk_level: critical
    priority: 99
    enabled: false
`

func writeIntents(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "intents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRouteByKeywordPreciseMatch(t *testing.T) {
	path := writeIntents(t, sampleIntents)
	reg, err := NewIntentRegistry(path)
	require.NoError(t, err)
	router := NewRouter(reg)

	m, ok := router.RouteByKeyword("please delete config.yaml now")
	require.True(t, ok)
	assert.Equal(t, "delete_file", m.Name)
	assert.Equal(t, 2, int(m.RiskLevel)) // RiskHigh
}

func TestRouteByKeywordSkipsDisabled(t *testing.T) {
	path := writeIntents(t, sampleIntents)
	reg, err := NewIntentRegistry(path)
	require.NoError(t, err)
	router := NewRouter(reg)

	m, ok := router.RouteByKeyword("please delete config.yaml now")
	require.True(t, ok)
	assert.NotEqual(t, "disabled_intent", m.Name)
}

func TestRouteByKeywordFuzzyMatch(t *testing.T) {
	path := writeIntents(t, sampleIntents)
	reg, err := NewIntentRegistry(path)
	require.NoError(t, err)
	router := NewRouter(reg)

	m, ok := router.RouteByKeyword("can you list the files in this repo")
	require.True(t, ok)
	assert.Equal(t, "list_files", m.Name)
}

func TestRouteByKeywordNoMatchFalls(t *testing.T) {
	path := writeIntents(t, sampleIntents)
	reg, err := NewIntentRegistry(path)
	require.NoError(t, err)
	router := NewRouter(reg)

	_, ok := router.RouteByKeyword("tell me a joke")
	assert.False(t, ok)
}

func TestRouteByCategoryFallback(t *testing.T) {
	path := writeIntents(t, sampleIntents)
	reg, err := NewIntentRegistry(path)
	require.NoError(t, err)
	router := NewRouter(reg)

	m := router.Route("tell me a joke", CategoryCasualChat)
	assert.Equal(t, string(CategoryCasualChat), m.Name)
}

func TestIntentRegistryReloadPicksUpChanges(t *testing.T) {
	path := writeIntents(t, sampleIntents)
	reg, err := NewIntentRegistry(path)
	require.NoError(t, err)

	updated := sampleIntents + "\n  - name: new_intent\n    keywords: [\"brand new thing\"]\n    priority: 5\n    enabled: true\n"
	// Ensure a distinguishable mtime.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.NoError(t, reg.Reload())
	router := NewRouter(reg)
	m, ok := router.RouteByKeyword("this is a brand new thing")
	require.True(t, ok)
	assert.Equal(t, "new_intent", m.Name)
}

func TestPlanningDisabledCategories(t *testing.T) {
	assert.True(t, PlanningDisabled(CategoryUncertain))
	assert.True(t, PlanningDisabled(CategoryCasualChat))
	assert.False(t, PlanningDisabled(CategoryCodingTask))
}
