package promptcompose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfileFiles(t *testing.T) (profilesPath, versionsPath string) {
	t.Helper()
	dir := t.TempDir()
	profilesPath = filepath.Join(dir, "prompt_profiles.yaml")
	versionsPath = filepath.Join(dir, "prompt_versions.json")

	profiles := `
developer:
  planning:
    core: core.safety
    role: role.developer
    context: context.runtime
    user_prompt: user.planning
`
	versions := `{"core.safety": {"current": "v1"}, "role.developer": {"current": "v1"}, "context.runtime": {"current": "v1"}, "user.planning": {"current": "v1"}}`

	require.NoError(t, os.WriteFile(profilesPath, []byte(profiles), 0o644))
	require.NoError(t, os.WriteFile(versionsPath, []byte(versions), 0o644))
	return profilesPath, versionsPath
}

func TestComposeSystemPrompt(t *testing.T) {
	profilesPath, versionsPath := writeProfileFiles(t)
	reg, err := NewProfileRegistry(profilesPath, versionsPath)
	require.NoError(t, err)

	templates := MapTemplateSource{
		"core.safety@v1":     "Never delete files without approval.",
		"role.developer@v1":  "You are a {{.Role}} assistant.",
		"context.runtime@v1": "Available tools:\n{{.ToolsSection}}",
		"user.planning@v1":   "Plan for: {{.UserInput}}",
	}
	composer := NewComposer(reg, templates)

	out, err := composer.ComposeSystemPrompt("developer", StagePlanning, Vars{
		Role:         "developer",
		ToolsSection: "- list_dir\n- read_file",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Never delete files")
	assert.Contains(t, out, "You are a developer assistant.")
	assert.Contains(t, out, "list_dir")
}

func TestComposeUserPrompt(t *testing.T) {
	profilesPath, versionsPath := writeProfileFiles(t)
	reg, err := NewProfileRegistry(profilesPath, versionsPath)
	require.NoError(t, err)

	templates := MapTemplateSource{
		"user.planning@v1": "Plan for: {{.UserInput}}",
	}
	composer := NewComposer(reg, templates)

	out, err := composer.ComposeUserPrompt("developer", StagePlanning, Vars{UserInput: "add tests"})
	require.NoError(t, err)
	assert.Equal(t, "Plan for: add tests", out)
}

func TestComposeRejectsUnknownTemplateVariable(t *testing.T) {
	profilesPath, versionsPath := writeProfileFiles(t)
	reg, err := NewProfileRegistry(profilesPath, versionsPath)
	require.NoError(t, err)

	templates := MapTemplateSource{
		"core.safety@v1":     "{{.NotAField}}",
		"role.developer@v1":  "x",
		"context.runtime@v1": "x",
	}
	composer := NewComposer(reg, templates)

	_, err = composer.ComposeSystemPrompt("developer", StagePlanning, Vars{})
	assert.Error(t, err)
}

func TestComposeRejectsSecretLeak(t *testing.T) {
	profilesPath, versionsPath := writeProfileFiles(t)
	reg, err := NewProfileRegistry(profilesPath, versionsPath)
	require.NoError(t, err)

	templates := MapTemplateSource{
		"core.safety@v1":     "token: sk-abcdefghijklmnopqrstuvwxyz",
		"role.developer@v1":  "x",
		"context.runtime@v1": "x",
	}
	composer := NewComposer(reg, templates)

	_, err = composer.ComposeSystemPrompt("developer", StagePlanning, Vars{})
	assert.Error(t, err)
	var leak *ErrSecretLeak
	assert.ErrorAs(t, err, &leak)
}

func TestResolveRefHonorsExplicitPin(t *testing.T) {
	profilesPath, versionsPath := writeProfileFiles(t)
	reg, err := NewProfileRegistry(profilesPath, versionsPath)
	require.NoError(t, err)

	assert.Equal(t, "core.safety@v0", reg.ResolveRef("core.safety@v0"))
	assert.Equal(t, "core.safety@v1", reg.ResolveRef("core.safety"))
}
