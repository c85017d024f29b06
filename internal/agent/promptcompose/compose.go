package promptcompose

import (
	"fmt"
	"strings"
)

// Vars is the fixed, enumerated variable set available to every layer and
// stage template. A template referencing a field that doesn't exist on this
// struct fails to render (Go's text/template errors on unknown struct
// fields), which is how the "unknown variables are errors" contract is
// enforced without a bespoke schema check.
type Vars struct {
	Role            string
	PolicyLayer     string
	ToolsSection    string
	ProjectMemory   string
	Environment     string
	PlanTitle       string
	StepDescription string
	RecentFeedback  string
	ActiveImages    []string
	FailedStepID    string
	FailureKind     string
	UserInput       string
}

// Composer assembles system prompts (core/role/policy/context) and stage
// user prompts by resolving refs through a ProfileRegistry and rendering
// bodies from a TemplateSource.
type Composer struct {
	profiles  *ProfileRegistry
	templates TemplateSource
}

// NewComposer constructs a Composer.
func NewComposer(profiles *ProfileRegistry, templates TemplateSource) *Composer {
	return &Composer{profiles: profiles, templates: templates}
}

// ComposeSystemPrompt renders and concatenates the four system-prompt
// layers for profile/stage, in order: core, role, policy, context. A layer
// whose ref is empty contributes nothing.
func (c *Composer) ComposeSystemPrompt(profile string, stage Stage, vars Vars) (string, error) {
	refs, err := c.profiles.StageRefs(profile, stage)
	if err != nil {
		return "", err
	}

	var parts []string
	for _, ref := range []string{refs.Core, refs.Role, refs.Policy, refs.Context} {
		if ref == "" {
			continue
		}
		rendered, err := c.render(ref, vars)
		if err != nil {
			return "", err
		}
		if rendered != "" {
			parts = append(parts, rendered)
		}
	}
	out := strings.Join(parts, "\n\n")
	if err := checkNoSecrets(out); err != nil {
		return "", err
	}
	return out, nil
}

// ComposeUserPrompt renders the stage's user_prompt template.
func (c *Composer) ComposeUserPrompt(profile string, stage Stage, vars Vars) (string, error) {
	refs, err := c.profiles.StageRefs(profile, stage)
	if err != nil {
		return "", err
	}
	if refs.UserPrompt == "" {
		return "", fmt.Errorf("promptcompose: profile %q stage %q has no user_prompt ref", profile, stage)
	}
	rendered, err := c.render(refs.UserPrompt, vars)
	if err != nil {
		return "", err
	}
	if err := checkNoSecrets(rendered); err != nil {
		return "", err
	}
	return rendered, nil
}

func (c *Composer) render(ref string, vars Vars) (string, error) {
	pinned := c.profiles.ResolveRef(ref)
	tmpl, err := c.templates.Lookup(pinned)
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("promptcompose: render template %q: %w", pinned, err)
	}
	return buf.String(), nil
}
